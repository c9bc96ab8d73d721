package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/umbral-esperanza/choir-console-api/internal/domain"
)

// Config is the deployment-provided runtime configuration.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	// StorageBackend selects the persistence gateway: memory, fs or sqlite.
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"fs"`
	// DataDir holds the fs backend's blob files and the sync marker.
	DataDir string `env:"DATA_DIR" envDefault:"./data"`
	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `env:"SQLITE_PATH" envDefault:"./data/console.db"`

	// MirrorDatabaseURL enables the best-effort remote choir mirror when set.
	MirrorDatabaseURL string `env:"MIRROR_DATABASE_URL"`

	// AdminToken is the exact login sentinel granting the admin role.
	AdminToken string `env:"ADMIN_TOKEN" envDefault:"Admin"`
	// DirectorSuffix is the login-token suffix identifying director logins.
	DirectorSuffix string `env:"DIRECTOR_SUFFIX" envDefault:"Dr"`

	// RecordableWeekdays lists the days roster submissions are accepted on.
	RecordableWeekdays []string `env:"RECORDABLE_WEEKDAYS" envSeparator:"," envDefault:"Saturday,Sunday"`

	// SeasonStart/SeasonEnd bound the seeded rehearsal calendar and the
	// weekend attendance series.
	SeasonStart string `env:"SEASON_START" envDefault:"2026-01-31"`
	SeasonEnd   string `env:"SEASON_END" envDefault:"2026-04-06"`

	// SyncDebounce is how long the sync watcher waits for more foreign
	// announcements before reloading.
	SyncDebounce time.Duration `env:"SYNC_DEBOUNCE" envDefault:"500ms"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.StorageBackend {
	case "memory", "fs", "sqlite":
	default:
		return Config{}, fmt.Errorf("STORAGE_BACKEND must be memory, fs or sqlite, got %q", cfg.StorageBackend)
	}
	if _, err := cfg.Season(); err != nil {
		return Config{}, err
	}
	if _, err := cfg.RecordablePolicy(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Season returns the configured season range.
func (c Config) Season() ([2]time.Time, error) {
	start, err := time.Parse(domain.DateLayout, c.SeasonStart)
	if err != nil {
		return [2]time.Time{}, fmt.Errorf("SEASON_START must be a %s date: %w", domain.DateLayout, err)
	}
	end, err := time.Parse(domain.DateLayout, c.SeasonEnd)
	if err != nil {
		return [2]time.Time{}, fmt.Errorf("SEASON_END must be a %s date: %w", domain.DateLayout, err)
	}
	if end.Before(start) {
		return [2]time.Time{}, fmt.Errorf("SEASON_END %s precedes SEASON_START %s", c.SeasonEnd, c.SeasonStart)
	}
	return [2]time.Time{start, end}, nil
}

// RecordablePolicy builds the roster submission day policy.
func (c Config) RecordablePolicy() (domain.RecordablePolicy, error) {
	var days []time.Weekday
	for _, name := range c.RecordableWeekdays {
		wd, err := parseWeekday(name)
		if err != nil {
			return domain.RecordablePolicy{}, err
		}
		days = append(days, wd)
	}
	return domain.NewRecordablePolicy(days...), nil
}

func parseWeekday(name string) (time.Weekday, error) {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if strings.EqualFold(wd.String(), strings.TrimSpace(name)) {
			return wd, nil
		}
	}
	return 0, fmt.Errorf("RECORDABLE_WEEKDAYS: unknown weekday %q", name)
}
