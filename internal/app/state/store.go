// Package state owns the console's five tables and every mutation path.
// It is the single writer per process: intents take the store lock, change
// the in-memory tables, persist the touched table through the blob gateway,
// and fire the sync signal. In-memory state stays authoritative even when a
// persist fails on capacity.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/umbral-esperanza/choir-console-api/internal/domain"
	"github.com/umbral-esperanza/choir-console-api/internal/ports/out/blobstore"
	"github.com/umbral-esperanza/choir-console-api/internal/ports/out/choirmirror"
	clockport "github.com/umbral-esperanza/choir-console-api/internal/ports/out/clock"
	"github.com/umbral-esperanza/choir-console-api/internal/ports/out/syncsignal"
)

// Storage keys. The version tag lets schema generations coexist in one
// backing store.
const (
	keyUsers   = "umbral_v1_users"
	keyChoirs  = "umbral_v1_choirs"
	keyMembers = "umbral_v1_members"
	keyReports = "umbral_v1_reports"
	keyEvents  = "umbral_v1_events"
	keySession = "umbral_v1_session"
)

// Options wires the store's collaborators.
type Options struct {
	Blobs      blobstore.Store
	Announcer  syncsignal.Announcer
	Mirror     choirmirror.Mirror
	Clock      clockport.Clock
	Logger     *slog.Logger
	Recordable domain.RecordablePolicy

	// SeasonStart and SeasonEnd bound the auto-generated weekend calendar
	// installed on first run.
	SeasonStart time.Time
	SeasonEnd   time.Time
}

// Store holds the console tables behind one mutex.
type Store struct {
	mu sync.RWMutex

	users   []domain.User
	choirs  []domain.Choir
	members []domain.Member
	records []domain.AttendanceRecord
	events  []domain.Event

	blobs      blobstore.Store
	announcer  syncsignal.Announcer
	mirror     choirmirror.Mirror
	clk        clockport.Clock
	logger     *slog.Logger
	recordable domain.RecordablePolicy

	seasonStart time.Time
	seasonEnd   time.Time

	newID func() string
}

func NewStore(opts Options) *Store {
	if opts.Announcer == nil {
		opts.Announcer = syncsignal.NopAnnouncer{}
	}
	if opts.Mirror == nil {
		opts.Mirror = choirmirror.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{
		blobs:       opts.Blobs,
		announcer:   opts.Announcer,
		mirror:      opts.Mirror,
		clk:         opts.Clock,
		logger:      opts.Logger,
		recordable:  opts.Recordable,
		seasonStart: opts.SeasonStart,
		seasonEnd:   opts.SeasonEnd,
		newID:       uuid.NewString,
	}
}

// Load reads every table from the gateway. A missing or undecodable choir
// table triggers first-run seeding of choirs, the weekend event calendar and
// the pre-seeded directors.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

// Reload is the sync-signal callback: re-read every table, last save wins.
func (s *Store) Reload(ctx context.Context) error {
	return s.Load(ctx)
}

func (s *Store) loadLocked(ctx context.Context) error {
	choirs, ok, err := loadTable[domain.Choir](ctx, s, keyChoirs)
	if err != nil {
		return err
	}
	if !ok || len(choirs) == 0 {
		return s.seedLocked(ctx)
	}
	s.choirs = choirs

	if s.users, _, err = loadTable[domain.User](ctx, s, keyUsers); err != nil {
		return err
	}
	if s.members, _, err = loadTable[domain.Member](ctx, s, keyMembers); err != nil {
		return err
	}
	if s.records, _, err = loadTable[domain.AttendanceRecord](ctx, s, keyReports); err != nil {
		return err
	}
	if s.events, _, err = loadTable[domain.Event](ctx, s, keyEvents); err != nil {
		return err
	}
	return nil
}

// loadTable returns (value, found, err). Undecodable payloads count as
// absent so one corrupt blob cannot brick the console.
func loadTable[T any](ctx context.Context, s *Store, key string) ([]T, bool, error) {
	data, err := s.blobs.Load(ctx, key)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		s.logger.Warn("discarding undecodable table", "key", key, "error", err)
		return nil, false, nil
	}
	return out, true, nil
}

func (s *Store) seedLocked(ctx context.Context) error {
	s.choirs = domain.SeedChoirs()
	s.users = domain.SeedUsers()
	s.events = domain.SeedEvents(s.seasonStart, s.seasonEnd)
	s.members = nil
	s.records = nil

	s.logger.Info("seeding first-run data",
		"choirs", len(s.choirs), "users", len(s.users), "events", len(s.events))

	for _, p := range []struct {
		key string
		v   any
	}{
		{keyChoirs, s.choirs},
		{keyUsers, s.users},
		{keyEvents, s.events},
	} {
		if err := s.persist(ctx, p.key, p.v); err != nil {
			return err
		}
	}
	return nil
}

// persist marshals and saves one table. Capacity exhaustion is logged and
// absorbed; memory remains the source of truth.
func (s *Store) persist(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.blobs.Save(ctx, key, data); err != nil {
		if errors.Is(err, blobstore.ErrCapacityExceeded) {
			s.logger.Warn("storage capacity exceeded, keeping in-memory state", "key", key)
			return nil
		}
		return err
	}
	return nil
}

func (s *Store) announce(ctx context.Context) {
	s.announcer.Announce(ctx)
}

// mirrorChoir pushes the choir row to the optional remote mirror. Failures
// are logged, never surfaced.
func (s *Store) mirrorChoir(ctx context.Context, c domain.Choir) {
	if err := s.mirror.Upsert(ctx, c); err != nil {
		s.logger.Warn("choir mirror upsert failed", "choirId", string(c.ID), "error", err)
	}
}

// Snapshot accessors return copies so aggregation never races the writer.

func (s *Store) Users() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.User(nil), s.users...)
}

func (s *Store) Choirs() []domain.Choir {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Choir(nil), s.choirs...)
}

func (s *Store) Members() []domain.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Member(nil), s.members...)
}

func (s *Store) Records() []domain.AttendanceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AttendanceRecord(nil), s.records...)
}

func (s *Store) Events() []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Event(nil), s.events...)
}

// Season returns the configured weekend-calendar bounds.
func (s *Store) Season() (start, end time.Time) {
	return s.seasonStart, s.seasonEnd
}

func (s *Store) choirByID(id domain.ChoirID) (domain.Choir, bool) {
	for _, c := range s.choirs {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Choir{}, false
}

func (s *Store) eventByID(id domain.EventID) (domain.Event, bool) {
	for _, e := range s.events {
		if e.ID == id {
			return e, true
		}
	}
	return domain.Event{}, false
}
