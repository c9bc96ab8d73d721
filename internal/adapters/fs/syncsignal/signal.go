// Package syncsignal propagates change notifications between console
// processes sharing a data directory. Announcing rewrites a marker file;
// watching observes it with fsnotify and coalesces bursts with a debounce
// timer. Each process carries a random instance token so it can ignore its
// own announcements.
package syncsignal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

const markerName = ".sync-signal"

type Signal struct {
	dir      string
	token    string
	debounce time.Duration
	logger   *slog.Logger
}

// New builds a signal rooted at dir. The debounce window bounds how often a
// watcher fires during a burst of writes; zero falls back to 500ms.
func New(dir string, debounce time.Duration, logger *slog.Logger) *Signal {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Signal{
		dir:      dir,
		token:    uuid.NewString(),
		debounce: debounce,
		logger:   logger,
	}
}

func (s *Signal) markerPath() string {
	return filepath.Join(s.dir, markerName)
}

// Announce rewrites the marker file. Failures are logged, not returned:
// the signal is advisory and must never fail a mutation that already
// persisted. The marker is written to a temp file and renamed into place
// so watchers never observe it without its token.
func (s *Signal) Announce(ctx context.Context) {
	_ = ctx
	payload := fmt.Sprintf("%s %d\n", s.token, time.Now().UnixNano())
	if err := s.writeMarker([]byte(payload)); err != nil {
		s.logger.Warn("sync announce failed", "path", s.markerPath(), "error", err)
	}
}

func (s *Signal) writeMarker(payload []byte) error {
	tmp, err := os.CreateTemp(s.dir, markerName+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.markerPath()); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Watch blocks until ctx is canceled, invoking onChange after each foreign
// announcement settles. Announcements carrying this process's own token are
// ignored.
func (s *Signal) Watch(ctx context.Context, onChange func()) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create watch dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != markerName {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if s.ownAnnouncement() {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(s.debounce)
			}
			fire = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("sync watcher error", "error", err)
		case <-fire:
			fire = nil
			s.logger.Debug("sync signal received", "dir", s.dir)
			onChange()
		}
	}
}

func (s *Signal) ownAnnouncement() bool {
	data, err := os.ReadFile(s.markerPath())
	if err != nil {
		return false
	}
	token, _, _ := strings.Cut(strings.TrimSpace(string(data)), " ")
	return token == s.token
}
