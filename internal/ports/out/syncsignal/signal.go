package syncsignal

import "context"

// Announcer broadcasts a content-free "something changed" notification to
// other instances sharing the same store. Advisory only: no ordering, no
// delivery guarantee, no deduplication.
type Announcer interface {
	Announce(ctx context.Context)
}

// Watcher invokes a callback when another instance announces a change.
// Receivers are expected to reload their state from the persistence gateway;
// a late reload simply sees whatever the store currently holds.
type Watcher interface {
	// Watch runs until ctx is canceled, calling onChange for each (debounced)
	// foreign announcement.
	Watch(ctx context.Context, onChange func()) error
}

// NopAnnouncer discards announcements. Used when no sibling instances exist.
type NopAnnouncer struct{}

func (NopAnnouncer) Announce(context.Context) {}
