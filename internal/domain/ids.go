package domain

// ChoirID identifies a choir (a site/chapter of the organization).
// The set of valid IDs is seeded at first run and fixed at runtime.
type ChoirID string

// MemberID is an internal identifier for an enrolled member record.
type MemberID string

// EventID is an internal identifier for a rehearsal/event record.
type EventID string

// RecordID is an internal identifier for an attendance record.
type RecordID string

// UserID is an internal identifier for a console account (admin or director).
type UserID string
