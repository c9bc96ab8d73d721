package domain

import "time"

// RecordablePolicy decides which calendar days accept roster submissions.
// Historically this rule was enforced inconsistently (one variant even
// compared against Friday/Saturday while documenting Saturday/Sunday), so the
// check lives in exactly one configurable place and is applied only at the
// roster submission entry point.
type RecordablePolicy struct {
	days map[time.Weekday]bool
}

// WeekendOnly is the default policy: Saturday and Sunday.
func WeekendOnly() RecordablePolicy {
	return NewRecordablePolicy(time.Saturday, time.Sunday)
}

// NewRecordablePolicy allows submissions on the given weekdays.
// With no weekdays, every day is recordable.
func NewRecordablePolicy(days ...time.Weekday) RecordablePolicy {
	if len(days) == 0 {
		return RecordablePolicy{}
	}
	m := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		m[d] = true
	}
	return RecordablePolicy{days: m}
}

// Allows reports whether t's weekday accepts roster submissions.
func (p RecordablePolicy) Allows(t time.Time) bool {
	if p.days == nil {
		return true
	}
	return p.days[t.Weekday()]
}
