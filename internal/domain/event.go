package domain

import "time"

// DateLayout is the calendar-day format used across the event and attendance
// tables. Dates carry no time zone; they are local calendar days.
const DateLayout = "2006-01-02"

// Event is a scheduled rehearsal or service.
type Event struct {
	ID       EventID `json:"id"`
	Name     string  `json:"name"`
	Date     string  `json:"date"` // DateLayout calendar day; required
	Time     string  `json:"time"` // HH:MM local time-of-day
	Location string  `json:"location"`

	PosterURL   string `json:"posterUrl,omitempty"`
	Description string `json:"description,omitempty"`
}

// ParseDate parses the event's calendar day. An event with an unparseable
// date fails the recordable-days policy rather than crashing callers.
func (e Event) ParseDate() (time.Time, error) {
	return time.Parse(DateLayout, e.Date)
}

// SeedEvents returns one general rehearsal per weekend day in [start, end],
// matching the historically auto-generated season calendar.
func SeedEvents(start, end time.Time) []Event {
	var evs []Event
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		var name string
		switch d.Weekday() {
		case time.Saturday:
			name = "Ensayo General Sabatino"
		case time.Sunday:
			name = "Ensayo General Dominical"
		default:
			continue
		}
		date := d.Format(DateLayout)
		evs = append(evs, Event{
			ID:       EventID("auto-" + date),
			Name:     name,
			Date:     date,
			Time:     "10:00",
			Location: "Sede Principal",
		})
	}
	return evs
}
