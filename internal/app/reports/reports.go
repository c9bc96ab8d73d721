// Package reports computes attendance aggregates. Every function is pure
// over snapshot slices: no caching, no stored aggregates, identical inputs
// produce identical outputs. Callers pass copies taken under the state lock.
package reports

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/umbral-esperanza/choir-console-api/internal/domain"
)

// FollowUpThreshold is the consecutive-absence count that flags a member for
// pastoral follow-up.
const FollowUpThreshold = 3

// Ratio is the integer attendance percentage: round(100*present/total).
// An empty denominator yields 0.
func Ratio(present, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(present) / float64(total)))
}

func memberSet(choirID domain.ChoirID, members []domain.Member) map[domain.MemberID]bool {
	set := make(map[domain.MemberID]bool)
	for _, m := range members {
		if m.ChoirID == choirID {
			set[m.ID] = true
		}
	}
	return set
}

// ChoirAttendanceRatio is the percentage of present marks among all
// attendance records belonging to the choir's members.
func ChoirAttendanceRatio(choirID domain.ChoirID, members []domain.Member, records []domain.AttendanceRecord) int {
	set := memberSet(choirID, members)
	var present, total int
	for _, r := range records {
		if !set[r.MemberID] {
			continue
		}
		total++
		if r.Present {
			present++
		}
	}
	return Ratio(present, total)
}

// GlobalAttendanceRatio is the percentage of present marks across every record.
func GlobalAttendanceRatio(records []domain.AttendanceRecord) int {
	var present int
	for _, r := range records {
		if r.Present {
			present++
		}
	}
	return Ratio(present, len(records))
}

// ChoirStanding is one row of the ranking table.
type ChoirStanding struct {
	Choir     domain.Choir `json:"choir"`
	Ratio     int          `json:"ratio"`
	HasReport bool         `json:"hasReport"`
}

// ChoirRanking orders choirs by derived ratio, descending. The sort is
// stable so equal ratios keep the incoming choir order.
func ChoirRanking(choirs []domain.Choir, members []domain.Member, records []domain.AttendanceRecord) []ChoirStanding {
	standings := make([]ChoirStanding, 0, len(choirs))
	for _, c := range choirs {
		set := memberSet(c.ID, members)
		var present, total int
		for _, r := range records {
			if !set[r.MemberID] {
				continue
			}
			total++
			if r.Present {
				present++
			}
		}
		standings = append(standings, ChoirStanding{
			Choir:     c,
			Ratio:     Ratio(present, total),
			HasReport: total > 0,
		})
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Ratio > standings[j].Ratio
	})
	return standings
}

// Breakdown is the audit view of a single event's submitted attendance.
// Voice, gender and choir buckets count present members only and omit zero
// buckets; records whose member cannot be resolved still count as recorded
// but land in no bucket.
type Breakdown struct {
	EventID  domain.EventID           `json:"eventId"`
	Recorded int                      `json:"recorded"`
	Present  int                      `json:"present"`
	ByVoice  map[domain.VoicePart]int `json:"byVoice"`
	ByGender map[domain.Gender]int    `json:"byGender"`
	ByChoir  map[string]int           `json:"byChoir"`
}

// EventBreakdown aggregates every record of one event.
func EventBreakdown(eventID domain.EventID, members []domain.Member, choirs []domain.Choir, records []domain.AttendanceRecord) Breakdown {
	byID := make(map[domain.MemberID]domain.Member, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}
	choirName := make(map[domain.ChoirID]string, len(choirs))
	for _, c := range choirs {
		choirName[c.ID] = c.Name
	}

	b := Breakdown{
		EventID:  eventID,
		ByVoice:  make(map[domain.VoicePart]int),
		ByGender: make(map[domain.Gender]int),
		ByChoir:  make(map[string]int),
	}
	for _, r := range records {
		if r.EventID != eventID {
			continue
		}
		b.Recorded++
		if !r.Present {
			continue
		}
		b.Present++
		m, ok := byID[r.MemberID]
		if !ok {
			continue
		}
		b.ByVoice[m.VoicePart]++
		b.ByGender[m.Gender]++
		if name, ok := choirName[m.ChoirID]; ok {
			b.ByChoir[name]++
		}
	}
	return b
}

// MemberAbsenceStreak counts the member's most recent consecutive absences.
// Records are ordered by date descending; the count stops at the first
// present mark.
func MemberAbsenceStreak(memberID domain.MemberID, records []domain.AttendanceRecord) int {
	var own []domain.AttendanceRecord
	for _, r := range records {
		if r.MemberID == memberID {
			own = append(own, r)
		}
	}
	sort.SliceStable(own, func(i, j int) bool {
		return own[i].Date > own[j].Date
	})
	streak := 0
	for _, r := range own {
		if r.Present {
			break
		}
		streak++
	}
	return streak
}

// NeedsFollowUp reports whether the member's absence streak has reached the
// follow-up threshold.
func NeedsFollowUp(memberID domain.MemberID, records []domain.AttendanceRecord) bool {
	return MemberAbsenceStreak(memberID, records) >= FollowUpThreshold
}

// SeriesPoint is one weekend day on the season attendance chart.
type SeriesPoint struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	Ratio int    `json:"ratio"`
}

// WeekendSeries lists every Saturday and Sunday in [start, end] with the
// attendance ratio of records dated exactly that day. The series is
// chronological and finite.
func WeekendSeries(start, end time.Time, records []domain.AttendanceRecord) []SeriesPoint {
	byDate := make(map[string][2]int) // present, total
	for _, r := range records {
		pt := byDate[r.Date]
		pt[1]++
		if r.Present {
			pt[0]++
		}
		byDate[r.Date] = pt
	}

	var series []SeriesPoint
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		var dayName string
		switch d.Weekday() {
		case time.Saturday:
			dayName = "Sáb"
		case time.Sunday:
			dayName = "Dom"
		default:
			continue
		}
		date := d.Format(domain.DateLayout)
		pt := byDate[date]
		series = append(series, SeriesPoint{
			Date:  date,
			Label: fmt.Sprintf("%s %d/%d", dayName, d.Day(), int(d.Month())),
			Ratio: Ratio(pt[0], pt[1]),
		})
	}
	return series
}

// Summary is the per-member profile card.
type Summary struct {
	MemberID      domain.MemberID `json:"memberId"`
	Present       int             `json:"present"`
	Absent        int             `json:"absent"`
	Ratio         int             `json:"ratio"`
	AbsenceStreak int             `json:"absenceStreak"`
	NeedsFollowUp bool            `json:"needsFollowUp"`
}

// MemberSummary aggregates one member's full attendance history.
func MemberSummary(memberID domain.MemberID, records []domain.AttendanceRecord) Summary {
	var present, total int
	for _, r := range records {
		if r.MemberID != memberID {
			continue
		}
		total++
		if r.Present {
			present++
		}
	}
	streak := MemberAbsenceStreak(memberID, records)
	return Summary{
		MemberID:      memberID,
		Present:       present,
		Absent:        total - present,
		Ratio:         Ratio(present, total),
		AbsenceStreak: streak,
		NeedsFollowUp: streak >= FollowUpThreshold,
	}
}

// ReportStatus is one row of the submission monitor.
type ReportStatus struct {
	ChoirID      domain.ChoirID `json:"choirId"`
	ChoirName    string         `json:"choirName"`
	HasSubmitted bool           `json:"hasSubmitted"`
}

// ChoirReportStatus reports, per choir, whether any attendance record exists
// for one of its members.
func ChoirReportStatus(choirs []domain.Choir, members []domain.Member, records []domain.AttendanceRecord) []ReportStatus {
	recorded := make(map[domain.MemberID]bool, len(records))
	for _, r := range records {
		recorded[r.MemberID] = true
	}
	out := make([]ReportStatus, 0, len(choirs))
	for _, c := range choirs {
		has := false
		for _, m := range members {
			if m.ChoirID == c.ID && recorded[m.ID] {
				has = true
				break
			}
		}
		out = append(out, ReportStatus{ChoirID: c.ID, ChoirName: c.Name, HasSubmitted: has})
	}
	return out
}

// LedgerRow is one denormalized audit line. Dangling references render as
// placeholders instead of failing the whole export.
type LedgerRow struct {
	RecordID   domain.RecordID  `json:"recordId"`
	Date       string           `json:"date"`
	EventName  string           `json:"eventName"`
	MemberName string           `json:"memberName"`
	ChoirName  string           `json:"choirName"`
	VoicePart  domain.VoicePart `json:"voicePart"`
	Present    bool             `json:"present"`
	Director   string           `json:"director"`
}

const unknownPlaceholder = "Desconocido"

// Ledger joins every attendance record against members, choirs, events and
// the director roster. Rows are ordered by date descending, then record id
// for a stable tie-break.
func Ledger(members []domain.Member, choirs []domain.Choir, events []domain.Event, users []domain.User, records []domain.AttendanceRecord) []LedgerRow {
	memberByID := make(map[domain.MemberID]domain.Member, len(members))
	for _, m := range members {
		memberByID[m.ID] = m
	}
	choirByID := make(map[domain.ChoirID]domain.Choir, len(choirs))
	for _, c := range choirs {
		choirByID[c.ID] = c
	}
	eventByID := make(map[domain.EventID]domain.Event, len(events))
	for _, e := range events {
		eventByID[e.ID] = e
	}

	rows := make([]LedgerRow, 0, len(records))
	for _, r := range records {
		row := LedgerRow{
			RecordID:   r.ID,
			Date:       r.Date,
			EventName:  unknownPlaceholder,
			MemberName: unknownPlaceholder,
			ChoirName:  unknownPlaceholder,
			VoicePart:  domain.VoiceUnassigned,
			Present:    r.Present,
			Director:   unknownPlaceholder,
		}
		if e, ok := eventByID[r.EventID]; ok {
			row.EventName = e.Name
		}
		if m, ok := memberByID[r.MemberID]; ok {
			row.MemberName = m.FullName()
			row.VoicePart = m.VoicePart
			if c, ok := choirByID[m.ChoirID]; ok {
				row.ChoirName = c.Name
			}
			if dir, ok := domain.DirectorForChoir(users, m.ChoirID); ok {
				row.Director = dir.Name
			}
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date > rows[j].Date
		}
		return rows[i].RecordID < rows[j].RecordID
	})
	return rows
}
