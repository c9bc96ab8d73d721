package domain

// AttendanceRecord is one member's presence mark for one event. Date is a
// denormalized copy of the parent event's date, written only by the roster
// submission path so the weekend series can bucket by date without a join.
type AttendanceRecord struct {
	ID       RecordID `json:"id"`
	EventID  EventID  `json:"eventId"`
	MemberID MemberID `json:"memberId"`
	Present  bool     `json:"present"`
	Date     string   `json:"date"` // DateLayout; equals the event date at write time
}
