package domain

// ChoirStatus is the administrative standing of a choir.
type ChoirStatus string

const (
	ChoirActive      ChoirStatus = "ACTIVE"
	ChoirUnderReview ChoirStatus = "UNDER_REVIEW"
	ChoirInactive    ChoirStatus = "INACTIVE"
)

// Choir is a chapter of the organization. Attendance and Streak are legacy
// seed figures kept for display only; derived ratios always come from the
// reports package, and the two are never reconciled.
type Choir struct {
	ID       ChoirID `json:"id"`
	Name     string  `json:"name"`
	Initials string  `json:"initials"`

	Attendance float64     `json:"attendance"`
	Streak     int         `json:"streak"`
	Status     ChoirStatus `json:"status"`

	// PhotoURL is the only field mutated after seeding.
	PhotoURL string `json:"photoUrl,omitempty"`
}

// SeedChoirs returns the fixed choir set installed on first run.
// IDs and legacy figures match the historical data set.
func SeedChoirs() []Choir {
	return []Choir{
		{ID: "1", Name: "Bicentenario", Initials: "BI", Attendance: 95.5, Streak: 8, Status: ChoirActive},
		{ID: "2", Name: "Bucerias", Initials: "BU", Attendance: 92.1, Streak: 5, Status: ChoirActive},
		{ID: "3", Name: "El Guamuchil", Initials: "EG", Attendance: 88.4, Streak: 3, Status: ChoirUnderReview},
		{ID: "4", Name: "El Porvenir", Initials: "EP", Attendance: 94.2, Streak: 10, Status: ChoirActive},
		{ID: "5", Name: "La Peñita", Initials: "LP", Attendance: 85.0, Streak: 2, Status: ChoirUnderReview},
		{ID: "6", Name: "Mezcales", Initials: "ME", Attendance: 97.8, Streak: 15, Status: ChoirActive},
		{ID: "7", Name: "Mezcalitos", Initials: "MT", Attendance: 91.0, Streak: 4, Status: ChoirActive},
		{ID: "8", Name: "Monte Sinai", Initials: "MS", Attendance: 93.4, Streak: 7, Status: ChoirActive},
		{ID: "9", Name: "Punta de Mita", Initials: "PM", Attendance: 89.9, Streak: 6, Status: ChoirActive},
		{ID: "10", Name: "San Ignacio", Initials: "SI", Attendance: 96.2, Streak: 12, Status: ChoirActive},
		{ID: "11", Name: "San Jose", Initials: "SJ", Attendance: 94.5, Streak: 9, Status: ChoirActive},
	}
}
