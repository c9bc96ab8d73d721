package domain

// Role is a console account's authority level.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleDirector Role = "DIRECTOR"
)

// User is a console account. ChoirID is set and meaningful only for
// directors; at most one canonical director per choir is expected but not
// enforced; resolution takes the last-created match.
type User struct {
	ID    UserID `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`

	ChoirID   ChoirID `json:"choirId,omitempty"`
	AvatarURL string  `json:"avatar,omitempty"`
}

// SeedUsers returns the director accounts installed on first run.
func SeedUsers() []User {
	return []User{
		{ID: "u1", Name: "Julio Peña", Email: "bicentenario@director.com", Role: RoleDirector, ChoirID: "1"},
		{ID: "u2", Name: "Director Bucerias", Email: "bucerias@director.com", Role: RoleDirector, ChoirID: "2"},
		{ID: "u3", Name: "Director El Guamuchil", Email: "guamuchil@director.com", Role: RoleDirector, ChoirID: "3"},
		{ID: "u4", Name: "Director El Porvenir", Email: "porvenir@director.com", Role: RoleDirector, ChoirID: "4"},
		{ID: "u5", Name: "Director La Peñita", Email: "penita@director.com", Role: RoleDirector, ChoirID: "5"},
		{ID: "u6", Name: "Director Mezcales", Email: "mezcales@director.com", Role: RoleDirector, ChoirID: "6"},
	}
}

// DirectorForChoir resolves the canonical director for a choir: the
// last-created matching account, or false when the seat is vacant.
func DirectorForChoir(users []User, choirID ChoirID) (User, bool) {
	var found User
	var ok bool
	for _, u := range users {
		if u.Role == RoleDirector && u.ChoirID == choirID {
			found, ok = u, true
		}
	}
	return found, ok
}
