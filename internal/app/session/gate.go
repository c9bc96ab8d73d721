// Package session resolves login tokens into console identities and scopes.
// There is no real authentication: the token is a shared convention, an
// exact admin sentinel or a choir name plus a director suffix.
package session

import (
	"fmt"
	"strings"

	"github.com/umbral-esperanza/choir-console-api/internal/domain"
)

// ErrUnknownIdentity rejects tokens that match neither the admin sentinel
// nor any choir's director form. Retryable: the caller just mistyped.
var ErrUnknownIdentity = &Error{
	Status:  422,
	Code:    "UNKNOWN_IDENTITY",
	Message: "token matches no known identity",
}

// Error mirrors the application layer's typed error shape.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// Gate resolves tokens. The admin token matches exactly; director tokens end
// in the suffix and carry a choir name before it, compared after
// normalization (lowercase, whitespace removed, diacritics folded).
type Gate struct {
	adminToken     string
	directorSuffix string
}

func NewGate(adminToken, directorSuffix string) *Gate {
	if adminToken == "" {
		adminToken = "Admin"
	}
	if directorSuffix == "" {
		directorSuffix = "Dr"
	}
	return &Gate{adminToken: adminToken, directorSuffix: directorSuffix}
}

// adminUser is the synthetic account returned for the admin sentinel.
// It never lives in the user table.
func adminUser() domain.User {
	return domain.User{
		ID:    "admin",
		Name:  "Administrador General",
		Email: "admin@console.local",
		Role:  domain.RoleAdmin,
	}
}

// ResolveIdentity maps a token onto an identity given the current choir and
// user tables. For a vacant director seat it synthesizes a new account with
// an empty ID; the caller assigns the ID and persists it.
func (g *Gate) ResolveIdentity(token string, choirs []domain.Choir, users []domain.User) (domain.User, error) {
	if token == g.adminToken {
		return adminUser(), nil
	}
	prefix, ok := strings.CutSuffix(token, g.directorSuffix)
	if !ok || prefix == "" {
		return domain.User{}, ErrUnknownIdentity
	}

	want := domain.NormalizeLoginName(prefix)
	for _, c := range choirs {
		if domain.NormalizeLoginName(c.Name) != want {
			continue
		}
		if dir, ok := domain.DirectorForChoir(users, c.ID); ok {
			return dir, nil
		}
		return domain.User{
			Name:    "Director " + c.Name,
			Email:   fmt.Sprintf("%s@director.com", want),
			Role:    domain.RoleDirector,
			ChoirID: c.ID,
		}, nil
	}
	return domain.User{}, ErrUnknownIdentity
}

// Scope bounds what an identity may see and mutate.
type Scope struct {
	role    domain.Role
	choirID domain.ChoirID // zero means unrestricted (admin without filter)
}

// ScopeFor derives the scope of a resolved identity.
func ScopeFor(u domain.User) Scope {
	if u.Role == domain.RoleAdmin {
		return Scope{role: domain.RoleAdmin}
	}
	return Scope{role: domain.RoleDirector, choirID: u.ChoirID}
}

// IsAdmin reports whether the scope carries admin authority.
func (s Scope) IsAdmin() bool { return s.role == domain.RoleAdmin }

// ChoirID returns the bound choir, or empty for an unrestricted admin.
func (s Scope) ChoirID() domain.ChoirID { return s.choirID }

// CanManage reports whether the scope may mutate records of the given choir.
func (s Scope) CanManage(choirID domain.ChoirID) bool {
	if s.role == domain.RoleAdmin {
		return true
	}
	return s.choirID != "" && s.choirID == choirID
}

// Narrow restricts the scope to one choir. Admins may narrow freely; a
// director narrowing to a foreign choir is rejected with FORBIDDEN_SCOPE.
func (s Scope) Narrow(choirID domain.ChoirID) (Scope, error) {
	if !s.CanManage(choirID) {
		return Scope{}, &Error{
			Status:  403,
			Code:    "FORBIDDEN_SCOPE",
			Message: "identity is not allowed to act on this choir",
			Details: map[string]any{"choirId": string(choirID)},
		}
	}
	return Scope{role: s.role, choirID: choirID}, nil
}
