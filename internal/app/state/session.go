package state

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/umbral-esperanza/choir-console-api/internal/domain"
	"github.com/umbral-esperanza/choir-console-api/internal/ports/out/blobstore"
)

// Login resolves a token through the gate. A director resolving onto a
// vacant seat is enrolled into the user table before the session persists.
func (s *Store) Login(ctx context.Context, resolve func(choirs []domain.Choir, users []domain.User) (domain.User, error)) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := resolve(s.choirs, s.users)
	if err != nil {
		return domain.User{}, err
	}
	if u.Role == domain.RoleDirector && u.ID == "" {
		u.ID = domain.UserID(s.newID())
		s.users = append(s.users, u)
		if err := s.persist(ctx, keyUsers, s.users); err != nil {
			return domain.User{}, err
		}
		s.announce(ctx)
	}
	if err := s.persist(ctx, keySession, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// Session returns the persisted login, if any.
func (s *Store) Session(ctx context.Context) (domain.User, bool, error) {
	data, err := s.blobs.Load(ctx, keySession)
	if errors.Is(err, blobstore.ErrNotFound) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, err
	}
	var u domain.User
	if err := json.Unmarshal(data, &u); err != nil {
		return domain.User{}, false, nil
	}
	return u, true, nil
}

// Logout clears the persisted session.
func (s *Store) Logout(ctx context.Context) error {
	return s.blobs.Delete(ctx, keySession)
}
