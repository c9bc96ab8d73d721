package state

import (
	"context"
	"strings"

	"github.com/umbral-esperanza/choir-console-api/internal/domain"
)

// AddMemberInput carries a new member before an ID is assigned.
type AddMemberInput struct {
	FirstName string
	LastName  string
	Email     string
	ChoirID   domain.ChoirID
	VoicePart domain.VoicePart
	Gender    domain.Gender
}

// AddMember validates and enrolls a member. The caller has already
// scope-checked ChoirID.
func (s *Store) AddMember(ctx context.Context, in AddMemberInput) (domain.Member, error) {
	details := map[string]any{}
	if strings.TrimSpace(in.FirstName) == "" {
		details["firstName"] = "required"
	}
	if strings.TrimSpace(in.LastName) == "" {
		details["lastName"] = "required"
	}
	if in.VoicePart == "" {
		in.VoicePart = domain.VoiceUnassigned
	}
	if !domain.ValidVoicePart(in.VoicePart) {
		details["voicePart"] = "unknown voice part"
	}
	if !domain.ValidGender(in.Gender) {
		details["gender"] = "unknown gender"
	}
	if len(details) > 0 {
		return domain.Member{}, validation("invalid member", details)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.choirByID(in.ChoirID); !ok {
		return domain.Member{}, notFound("CHOIR_NOT_FOUND", "choir does not exist", map[string]any{"choirId": string(in.ChoirID)})
	}

	m := domain.Member{
		ID:        domain.MemberID(s.newID()),
		FirstName: domain.NormalizeHumanName(in.FirstName),
		LastName:  domain.NormalizeHumanName(in.LastName),
		Email:     strings.TrimSpace(in.Email),
		ChoirID:   in.ChoirID,
		VoicePart: in.VoicePart,
		Gender:    in.Gender,
	}
	s.members = append(s.members, m)
	if err := s.persist(ctx, keyMembers, s.members); err != nil {
		return domain.Member{}, err
	}
	s.announce(ctx)
	return m, nil
}

// DeleteMember removes a member. Their attendance history is kept; the
// ledger renders the dangling reference with a placeholder.
func (s *Store) DeleteMember(ctx context.Context, id domain.MemberID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, m := range s.members {
		if m.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return notFound("MEMBER_NOT_FOUND", "member does not exist", map[string]any{"memberId": string(id)})
	}
	s.members = append(s.members[:idx], s.members[idx+1:]...)
	if err := s.persist(ctx, keyMembers, s.members); err != nil {
		return err
	}
	s.announce(ctx)
	return nil
}

// MemberByID resolves one member.
func (s *Store) MemberByID(id domain.MemberID) (domain.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members {
		if m.ID == id {
			return m, nil
		}
	}
	return domain.Member{}, notFound("MEMBER_NOT_FOUND", "member does not exist", map[string]any{"memberId": string(id)})
}

// SetEvent creates or updates an event. An empty ID means create.
func (s *Store) SetEvent(ctx context.Context, ev domain.Event) (domain.Event, error) {
	details := map[string]any{}
	if strings.TrimSpace(ev.Name) == "" {
		details["name"] = "required"
	}
	if _, err := ev.ParseDate(); err != nil {
		details["date"] = "must be YYYY-MM-DD"
	}
	if len(details) > 0 {
		return domain.Event{}, validation("invalid event", details)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.ID == "" {
		ev.ID = domain.EventID(s.newID())
		s.events = append(s.events, ev)
	} else {
		idx := -1
		for i, e := range s.events {
			if e.ID == ev.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return domain.Event{}, notFound("EVENT_NOT_FOUND", "event does not exist", map[string]any{"eventId": string(ev.ID)})
		}
		s.events[idx] = ev
	}
	if err := s.persist(ctx, keyEvents, s.events); err != nil {
		return domain.Event{}, err
	}
	s.announce(ctx)
	return ev, nil
}

// DeleteEvent removes an event. Attendance records keep their denormalized
// date, so past aggregates survive the deletion.
func (s *Store) DeleteEvent(ctx context.Context, id domain.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, e := range s.events {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return notFound("EVENT_NOT_FOUND", "event does not exist", map[string]any{"eventId": string(id)})
	}
	s.events = append(s.events[:idx], s.events[idx+1:]...)
	if err := s.persist(ctx, keyEvents, s.events); err != nil {
		return err
	}
	s.announce(ctx)
	return nil
}

// EventByID resolves one event.
func (s *Store) EventByID(id domain.EventID) (domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.eventByID(id); ok {
		return e, nil
	}
	return domain.Event{}, notFound("EVENT_NOT_FOUND", "event does not exist", map[string]any{"eventId": string(id)})
}

// UpdateChoirPhoto sets the only mutable choir field and mirrors the row.
func (s *Store) UpdateChoirPhoto(ctx context.Context, id domain.ChoirID, photoURL string) (domain.Choir, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, c := range s.choirs {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Choir{}, notFound("CHOIR_NOT_FOUND", "choir does not exist", map[string]any{"choirId": string(id)})
	}
	s.choirs[idx].PhotoURL = photoURL
	updated := s.choirs[idx]
	if err := s.persist(ctx, keyChoirs, s.choirs); err != nil {
		return domain.Choir{}, err
	}
	s.announce(ctx)
	s.mirrorChoir(ctx, updated)
	return updated, nil
}

// PutDirector creates or updates a console account. Duplicate directors on
// one choir are tolerated; resolution takes the last-created.
func (s *Store) PutDirector(ctx context.Context, u domain.User) (domain.User, error) {
	details := map[string]any{}
	if strings.TrimSpace(u.Name) == "" {
		details["name"] = "required"
	}
	if u.Role != domain.RoleDirector && u.Role != domain.RoleAdmin {
		details["role"] = "unknown role"
	}
	if u.Role == domain.RoleDirector && u.ChoirID == "" {
		details["choirId"] = "required for directors"
	}
	if len(details) > 0 {
		return domain.User{}, validation("invalid user", details)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u.Name = domain.NormalizeHumanName(u.Name)
	if u.ID == "" {
		u.ID = domain.UserID(s.newID())
		s.users = append(s.users, u)
	} else {
		idx := -1
		for i, existing := range s.users {
			if existing.ID == u.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return domain.User{}, notFound("USER_NOT_FOUND", "user does not exist", map[string]any{"userId": string(u.ID)})
		}
		s.users[idx] = u
	}
	if err := s.persist(ctx, keyUsers, s.users); err != nil {
		return domain.User{}, err
	}
	s.announce(ctx)
	return u, nil
}

// DeleteDirector removes a console account.
func (s *Store) DeleteDirector(ctx context.Context, id domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, u := range s.users {
		if u.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return notFound("USER_NOT_FOUND", "user does not exist", map[string]any{"userId": string(id)})
	}
	s.users = append(s.users[:idx], s.users[idx+1:]...)
	if err := s.persist(ctx, keyUsers, s.users); err != nil {
		return err
	}
	s.announce(ctx)
	return nil
}

// SubmitRoster appends one attendance record per member of the choir, marking
// the listed members present. This is the single entry point that writes the
// denormalized record date, and the only place the recordable-days policy is
// enforced. A second submission for the same (choir, event) is rejected.
func (s *Store) SubmitRoster(ctx context.Context, choirID domain.ChoirID, eventID domain.EventID, presentIDs []domain.MemberID) ([]domain.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.choirByID(choirID); !ok {
		return nil, notFound("CHOIR_NOT_FOUND", "choir does not exist", map[string]any{"choirId": string(choirID)})
	}
	ev, ok := s.eventByID(eventID)
	if !ok {
		return nil, notFound("EVENT_NOT_FOUND", "event does not exist", map[string]any{"eventId": string(eventID)})
	}
	date, err := ev.ParseDate()
	if err != nil || !s.recordable.Allows(date) {
		return nil, &Error{
			Status:  422,
			Code:    "REPORT_DATE_NOT_RECORDABLE",
			Message: "attendance can only be recorded for recordable days",
			Details: map[string]any{"eventId": string(eventID), "date": ev.Date},
		}
	}

	roster := make([]domain.Member, 0)
	rosterIDs := make(map[domain.MemberID]bool)
	for _, m := range s.members {
		if m.ChoirID == choirID {
			roster = append(roster, m)
			rosterIDs[m.ID] = true
		}
	}
	if len(roster) == 0 {
		return nil, validation("choir has no enrolled members", map[string]any{"choirId": string(choirID)})
	}

	for _, r := range s.records {
		if r.EventID == eventID && rosterIDs[r.MemberID] {
			return nil, &Error{
				Status:  409,
				Code:    "REPORT_ALREADY_SUBMITTED",
				Message: "attendance for this choir and event was already submitted",
				Details: map[string]any{"choirId": string(choirID), "eventId": string(eventID)},
			}
		}
	}

	present := make(map[domain.MemberID]bool, len(presentIDs))
	for _, id := range presentIDs {
		present[id] = true
	}

	added := make([]domain.AttendanceRecord, 0, len(roster))
	for _, m := range roster {
		added = append(added, domain.AttendanceRecord{
			ID:       domain.RecordID(s.newID()),
			EventID:  eventID,
			MemberID: m.ID,
			Present:  present[m.ID],
			Date:     ev.Date,
		})
	}
	s.records = append(s.records, added...)
	if err := s.persist(ctx, keyReports, s.records); err != nil {
		return nil, err
	}
	s.announce(ctx)
	return added, nil
}
