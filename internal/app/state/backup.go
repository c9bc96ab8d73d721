package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oapi-codegen/nullable"

	"github.com/umbral-esperanza/choir-console-api/internal/domain"
)

// backupDocument is the export shape: all five tables in one JSON object.
type backupDocument struct {
	Users   []domain.User             `json:"users"`
	Choirs  []domain.Choir            `json:"choirs"`
	Members []domain.Member           `json:"members"`
	Reports []domain.AttendanceRecord `json:"reports"`
	Events  []domain.Event            `json:"events"`
}

// importDocument reads each table as a tri-state field: absent leaves the
// table untouched, null clears it, a value replaces it wholesale.
type importDocument struct {
	Users   nullable.Nullable[[]domain.User]             `json:"users,omitempty"`
	Choirs  nullable.Nullable[[]domain.Choir]            `json:"choirs,omitempty"`
	Members nullable.Nullable[[]domain.Member]           `json:"members,omitempty"`
	Reports nullable.Nullable[[]domain.AttendanceRecord] `json:"reports,omitempty"`
	Events  nullable.Nullable[[]domain.Event]            `json:"events,omitempty"`
}

// ExportAll serializes every table into one document and names the download
// with the clock's current unix seconds.
func (s *Store) ExportAll(ctx context.Context) (filename string, data []byte, err error) {
	_ = ctx
	s.mu.RLock()
	doc := backupDocument{
		Users:   append([]domain.User{}, s.users...),
		Choirs:  append([]domain.Choir{}, s.choirs...),
		Members: append([]domain.Member{}, s.members...),
		Reports: append([]domain.AttendanceRecord{}, s.records...),
		Events:  append([]domain.Event{}, s.events...),
	}
	s.mu.RUnlock()

	data, err = json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", nil, err
	}
	filename = fmt.Sprintf("umbral-backup-%d.json", s.clk.Now().Unix())
	return filename, data, nil
}

// ImportAll replaces tables named in the document. Malformed JSON rejects
// the whole import with no partial effect; each replaced table is persisted
// and a single announcement covers the batch.
func (s *Store) ImportAll(ctx context.Context, data []byte) error {
	var doc importDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return validation("malformed backup document", map[string]any{"json": err.Error()})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	if users, ok, err := resolveTable(doc.Users); err != nil {
		return err
	} else if ok {
		s.users = users
		if err := s.persist(ctx, keyUsers, s.users); err != nil {
			return err
		}
		changed = true
	}
	if choirs, ok, err := resolveTable(doc.Choirs); err != nil {
		return err
	} else if ok {
		s.choirs = choirs
		if err := s.persist(ctx, keyChoirs, s.choirs); err != nil {
			return err
		}
		for _, c := range s.choirs {
			s.mirrorChoir(ctx, c)
		}
		changed = true
	}
	if members, ok, err := resolveTable(doc.Members); err != nil {
		return err
	} else if ok {
		s.members = members
		if err := s.persist(ctx, keyMembers, s.members); err != nil {
			return err
		}
		changed = true
	}
	if records, ok, err := resolveTable(doc.Reports); err != nil {
		return err
	} else if ok {
		s.records = records
		if err := s.persist(ctx, keyReports, s.records); err != nil {
			return err
		}
		changed = true
	}
	if events, ok, err := resolveTable(doc.Events); err != nil {
		return err
	} else if ok {
		s.events = events
		if err := s.persist(ctx, keyEvents, s.events); err != nil {
			return err
		}
		changed = true
	}

	if changed {
		s.announce(ctx)
	}
	return nil
}

// resolveTable maps the tri-state onto (replacement, replace?, err):
// unspecified keeps the current table, explicit null clears it.
func resolveTable[T any](n nullable.Nullable[[]T]) ([]T, bool, error) {
	if !n.IsSpecified() {
		return nil, false, nil
	}
	if n.IsNull() {
		return []T{}, true, nil
	}
	v, err := n.Get()
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}
