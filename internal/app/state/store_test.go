package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	memblobstore "github.com/umbral-esperanza/choir-console-api/internal/adapters/memory/blobstore"
	"github.com/umbral-esperanza/choir-console-api/internal/domain"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type countingAnnouncer struct{ n int }

func (a *countingAnnouncer) Announce(context.Context) { a.n++ }

type recordingMirror struct{ upserts []domain.Choir }

func (m *recordingMirror) Upsert(_ context.Context, c domain.Choir) error {
	m.upserts = append(m.upserts, c)
	return nil
}

func newTestStore(t *testing.T) (*Store, *memblobstore.Store, *countingAnnouncer, *recordingMirror) {
	t.Helper()
	blobs := memblobstore.NewStore()
	ann := &countingAnnouncer{}
	mir := &recordingMirror{}
	s := NewStore(Options{
		Blobs:       blobs,
		Announcer:   ann,
		Mirror:      mir,
		Clock:       fixedClock{t: time.Unix(1770000000, 0).UTC()},
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Recordable:  domain.WeekendOnly(),
		SeasonStart: time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		SeasonEnd:   time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC),
	})
	// Deterministic IDs for assertions.
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s, blobs, ann, mir
}

func TestFirstRunSeedsTables(t *testing.T) {
	t.Parallel()

	s, blobs, _, _ := newTestStore(t)

	if got := len(s.Choirs()); got != 11 {
		t.Fatalf("choirs = %d, want 11", got)
	}
	if got := len(s.Users()); got != 6 {
		t.Fatalf("users = %d, want 6", got)
	}
	events := s.Events()
	if len(events) == 0 {
		t.Fatal("expected seeded weekend events")
	}
	if events[0].Date != "2026-01-31" || events[0].Name != "Ensayo General Sabatino" {
		t.Fatalf("first event = %+v", events[0])
	}

	// Seed data hit the gateway.
	if _, err := blobs.Load(context.Background(), "umbral_v1_choirs"); err != nil {
		t.Fatalf("choirs not persisted: %v", err)
	}

	// A second store over the same gateway loads, not reseeds.
	s2 := NewStore(Options{
		Blobs:  blobs,
		Clock:  fixedClock{t: time.Unix(1770000000, 0).UTC()},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err := s2.Load(context.Background()); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if got := len(s2.Choirs()); got != 11 {
		t.Fatalf("second store choirs = %d", got)
	}
}

func TestAddAndDeleteMember(t *testing.T) {
	t.Parallel()

	s, _, ann, _ := newTestStore(t)
	before := ann.n

	m, err := s.AddMember(context.Background(), AddMemberInput{
		FirstName: "  Ana   María ",
		LastName:  "Luna",
		Email:     "ana@example.com",
		ChoirID:   "1",
		VoicePart: domain.VoiceSoprano,
		Gender:    domain.GenderFemale,
	})
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if m.FirstName != "Ana María" {
		t.Fatalf("name not normalized: %q", m.FirstName)
	}
	if m.ID == "" {
		t.Fatal("missing id")
	}
	if ann.n != before+1 {
		t.Fatalf("announcements = %d, want %d", ann.n, before+1)
	}

	if err := s.DeleteMember(context.Background(), m.ID); err != nil {
		t.Fatalf("DeleteMember: %v", err)
	}
	if err := s.DeleteMember(context.Background(), m.ID); err == nil {
		t.Fatal("second delete must fail")
	} else {
		var se *Error
		if !errors.As(err, &se) || se.Code != "MEMBER_NOT_FOUND" || se.Status != 404 {
			t.Fatalf("err=%v", err)
		}
	}
}

func TestAddMemberValidation(t *testing.T) {
	t.Parallel()

	s, _, _, _ := newTestStore(t)

	_, err := s.AddMember(context.Background(), AddMemberInput{
		FirstName: "",
		LastName:  "Luna",
		ChoirID:   "1",
		Gender:    "OTHER",
	})
	var se *Error
	if !errors.As(err, &se) || se.Code != "VALIDATION_ERROR" || se.Status != 422 {
		t.Fatalf("err=%v", err)
	}
	if se.Details["firstName"] == nil || se.Details["gender"] == nil {
		t.Fatalf("details = %v", se.Details)
	}

	_, err = s.AddMember(context.Background(), AddMemberInput{
		FirstName: "Ana",
		LastName:  "Luna",
		ChoirID:   "nope",
		Gender:    domain.GenderFemale,
	})
	if !errors.As(err, &se) || se.Code != "CHOIR_NOT_FOUND" {
		t.Fatalf("err=%v", err)
	}
}

func TestSubmitRoster(t *testing.T) {
	t.Parallel()

	s, _, _, _ := newTestStore(t)
	ctx := context.Background()

	var members []domain.Member
	for i := 0; i < 4; i++ {
		m, err := s.AddMember(ctx, AddMemberInput{
			FirstName: "Miembro",
			LastName:  fmt.Sprintf("N%d", i),
			ChoirID:   "1",
			VoicePart: domain.VoiceTenor,
			Gender:    domain.GenderMale,
		})
		if err != nil {
			t.Fatalf("AddMember: %v", err)
		}
		members = append(members, m)
	}

	eventID := s.Events()[0].ID
	present := []domain.MemberID{members[0].ID, members[1].ID, members[2].ID}

	added, err := s.SubmitRoster(ctx, "1", eventID, present)
	if err != nil {
		t.Fatalf("SubmitRoster: %v", err)
	}
	if len(added) != 4 {
		t.Fatalf("records = %d, want one per roster member", len(added))
	}
	for _, r := range added {
		if r.Date != "2026-01-31" {
			t.Fatalf("denormalized date = %q", r.Date)
		}
	}
	var presentCount int
	for _, r := range added {
		if r.Present {
			presentCount++
		}
	}
	if presentCount != 3 {
		t.Fatalf("present = %d, want 3", presentCount)
	}

	// Resubmission for the same choir and event is locked out.
	_, err = s.SubmitRoster(ctx, "1", eventID, present)
	var se *Error
	if !errors.As(err, &se) || se.Code != "REPORT_ALREADY_SUBMITTED" || se.Status != 409 {
		t.Fatalf("err=%v", err)
	}
}

func TestSubmitRosterRejectsWeekdayEvent(t *testing.T) {
	t.Parallel()

	s, _, _, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.AddMember(ctx, AddMemberInput{
		FirstName: "Ana", LastName: "Luna", ChoirID: "1",
		VoicePart: domain.VoiceSoprano, Gender: domain.GenderFemale,
	}); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	ev, err := s.SetEvent(ctx, domain.Event{
		Name: "Ensayo Extraordinario",
		Date: "2026-02-04", // Wednesday
		Time: "19:00",
	})
	if err != nil {
		t.Fatalf("SetEvent: %v", err)
	}

	_, err = s.SubmitRoster(ctx, "1", ev.ID, nil)
	var se *Error
	if !errors.As(err, &se) || se.Code != "REPORT_DATE_NOT_RECORDABLE" || se.Status != 422 {
		t.Fatalf("err=%v", err)
	}
}

func TestUpdateChoirPhotoMirrors(t *testing.T) {
	t.Parallel()

	s, _, _, mir := newTestStore(t)

	c, err := s.UpdateChoirPhoto(context.Background(), "2", "https://cdn.example.com/bucerias.jpg")
	if err != nil {
		t.Fatalf("UpdateChoirPhoto: %v", err)
	}
	if c.PhotoURL == "" {
		t.Fatal("photo not set")
	}
	if len(mir.upserts) != 1 || mir.upserts[0].ID != "2" {
		t.Fatalf("mirror upserts = %+v", mir.upserts)
	}

	if _, err := s.UpdateChoirPhoto(context.Background(), "99", "x"); err == nil {
		t.Fatal("unknown choir must fail")
	}
}

func TestPutAndDeleteDirector(t *testing.T) {
	t.Parallel()

	s, _, _, _ := newTestStore(t)
	ctx := context.Background()

	u, err := s.PutDirector(ctx, domain.User{
		Name:    "Nuevo Director",
		Email:   "nuevo@director.com",
		Role:    domain.RoleDirector,
		ChoirID: "11",
	})
	if err != nil {
		t.Fatalf("PutDirector: %v", err)
	}
	if u.ID == "" {
		t.Fatal("missing id")
	}

	// Duplicate directors are tolerated; resolution takes the newest.
	u2, err := s.PutDirector(ctx, domain.User{
		Name:    "Director Más Nuevo",
		Role:    domain.RoleDirector,
		ChoirID: "11",
	})
	if err != nil {
		t.Fatalf("PutDirector duplicate: %v", err)
	}
	if dir, ok := domain.DirectorForChoir(s.Users(), "11"); !ok || dir.ID != u2.ID {
		t.Fatalf("resolved director = %+v, want %s", dir, u2.ID)
	}

	if err := s.DeleteDirector(ctx, u.ID); err != nil {
		t.Fatalf("DeleteDirector: %v", err)
	}
	if err := s.DeleteDirector(ctx, u.ID); err == nil {
		t.Fatal("second delete must fail")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	t.Parallel()

	s, _, _, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.AddMember(ctx, AddMemberInput{
		FirstName: "Ana", LastName: "Luna", ChoirID: "1",
		VoicePart: domain.VoiceSoprano, Gender: domain.GenderFemale,
	}); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	name, data, err := s.ExportAll(ctx)
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if name != "umbral-backup-1770000000.json" {
		t.Fatalf("filename = %q", name)
	}

	// A fresh store imports the document and matches.
	s2, _, _, _ := newTestStore(t)
	if err := s2.ImportAll(ctx, data); err != nil {
		t.Fatalf("ImportAll: %v", err)
	}
	if len(s2.Members()) != 1 || s2.Members()[0].FirstName != "Ana" {
		t.Fatalf("members = %+v", s2.Members())
	}
	if len(s2.Choirs()) != 11 {
		t.Fatalf("choirs = %d", len(s2.Choirs()))
	}
}

func TestImportPartialAndNull(t *testing.T) {
	t.Parallel()

	s, _, _, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.AddMember(ctx, AddMemberInput{
		FirstName: "Ana", LastName: "Luna", ChoirID: "1",
		VoicePart: domain.VoiceSoprano, Gender: domain.GenderFemale,
	}); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	// Only the users key: members stay untouched.
	if err := s.ImportAll(ctx, []byte(`{"users":[{"id":"x1","name":"Solo","role":"DIRECTOR","choirId":"1"}]}`)); err != nil {
		t.Fatalf("ImportAll: %v", err)
	}
	if len(s.Users()) != 1 || s.Users()[0].ID != "x1" {
		t.Fatalf("users = %+v", s.Users())
	}
	if len(s.Members()) != 1 {
		t.Fatalf("members replaced: %+v", s.Members())
	}

	// Explicit null clears the table.
	if err := s.ImportAll(ctx, []byte(`{"members":null}`)); err != nil {
		t.Fatalf("ImportAll null: %v", err)
	}
	if len(s.Members()) != 0 {
		t.Fatalf("members = %+v", s.Members())
	}
}

func TestImportPushesChoirsToMirror(t *testing.T) {
	t.Parallel()

	s, _, _, mir := newTestStore(t)
	ctx := context.Background()
	mir.upserts = nil

	doc := `{"choirs":[
		{"id":"1","name":"Bicentenario","initials":"BI","status":"ACTIVE","photoUrl":"https://cdn.example/b.jpg"},
		{"id":"2","name":"Bucerias","initials":"BU","status":"ACTIVE"}
	]}`
	if err := s.ImportAll(ctx, []byte(doc)); err != nil {
		t.Fatalf("ImportAll: %v", err)
	}
	if len(mir.upserts) != 2 {
		t.Fatalf("mirror upserts = %d, want 2", len(mir.upserts))
	}
	if mir.upserts[0].ID != "1" || mir.upserts[0].PhotoURL != "https://cdn.example/b.jpg" {
		t.Fatalf("first upsert = %+v", mir.upserts[0])
	}

	// A document without the choirs key leaves the mirror alone.
	mir.upserts = nil
	if err := s.ImportAll(ctx, []byte(`{"members":null}`)); err != nil {
		t.Fatalf("ImportAll: %v", err)
	}
	if len(mir.upserts) != 0 {
		t.Fatalf("mirror upserts = %d, want 0", len(mir.upserts))
	}
}

func TestImportRejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	s, _, _, _ := newTestStore(t)
	usersBefore := len(s.Users())

	err := s.ImportAll(context.Background(), []byte(`{"users": [`))
	var se *Error
	if !errors.As(err, &se) || se.Code != "VALIDATION_ERROR" {
		t.Fatalf("err=%v", err)
	}
	if len(s.Users()) != usersBefore {
		t.Fatal("partial import effect")
	}
}

func TestCapacityExceededKeepsStateAuthoritative(t *testing.T) {
	t.Parallel()

	s, blobs, _, _ := newTestStore(t)
	blobs.CapacityBytes = 1

	m, err := s.AddMember(context.Background(), AddMemberInput{
		FirstName: "Ana", LastName: "Luna", ChoirID: "1",
		VoicePart: domain.VoiceSoprano, Gender: domain.GenderFemale,
	})
	if err != nil {
		t.Fatalf("AddMember under capacity pressure: %v", err)
	}
	if _, err := s.MemberByID(m.ID); err != nil {
		t.Fatalf("member missing from memory: %v", err)
	}
}

func TestLoginEnrollsSynthesizedDirector(t *testing.T) {
	t.Parallel()

	s, blobs, _, _ := newTestStore(t)
	ctx := context.Background()

	usersBefore := len(s.Users())
	u, err := s.Login(ctx, func(choirs []domain.Choir, users []domain.User) (domain.User, error) {
		return domain.User{
			Name:    "Director San Jose",
			Role:    domain.RoleDirector,
			ChoirID: "11",
		}, nil
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if u.ID == "" {
		t.Fatal("director not assigned an id")
	}
	if len(s.Users()) != usersBefore+1 {
		t.Fatalf("users = %d, want %d", len(s.Users()), usersBefore+1)
	}

	// Session persisted under its key.
	if _, err := blobs.Load(ctx, "umbral_v1_session"); err != nil {
		t.Fatalf("session not persisted: %v", err)
	}
	got, ok, err := s.Session(ctx)
	if err != nil || !ok || got.ID != u.ID {
		t.Fatalf("Session() = %+v ok=%v err=%v", got, ok, err)
	}

	if err := s.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, ok, _ := s.Session(ctx); ok {
		t.Fatal("session survived logout")
	}
}

func TestReloadPicksUpForeignWrites(t *testing.T) {
	t.Parallel()

	s, blobs, _, _ := newTestStore(t)
	ctx := context.Background()

	// Another instance replaced the member table directly in the store.
	if err := blobs.Save(ctx, "umbral_v1_members", []byte(`[{"id":"m-x","firstName":"Eva","lastName":"Mar","choirId":"1","voicePart":"CONTRALTO","gender":"FEMALE"}]`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	ms := s.Members()
	if len(ms) != 1 || ms[0].ID != "m-x" {
		t.Fatalf("members = %+v", ms)
	}
}
