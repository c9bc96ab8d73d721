package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	memblobstore "github.com/umbral-esperanza/choir-console-api/internal/adapters/memory/blobstore"
	memidempotency "github.com/umbral-esperanza/choir-console-api/internal/adapters/memory/idempotency"
	"github.com/umbral-esperanza/choir-console-api/internal/app/session"
	"github.com/umbral-esperanza/choir-console-api/internal/app/state"
	"github.com/umbral-esperanza/choir-console-api/internal/domain"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestRouter(t *testing.T) (http.Handler, *state.Store) {
	t.Helper()

	st := state.NewStore(state.Options{
		Blobs:       memblobstore.NewStore(),
		Clock:       fixedClock{t: time.Unix(1770000000, 0).UTC()},
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Recordable:  domain.WeekendOnly(),
		SeasonStart: time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		SeasonEnd:   time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC),
	})
	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	gate := session.NewGate("Admin", "Dr")
	api := NewServer(st, gate, memidempotency.NewStore(), fixedClock{t: time.Unix(1770000000, 0).UTC()})
	return NewRouter(api, gate, st), st
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("X-Identity-Token", token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t)
	rr := doJSON(t, h, http.MethodGet, "/healthz", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestLoginFlow(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t)

	rr := doJSON(t, h, http.MethodPost, "/login", "", map[string]string{"token": "Admin"})
	if rr.Code != http.StatusOK {
		t.Fatalf("admin login status = %d body=%s", rr.Code, rr.Body.String())
	}
	var resp struct {
		User domain.User `json:"user"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.User.Role != domain.RoleAdmin {
		t.Fatalf("user = %+v", resp.User)
	}

	rr = doJSON(t, h, http.MethodPost, "/login", "", map[string]string{"token": "garbage"})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad login status = %d", rr.Code)
	}
	var er errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if er.Error.Code != "UNKNOWN_IDENTITY" {
		t.Fatalf("code = %q", er.Error.Code)
	}
}

func TestRequestsRequireIdentity(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t)
	rr := doJSON(t, h, http.MethodGet, "/members", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestMemberLifecycleAndScope(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t)

	// Admin enrolls a member into choir 1.
	rr := doJSON(t, h, http.MethodPost, "/members", "Admin", map[string]any{
		"firstName": "Ana",
		"lastName":  "Luna",
		"email":     "ana@example.com",
		"choirId":   "1",
		"voicePart": "SOPRANO",
		"gender":    "FEMALE",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rr.Code, rr.Body.String())
	}
	var created struct {
		Member domain.Member `json:"member"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// The Bucerias director cannot enroll into choir 1.
	rr = doJSON(t, h, http.MethodPost, "/members", "BuceriasDr", map[string]any{
		"firstName": "Eva",
		"lastName":  "Mar",
		"choirId":   "1",
		"gender":    "FEMALE",
	})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("foreign create status = %d body=%s", rr.Code, rr.Body.String())
	}

	// Director listing only sees their own choir.
	rr = doJSON(t, h, http.MethodGet, "/members", "BuceriasDr", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	var listed struct {
		Members []domain.Member `json:"members"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed.Members) != 0 {
		t.Fatalf("bucerias roster = %+v", listed.Members)
	}

	// Foreign delete is rejected, own-scope admin delete succeeds.
	rr = doJSON(t, h, http.MethodDelete, "/members/"+string(created.Member.ID), "BuceriasDr", nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("foreign delete status = %d", rr.Code)
	}
	rr = doJSON(t, h, http.MethodDelete, "/members/"+string(created.Member.ID), "Admin", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}
}

func TestEventMutationsAreAdminOnly(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t)

	rr := doJSON(t, h, http.MethodPost, "/events", "BuceriasDr", map[string]any{
		"name": "Ensayo Extra", "date": "2026-02-07", "time": "10:00", "location": "Anexo",
	})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("director create event status = %d", rr.Code)
	}

	rr = doJSON(t, h, http.MethodPost, "/events", "Admin", map[string]any{
		"name": "Ensayo Extra", "date": "2026-02-07", "time": "10:00", "location": "Anexo",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("admin create event status = %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSubmitRosterWithIdempotencyReplay(t *testing.T) {
	t.Parallel()

	h, st := newTestRouter(t)
	ctx := context.Background()

	m, err := st.AddMember(ctx, state.AddMemberInput{
		FirstName: "Ana", LastName: "Luna", ChoirID: "2",
		VoicePart: domain.VoiceSoprano, Gender: domain.GenderFemale,
	})
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	eventID := st.Events()[0].ID

	body := map[string]any{
		"choirId":    "2",
		"eventId":    string(eventID),
		"presentIds": []string{string(m.ID)},
	}

	submit := func() *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/reports", &buf)
		req.Header.Set("X-Identity-Token", "BuceriasDr")
		req.Header.Set("Idempotency-Key", "submit-1")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	first := submit()
	if first.Code != http.StatusCreated {
		t.Fatalf("first submit status = %d body=%s", first.Code, first.Body.String())
	}

	// Same key and body replays the stored response instead of 409.
	second := submit()
	if second.Code != http.StatusCreated {
		t.Fatalf("replay status = %d body=%s", second.Code, second.Body.String())
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("replay body differs:\n%s\n%s", first.Body.String(), second.Body.String())
	}

	// A fresh key with the same payload hits the submission lock.
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest(http.MethodPost, "/reports", &buf)
	req.Header.Set("X-Identity-Token", "BuceriasDr")
	req.Header.Set("Idempotency-Key", "submit-2")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate submit status = %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestStatsEndpoints(t *testing.T) {
	t.Parallel()

	h, st := newTestRouter(t)
	ctx := context.Background()

	m, err := st.AddMember(ctx, state.AddMemberInput{
		FirstName: "Ana", LastName: "Luna", ChoirID: "1",
		VoicePart: domain.VoiceSoprano, Gender: domain.GenderFemale,
	})
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	eventID := st.Events()[0].ID
	if _, err := st.SubmitRoster(ctx, "1", eventID, []domain.MemberID{m.ID}); err != nil {
		t.Fatalf("SubmitRoster: %v", err)
	}

	rr := doJSON(t, h, http.MethodGet, "/stats/dashboard", "Admin", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", rr.Code)
	}
	var dash struct {
		GlobalRatio int `json:"globalRatio"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &dash); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dash.GlobalRatio != 100 {
		t.Fatalf("globalRatio = %d", dash.GlobalRatio)
	}

	rr = doJSON(t, h, http.MethodGet, "/stats/choirs/1", "Admin", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("choir stats status = %d", rr.Code)
	}
	rr = doJSON(t, h, http.MethodGet, "/stats/members/"+string(m.ID), "Admin", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("member stats status = %d", rr.Code)
	}
	rr = doJSON(t, h, http.MethodGet, "/stats/events/"+string(eventID), "Admin", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("event stats status = %d", rr.Code)
	}
	rr = doJSON(t, h, http.MethodGet, "/stats/weekends", "Admin", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("weekend stats status = %d", rr.Code)
	}
	rr = doJSON(t, h, http.MethodGet, "/reports/ledger", "Admin", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("ledger status = %d", rr.Code)
	}
}

func TestAggregationsEnforceScope(t *testing.T) {
	t.Parallel()

	h, st := newTestRouter(t)
	ctx := context.Background()

	m1, err := st.AddMember(ctx, state.AddMemberInput{
		FirstName: "Ana", LastName: "Luna", ChoirID: "1",
		VoicePart: domain.VoiceSoprano, Gender: domain.GenderFemale,
	})
	if err != nil {
		t.Fatalf("AddMember choir 1: %v", err)
	}
	m2, err := st.AddMember(ctx, state.AddMemberInput{
		FirstName: "Beto", LastName: "Rios", ChoirID: "2",
		VoicePart: domain.VoiceBass, Gender: domain.GenderMale,
	})
	if err != nil {
		t.Fatalf("AddMember choir 2: %v", err)
	}
	eventID := st.Events()[0].ID

	// Admin-only views reject a director outright.
	for _, path := range []string{
		"/stats/dashboard",
		"/stats/weekends",
		"/stats/events/" + string(eventID),
		"/reports/ledger",
	} {
		rr := doJSON(t, h, http.MethodGet, path, "BuceriasDr", nil)
		if rr.Code != http.StatusForbidden {
			t.Fatalf("GET %s as director: status = %d, want 403", path, rr.Code)
		}
	}

	// A director reads their own choir but not a foreign one.
	rr := doJSON(t, h, http.MethodGet, "/stats/choirs/2", "BuceriasDr", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("own choir stats status = %d", rr.Code)
	}
	rr = doJSON(t, h, http.MethodGet, "/stats/choirs/1", "BuceriasDr", nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("foreign choir stats status = %d, want 403", rr.Code)
	}

	rr = doJSON(t, h, http.MethodGet, "/stats/members/"+string(m2.ID), "BuceriasDr", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("own member summary status = %d", rr.Code)
	}
	rr = doJSON(t, h, http.MethodGet, "/stats/members/"+string(m1.ID), "BuceriasDr", nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("foreign member summary status = %d, want 403", rr.Code)
	}
}

func TestExportImportAreAdminOnly(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t)

	rr := doJSON(t, h, http.MethodGet, "/export", "BuceriasDr", nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("director export status = %d", rr.Code)
	}

	rr = doJSON(t, h, http.MethodGet, "/export", "Admin", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("admin export status = %d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); cd != `attachment; filename="umbral-backup-1770000000.json"` {
		t.Fatalf("content-disposition = %q", cd)
	}

	// Round-trip the exported document back through import.
	req := httptest.NewRequest(http.MethodPost, "/import", bytes.NewReader(rr.Body.Bytes()))
	req.Header.Set("X-Identity-Token", "Admin")
	rr2 := httptest.NewRecorder()
	h.ServeHTTP(rr2, req)
	if rr2.Code != http.StatusNoContent {
		t.Fatalf("import status = %d body=%s", rr2.Code, rr2.Body.String())
	}
}

func TestUserManagement(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t)

	rr := doJSON(t, h, http.MethodGet, "/users", "BuceriasDr", nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("director list users status = %d", rr.Code)
	}

	rr = doJSON(t, h, http.MethodPost, "/users", "Admin", map[string]any{
		"name": "Director San Jose", "role": "DIRECTOR", "choirId": "11",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create user status = %d body=%s", rr.Code, rr.Body.String())
	}
	var created struct {
		User domain.User `json:"user"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rr = doJSON(t, h, http.MethodDelete, "/users/"+string(created.User.ID), "Admin", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete user status = %d", rr.Code)
	}
}
