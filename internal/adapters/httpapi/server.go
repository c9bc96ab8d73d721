package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/umbral-esperanza/choir-console-api/internal/app/reports"
	"github.com/umbral-esperanza/choir-console-api/internal/app/session"
	"github.com/umbral-esperanza/choir-console-api/internal/app/state"
	"github.com/umbral-esperanza/choir-console-api/internal/domain"
	clockport "github.com/umbral-esperanza/choir-console-api/internal/ports/out/clock"
	idempotencyport "github.com/umbral-esperanza/choir-console-api/internal/ports/out/idempotency"
)

// Server is the HTTP adapter over the application layer. Handlers decode,
// scope-check, delegate, and encode; no domain logic lives here.
type Server struct {
	State *state.Store
	Gate  *session.Gate
	Idem  idempotencyport.Store
	Clock clockport.Clock
}

func NewServer(st *state.Store, gate *session.Gate, idem idempotencyport.Store, clk clockport.Clock) *Server {
	return &Server{State: st, Gate: gate, Idem: idem, Clock: clk}
}

func (s *Server) nowUTC() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return time.Now().UTC()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) scope(r *http.Request) (session.Scope, bool) {
	u, ok := IdentityFromContext(r.Context())
	if !ok {
		return session.Scope{}, false
	}
	return session.ScopeFor(u), true
}

// --- session ---

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed request body", nil)
		return
	}
	u, err := s.State.Login(r.Context(), func(choirs []domain.Choir, users []domain.User) (domain.User, error) {
		return s.Gate.ResolveIdentity(req.Token, choirs, users)
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.State.Logout(r.Context()); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- members ---

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return
	}

	members := s.State.Members()
	if choirID := r.URL.Query().Get("choirId"); choirID != "" {
		narrowed, err := scope.Narrow(domain.ChoirID(choirID))
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		scope = narrowed
	}
	if scope.ChoirID() != "" {
		filtered := members[:0:0]
		for _, m := range members {
			if m.ChoirID == scope.ChoirID() {
				filtered = append(filtered, m)
			}
		}
		members = filtered
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return
	}
	var req createMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed request body", nil)
		return
	}
	if _, err := scope.Narrow(domain.ChoirID(req.ChoirID)); err != nil {
		writeAppError(w, r, err)
		return
	}

	in := state.AddMemberInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		ChoirID:   domain.ChoirID(req.ChoirID),
		VoicePart: domain.VoicePart(req.VoicePart),
		Gender:    domain.Gender(req.Gender),
	}
	if req.Email != nil {
		in.Email = string(*req.Email)
	}

	m, err := s.State.AddMember(r.Context(), in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"member": m})
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return
	}
	id := domain.MemberID(chi.URLParam(r, "id"))
	m, err := s.State.MemberByID(id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if _, err := scope.Narrow(m.ChoirID); err != nil {
		writeAppError(w, r, err)
		return
	}
	if err := s.State.DeleteMember(r.Context(), id); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- choirs ---

func (s *Server) handleListChoirs(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"choirs": s.State.Choirs()})
}

func (s *Server) handleUpdateChoirPhoto(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return
	}
	id := domain.ChoirID(chi.URLParam(r, "id"))
	if _, err := scope.Narrow(id); err != nil {
		writeAppError(w, r, err)
		return
	}
	var req updatePhotoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed request body", nil)
		return
	}
	c, err := s.State.UpdateChoirPhoto(r.Context(), id, req.PhotoURL)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"choir": c})
}

// --- events ---

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"events": s.State.Events()})
}

func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	scope, ok := s.scope(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return false
	}
	if !scope.IsAdmin() {
		writeError(w, r, http.StatusForbidden, "FORBIDDEN_SCOPE", "admin authority required", nil)
		return false
	}
	return true
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed request body", nil)
		return
	}
	ev, err := s.State.SetEvent(r.Context(), req.toDomain(""))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"event": ev})
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed request body", nil)
		return
	}
	ev, err := s.State.SetEvent(r.Context(), req.toDomain(domain.EventID(chi.URLParam(r, "id"))))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"event": ev})
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	if err := s.State.DeleteEvent(r.Context(), domain.EventID(chi.URLParam(r, "id"))); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- reports ---

func (s *Server) handleSubmitRoster(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return
	}
	u, _ := IdentityFromContext(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unreadable request body", nil)
		return
	}
	var req submitRosterRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed request body", nil)
		return
	}
	if _, err := scope.Narrow(domain.ChoirID(req.ChoirID)); err != nil {
		writeAppError(w, r, err)
		return
	}

	// Idempotency-Key replay covers client retries of the same submission.
	var fp idempotencyport.Fingerprint
	if key := r.Header.Get("Idempotency-Key"); key != "" {
		sum := sha256.Sum256(body)
		fp = idempotencyport.Fingerprint{
			Key:      idempotencyport.Key(key),
			Identity: identityString(u),
			Method:   r.Method,
			Route:    "/reports",
			BodyHash: hex.EncodeToString(sum[:]),
		}
		if rec, found, err := s.Idem.Get(r.Context(), fp); err == nil && found {
			w.Header().Set("Content-Type", rec.ContentType)
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.Body)
			return
		}
	}

	present := make([]domain.MemberID, 0, len(req.PresentIDs))
	for _, id := range req.PresentIDs {
		present = append(present, domain.MemberID(id))
	}
	added, err := s.State.SubmitRoster(r.Context(), domain.ChoirID(req.ChoirID), domain.EventID(req.EventID), present)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	respBody, _ := json.Marshal(map[string]any{"records": added})
	if fp.Key != "" {
		_ = s.Idem.Put(r.Context(), fp, idempotencyport.Record{
			StatusCode:  http.StatusCreated,
			ContentType: "application/json",
			Body:        respBody,
			CreatedAt:   s.nowUTC(),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(respBody)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	rows := reports.Ledger(s.State.Members(), s.State.Choirs(), s.State.Events(), s.State.Users(), s.State.Records())
	s.writeJSON(w, http.StatusOK, map[string]any{"ledger": rows})
}

// --- aggregations ---

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	choirs := s.State.Choirs()
	members := s.State.Members()
	records := s.State.Records()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"globalRatio":  reports.GlobalAttendanceRatio(records),
		"ranking":      reports.ChoirRanking(choirs, members, records),
		"reportStatus": reports.ChoirReportStatus(choirs, members, records),
	})
}

func (s *Server) handleChoirStats(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return
	}
	id := domain.ChoirID(chi.URLParam(r, "id"))
	if _, err := scope.Narrow(id); err != nil {
		writeAppError(w, r, err)
		return
	}
	ratio := reports.ChoirAttendanceRatio(id, s.State.Members(), s.State.Records())
	s.writeJSON(w, http.StatusOK, map[string]any{"choirId": id, "ratio": ratio})
}

func (s *Server) handleEventStats(w http.ResponseWriter, r *http.Request) {
	// The breakdown buckets by choir across all choirs.
	if !s.requireAdmin(w, r) {
		return
	}
	id := domain.EventID(chi.URLParam(r, "id"))
	b := reports.EventBreakdown(id, s.State.Members(), s.State.Choirs(), s.State.Records())
	s.writeJSON(w, http.StatusOK, map[string]any{"breakdown": b})
}

func (s *Server) handleMemberStats(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.scope(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return
	}
	id := domain.MemberID(chi.URLParam(r, "id"))
	m, err := s.State.MemberByID(id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if _, err := scope.Narrow(m.ChoirID); err != nil {
		writeAppError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"summary": reports.MemberSummary(id, s.State.Records())})
}

func (s *Server) handleWeekendStats(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	start, end := s.State.Season()
	series := reports.WeekendSeries(start, end, s.State.Records())
	s.writeJSON(w, http.StatusOK, map[string]any{"series": series})
}

// --- backup ---

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	name, data, err := s.State.ExportAll(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unreadable request body", nil)
		return
	}
	if err := s.State.ImportAll(r.Context(), data); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- users ---

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"users": s.State.Users()})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed request body", nil)
		return
	}
	u, err := s.State.PutDirector(r.Context(), req.toDomain(""))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"user": u})
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed request body", nil)
		return
	}
	u, err := s.State.PutDirector(r.Context(), req.toDomain(domain.UserID(chi.URLParam(r, "id"))))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	if err := s.State.DeleteDirector(r.Context(), domain.UserID(chi.URLParam(r, "id"))); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func identityString(u domain.User) string {
	if u.Role == domain.RoleAdmin {
		return "admin"
	}
	return "director:" + string(u.ChoirID)
}
