package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"trustbond-dashboard-ui/internal/connectors/trustbond"
	"trustbond-dashboard-ui/internal/session"
)

func newTestSessions(t *testing.T) *session.Store {
	t.Helper()
	store, err := session.NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"), time.Hour)
	if err != nil {
		t.Fatalf("failed to open session store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestBackend(t *testing.T, handler http.HandlerFunc) *trustbond.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return trustbond.NewClient(srv.URL, 5*time.Second)
}

func tokenWithClaims(t *testing.T, role, sub string) string {
	t.Helper()
	claims := jwt.MapClaims{}
	if role != "" {
		claims["role"] = role
	}
	if sub != "" {
		claims["sub"] = sub
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func sessionCookie(t *testing.T, sessions *session.Store, token string) *http.Cookie {
	t.Helper()
	id, err := sessions.Issue(context.Background(), token)
	if err != nil {
		t.Fatalf("failed to issue session: %v", err)
	}
	return &http.Cookie{Name: sessionCookieName, Value: id}
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return payload
}

func TestSessionLoginHandler_IssuesCookie(t *testing.T) {
	sessions := newTestSessions(t)
	token := tokenWithClaims(t, "admin", "1")
	api := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" {
			t.Fatalf("unexpected backend path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": token, "token_type": "bearer"})
	})

	h := sessionLoginHandler(api, sessions)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/login",
		strings.NewReader(`{"email":"admin@example.com","password":"pw"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatalf("expected %s cookie", sessionCookieName)
	}
	if !cookie.HttpOnly {
		t.Fatalf("expected HttpOnly cookie")
	}

	stored, err := sessions.Read(context.Background(), cookie.Value)
	if err != nil {
		t.Fatalf("session not stored: %v", err)
	}
	if stored != token {
		t.Fatalf("stored token mismatch")
	}

	payload := decodeBody(t, rr)
	data := payload["data"].(map[string]any)
	if data["role"] != "admin" {
		t.Fatalf("expected role admin, got %v", data["role"])
	}
}

func TestSessionLoginHandler_BackendRejection(t *testing.T) {
	sessions := newTestSessions(t)
	api := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid credentials"})
	})

	h := sessionLoginHandler(api, sessions)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/login",
		strings.NewReader(`{"email":"admin@example.com","password":"bad"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
	payload := decodeBody(t, rr)
	if payload["error"] != "Invalid credentials" {
		t.Fatalf("expected backend detail, got %v", payload["error"])
	}
}

func TestSessionLoginHandler_MethodNotAllowed(t *testing.T) {
	h := sessionLoginHandler(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session/login", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rr.Code)
	}
}

func TestSessionLogoutHandler_RevokesSession(t *testing.T) {
	sessions := newTestSessions(t)
	cookie := sessionCookie(t, sessions, tokenWithClaims(t, "admin", "1"))

	h := sessionLogoutHandler(sessions)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/logout", nil)
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if _, err := sessions.Read(context.Background(), cookie.Value); err != session.ErrNoSession {
		t.Fatalf("expected session revoked, got %v", err)
	}
}

func TestReportListHandler_RequiresSession(t *testing.T) {
	sessions := newTestSessions(t)
	h := reportListHandler(10, nil, sessions)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}

func TestReportListHandler_ProxiesPageAndFilters(t *testing.T) {
	sessions := newTestSessions(t)
	token := tokenWithClaims(t, "admin", "1")
	api := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer "+token {
			t.Fatalf("unexpected auth header %q", got)
		}
		if got := r.URL.Query().Get("rule_status"); got != "flagged" {
			t.Fatalf("unexpected rule_status %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"reports":  []map[string]any{{"report_id": "abc-1"}},
			"total":    1,
			"page":     1,
			"per_page": 10,
		})
	})

	h := reportListHandler(10, api, sessions)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports?rule_status=flagged", nil)
	req.AddCookie(sessionCookie(t, sessions, token))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	payload := decodeBody(t, rr)
	meta := payload["meta"].(map[string]any)
	if meta["total"] != float64(1) {
		t.Fatalf("expected total 1, got %v", meta["total"])
	}
}

func TestReportListHandler_InvalidFilter(t *testing.T) {
	sessions := newTestSessions(t)
	h := reportListHandler(10, nil, sessions)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports?is_flagged=maybe", nil)
	req.AddCookie(sessionCookie(t, sessions, tokenWithClaims(t, "admin", "1")))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestReportDetailHandler_InvalidPath(t *testing.T) {
	sessions := newTestSessions(t)
	h := reportDetailHandler(nil, sessions)

	for _, path := range []string{"/api/v1/reports/", "/api/v1/reports/a/b"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.AddCookie(sessionCookie(t, sessions, tokenWithClaims(t, "admin", "1")))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Fatalf("path %s: expected status %d, got %d", path, http.StatusNotFound, rr.Code)
		}
	}
}

func TestReportDetailHandler_BackendNotFound(t *testing.T) {
	sessions := newTestSessions(t)
	api := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Report not found"})
	})

	h := reportDetailHandler(api, sessions)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/missing-id", nil)
	req.AddCookie(sessionCookie(t, sessions, tokenWithClaims(t, "admin", "1")))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestDashboardSummaryHandler_AggregatesBatch(t *testing.T) {
	sessions := newTestSessions(t)
	api := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/reports":
			total := 12
			if r.URL.Query().Get("is_flagged") == "true" {
				total = 3
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"reports":  []map[string]any{{"report_id": "abc-1"}},
				"total":    total,
				"page":     1,
				"per_page": 10,
			})
		case "/report-assignments":
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"assignment_id": "as-1", "police_user_id": 42, "status": "pending", "priority": "high"},
			})
		case "/hotspots":
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"hotspot_id": 1, "center_lat": 1.5, "center_long": 2.5, "incident_count": 4, "risk_level": "high"},
			})
		default:
			t.Fatalf("unexpected backend path %s", r.URL.Path)
		}
	})

	h := dashboardSummaryHandler(10, api, sessions)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/summary", nil)
	req.AddCookie(sessionCookie(t, sessions, tokenWithClaims(t, "admin", "1")))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	payload := decodeBody(t, rr)
	data := payload["data"].(map[string]any)
	if data["total_reports"] != float64(12) {
		t.Fatalf("expected total_reports 12, got %v", data["total_reports"])
	}
	if data["flagged_reports"] != float64(3) {
		t.Fatalf("expected flagged_reports 3, got %v", data["flagged_reports"])
	}
	if len(data["pending_assignments"].([]any)) != 1 {
		t.Fatalf("expected one pending assignment")
	}
	if len(data["hotspots"].([]any)) != 1 {
		t.Fatalf("expected one hotspot")
	}
}

func TestDashboardSummaryHandler_FailsClosedOnBackendError(t *testing.T) {
	sessions := newTestSessions(t)
	api := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/report-assignments", "/hotspots":
			_ = json.NewEncoder(w).Encode([]any{})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	h := dashboardSummaryHandler(10, api, sessions)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/summary", nil)
	req.AddCookie(sessionCookie(t, sessions, tokenWithClaims(t, "admin", "1")))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d", http.StatusBadGateway, rr.Code)
	}
	payload := decodeBody(t, rr)
	if payload["error"] == nil {
		t.Fatalf("expected error field in response")
	}
}

func TestOfficerAssignmentsHandler_RequiresOfficerRole(t *testing.T) {
	sessions := newTestSessions(t)
	h := officerAssignmentsHandler(nil, sessions)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/officer/assignments", nil)
	req.AddCookie(sessionCookie(t, sessions, tokenWithClaims(t, "admin", "1")))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, rr.Code)
	}
}

func TestOfficerAssignmentsHandler_ScopedFetch(t *testing.T) {
	sessions := newTestSessions(t)
	api := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("police_user_id"); got != "42" {
			t.Fatalf("unexpected police_user_id %q", got)
		}
		if got := r.URL.Query().Get("status_filter"); got != "pending" {
			t.Fatalf("unexpected status_filter %q", got)
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"assignment_id": "as-1", "report_id": "abc-1", "police_user_id": 42, "status": "pending", "priority": "high"},
		})
	})

	h := officerAssignmentsHandler(api, sessions)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/officer/assignments", nil)
	req.AddCookie(sessionCookie(t, sessions, tokenWithClaims(t, "officer", "42")))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	payload := decodeBody(t, rr)
	if len(payload["data"].([]any)) != 1 {
		t.Fatalf("expected one assignment")
	}
}

func TestOfficerAssignmentsHandler_NoSession(t *testing.T) {
	sessions := newTestSessions(t)
	h := officerAssignmentsHandler(nil, sessions)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/officer/assignments", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}

func TestBootstrapExistsHandler(t *testing.T) {
	api := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]bool{"exists": false})
	})

	h := bootstrapExistsHandler(api)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bootstrap/exists", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	payload := decodeBody(t, rr)
	data := payload["data"].(map[string]any)
	if data["exists"] != false {
		t.Fatalf("expected exists=false, got %v", data["exists"])
	}
}

func TestBootstrapHandler_CreatesAdminAndSignsIn(t *testing.T) {
	sessions := newTestSessions(t)
	token := tokenWithClaims(t, "admin", "1")
	api := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/police-users/bootstrap":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["role"] != "admin" {
				t.Fatalf("expected role admin, got %v", body["role"])
			}
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{"police_user_id": 1})
		case "/auth/login":
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": token, "token_type": "bearer"})
		default:
			t.Fatalf("unexpected backend path %s", r.URL.Path)
		}
	})

	h := bootstrapHandler(api, sessions)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bootstrap",
		strings.NewReader(`{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","password":"pw"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatalf("expected %s cookie after bootstrap", sessionCookieName)
	}
}

func TestBootstrapHandler_ConflictPropagated(t *testing.T) {
	sessions := newTestSessions(t)
	api := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Users already exist"})
	})

	h := bootstrapHandler(api, sessions)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bootstrap",
		strings.NewReader(`{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","password":"pw"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, rr.Code)
	}
	payload := decodeBody(t, rr)
	if payload["error"] != "Users already exist" {
		t.Fatalf("expected conflict detail, got %v", payload["error"])
	}
}
