package http

import (
	"context"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"trustbond-dashboard-ui/internal/connectors/trustbond"
	"trustbond-dashboard-ui/internal/session"
)

// sessionCookieName is the fixed key under which the browser holds its
// session ID. The backend bearer token itself never leaves the server.
const sessionCookieName = "tb_session"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type bootstrapRequest struct {
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	MiddleName  *string `json:"middle_name"`
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	PhoneNumber *string `json:"phone_number"`
	BadgeNumber *string `json:"badge_number"`
}

// requestToken resolves the session cookie to the backend bearer token.
// A missing cookie or unknown/expired session yields session.ErrNoSession.
func requestToken(r *nethttp.Request, sessions *session.Store) (string, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return "", session.ErrNoSession
	}

	start := time.Now()
	token, err := sessions.Read(r.Context(), cookie.Value)
	recordSessionOp("Read", time.Since(start).Seconds(), err)
	return token, err
}

func issueSession(ctx context.Context, w nethttp.ResponseWriter, sessions *session.Store, token string) error {
	start := time.Now()
	id, err := sessions.Issue(ctx, token)
	recordSessionOp("Issue", time.Since(start).Seconds(), err)
	if err != nil {
		return err
	}

	nethttp.SetCookie(w, &nethttp.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: nethttp.SameSiteLaxMode,
	})
	return nil
}

func clearSessionCookie(w nethttp.ResponseWriter) {
	nethttp.SetCookie(w, &nethttp.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: nethttp.SameSiteLaxMode,
	})
}

func sessionLoginHandler(api *trustbond.Client, sessions *session.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
			return
		}

		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": "invalid request body"})
			return
		}

		start := time.Now()
		tok, err := api.Login(r.Context(), req.Email, req.Password)
		recordExternalProbe("trustbond", "Login", time.Since(start).Seconds(), err)
		if err != nil {
			status := nethttp.StatusBadGateway
			var apiErr *trustbond.APIError
			if errors.As(err, &apiErr) {
				status = apiErr.StatusCode
			}
			writeJSON(w, status, map[string]any{"error": err.Error()})
			return
		}

		if err := issueSession(r.Context(), w, sessions, tok.AccessToken); err != nil {
			writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": "failed to persist session"})
			return
		}

		claims, _ := session.DecodeClaims(tok.AccessToken)
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"data": map[string]any{
				"role":    claims.Role,
				"subject": claims.Subject,
			},
		})
	}
}

func sessionLogoutHandler(sessions *session.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
			return
		}

		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			start := time.Now()
			err := sessions.Revoke(r.Context(), cookie.Value)
			recordSessionOp("Revoke", time.Since(start).Seconds(), err)
		}
		clearSessionCookie(w)

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"data": map[string]any{"status": "signed out"},
		})
	}
}

func sessionInfoHandler(sessions *session.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		token, err := requestToken(r, sessions)
		if err != nil {
			writeJSON(w, nethttp.StatusUnauthorized, map[string]any{"error": "not signed in"})
			return
		}

		// Advisory routing data only. The backend re-checks every call.
		claims, err := session.DecodeClaims(token)
		if err != nil {
			writeJSON(w, nethttp.StatusUnauthorized, map[string]any{"error": "invalid session token"})
			return
		}

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"data": map[string]any{
				"role":    claims.Role,
				"subject": claims.Subject,
			},
		})
	}
}

func bootstrapExistsHandler(api *trustbond.Client) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		start := time.Now()
		exists := api.AdminExists(r.Context())
		recordExternalProbe("trustbond", "AdminExists", time.Since(start).Seconds(), nil)

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"data": map[string]any{"exists": exists},
		})
	}
}

func bootstrapHandler(api *trustbond.Client, sessions *session.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
			return
		}

		var req bootstrapRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": "invalid request body"})
			return
		}

		startCreate := time.Now()
		err := api.BootstrapAdmin(r.Context(), trustbond.BootstrapRequest{
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			MiddleName:  req.MiddleName,
			Email:       req.Email,
			Password:    req.Password,
			PhoneNumber: req.PhoneNumber,
			BadgeNumber: req.BadgeNumber,
			Role:        "admin",
		})
		recordExternalProbe("trustbond", "BootstrapAdmin", time.Since(startCreate).Seconds(), err)
		if err != nil {
			status := nethttp.StatusBadGateway
			var apiErr *trustbond.APIError
			if errors.As(err, &apiErr) {
				status = apiErr.StatusCode
			}
			writeJSON(w, status, map[string]any{"error": err.Error()})
			return
		}

		// Sign in with the freshly created credentials right away so the
		// browser lands on the dashboard with a live session.
		startLogin := time.Now()
		tok, err := api.Login(r.Context(), req.Email, req.Password)
		recordExternalProbe("trustbond", "Login", time.Since(startLogin).Seconds(), err)
		if err != nil {
			status := nethttp.StatusBadGateway
			var apiErr *trustbond.APIError
			if errors.As(err, &apiErr) {
				status = apiErr.StatusCode
			}
			writeJSON(w, status, map[string]any{"error": err.Error()})
			return
		}

		if err := issueSession(r.Context(), w, sessions, tok.AccessToken); err != nil {
			writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": "failed to persist session"})
			return
		}

		claims, _ := session.DecodeClaims(tok.AccessToken)
		writeJSON(w, nethttp.StatusCreated, map[string]any{
			"data": map[string]any{
				"role":    claims.Role,
				"subject": claims.Subject,
			},
		})
	}
}

func dashboardSummaryHandler(defaultPageSize int, api *trustbond.Client, sessions *session.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		token, err := requestToken(r, sessions)
		if err != nil {
			writeJSON(w, nethttp.StatusUnauthorized, map[string]any{"error": "not signed in"})
			return
		}

		perPage := parsePerPage(r, defaultPageSize)

		var (
			total       int64
			flaggedCnt  int64
			assignments []trustbond.Assignment
			reportPage  *trustbond.ReportList
			hotspots    []trustbond.Hotspot
		)

		batchStart := time.Now()
		g, ctx := errgroup.WithContext(r.Context())

		g.Go(func() error {
			start := time.Now()
			n, err := api.ReportCount(ctx, token, trustbond.ReportFilters{})
			recordExternalProbe("trustbond", "ReportCount", time.Since(start).Seconds(), err)
			if err != nil {
				return err
			}
			total = n
			return nil
		})
		g.Go(func() error {
			flagged := true
			start := time.Now()
			n, err := api.ReportCount(ctx, token, trustbond.ReportFilters{IsFlagged: &flagged})
			recordExternalProbe("trustbond", "ReportCount", time.Since(start).Seconds(), err)
			if err != nil {
				return err
			}
			flaggedCnt = n
			return nil
		})
		g.Go(func() error {
			start := time.Now()
			assignments = api.ListAssignments(ctx, token, "pending", nil)
			recordExternalProbe("trustbond", "ListAssignments", time.Since(start).Seconds(), nil)
			return nil
		})
		g.Go(func() error {
			start := time.Now()
			page, err := api.ListReports(ctx, token, 1, perPage, trustbond.ReportFilters{})
			recordExternalProbe("trustbond", "ListReports", time.Since(start).Seconds(), err)
			if err != nil {
				return err
			}
			reportPage = page
			return nil
		})
		g.Go(func() error {
			start := time.Now()
			hotspots = api.Hotspots(ctx, token)
			recordExternalProbe("trustbond", "Hotspots", time.Since(start).Seconds(), nil)
			return nil
		})

		// The five results commit atomically: a failed count or report
		// page fails the whole batch and no partial state is returned.
		if err := g.Wait(); err != nil {
			recordBatchLoad("error", time.Since(batchStart).Seconds())
			writeJSON(w, nethttp.StatusBadGateway, map[string]any{"error": "failed to load dashboard data"})
			return
		}
		recordBatchLoad("ok", time.Since(batchStart).Seconds())

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{
				"generated_at": time.Now().UTC(),
				"per_page":     perPage,
			},
			"data": map[string]any{
				"total_reports":       total,
				"flagged_reports":     flaggedCnt,
				"pending_assignments": assignments,
				"reports":             reportPage.Reports,
				"hotspots":            hotspots,
			},
		})
	}
}

func reportListHandler(defaultPageSize int, api *trustbond.Client, sessions *session.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		token, err := requestToken(r, sessions)
		if err != nil {
			writeJSON(w, nethttp.StatusUnauthorized, map[string]any{"error": "not signed in"})
			return
		}

		page := parsePage(r)
		perPage := parsePerPage(r, defaultPageSize)
		filters, err := parseReportFilters(r)
		if err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}

		start := time.Now()
		list, err := api.ListReports(r.Context(), token, page, perPage, filters)
		recordExternalProbe("trustbond", "ListReports", time.Since(start).Seconds(), err)
		if err != nil {
			writeJSON(w, nethttp.StatusBadGateway, map[string]any{"error": "failed to load reports"})
			return
		}

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{
				"page":     list.Page,
				"per_page": list.PerPage,
				"total":    list.Total,
				"count":    len(list.Reports),
			},
			"data": list.Reports,
		})
	}
}

func reportDetailHandler(api *trustbond.Client, sessions *session.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		token, err := requestToken(r, sessions)
		if err != nil {
			writeJSON(w, nethttp.StatusUnauthorized, map[string]any{"error": "not signed in"})
			return
		}

		reportID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/reports/"), "/")
		if reportID == "" || strings.Contains(reportID, "/") {
			writeJSON(w, nethttp.StatusNotFound, map[string]any{"error": "not found"})
			return
		}

		start := time.Now()
		detail, err := api.GetReport(r.Context(), token, reportID)
		recordExternalProbe("trustbond", "GetReport", time.Since(start).Seconds(), err)
		if err != nil {
			if errors.Is(err, trustbond.ErrNotFound) {
				writeJSON(w, nethttp.StatusNotFound, map[string]any{"error": "report not found"})
				return
			}
			writeJSON(w, nethttp.StatusBadGateway, map[string]any{"error": "failed to load report"})
			return
		}

		writeJSON(w, nethttp.StatusOK, map[string]any{"data": detail})
	}
}

func officerAssignmentsHandler(api *trustbond.Client, sessions *session.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		token, err := requestToken(r, sessions)
		if err != nil {
			writeJSON(w, nethttp.StatusUnauthorized, map[string]any{"error": "not signed in"})
			return
		}

		claims, err := session.DecodeClaims(token)
		if err != nil {
			writeJSON(w, nethttp.StatusUnauthorized, map[string]any{"error": "invalid session token"})
			return
		}
		if claims.Role != "officer" {
			writeJSON(w, nethttp.StatusForbidden, map[string]any{"error": "officer role required"})
			return
		}

		officerID, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			writeJSON(w, nethttp.StatusUnauthorized, map[string]any{"error": "invalid session token"})
			return
		}

		start := time.Now()
		assignments := api.ListAssignments(r.Context(), token, "pending", &officerID)
		recordExternalProbe("trustbond", "ListAssignments", time.Since(start).Seconds(), nil)

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{"count": len(assignments)},
			"data": assignments,
		})
	}
}

func parsePage(r *nethttp.Request) int {
	raw := strings.TrimSpace(r.URL.Query().Get("page"))
	if raw == "" {
		return 1
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page <= 0 {
		return 1
	}
	return page
}

func parsePerPage(r *nethttp.Request, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get("per_page"))
	if raw == "" {
		return def
	}
	perPage, err := strconv.Atoi(raw)
	if err != nil || perPage <= 0 {
		return def
	}
	if perPage > 100 {
		return 100
	}
	return perPage
}

func parseReportFilters(r *nethttp.Request) (trustbond.ReportFilters, error) {
	out := trustbond.ReportFilters{}
	query := r.URL.Query()

	out.RuleStatus = strings.TrimSpace(query.Get("rule_status"))

	if raw := strings.TrimSpace(query.Get("incident_type_id")); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return out, errors.New("invalid incident_type_id")
		}
		out.IncidentTypeID = &id
	}
	if raw := strings.TrimSpace(query.Get("is_flagged")); raw != "" {
		flagged, err := strconv.ParseBool(raw)
		if err != nil {
			return out, errors.New("invalid is_flagged")
		}
		out.IsFlagged = &flagged
	}
	if raw := strings.TrimSpace(query.Get("start_date")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return out, errors.New("invalid start_date, expected RFC3339")
		}
		out.StartDate = &t
	}
	if raw := strings.TrimSpace(query.Get("end_date")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return out, errors.New("invalid end_date, expected RFC3339")
		}
		out.EndDate = &t
	}

	return out, nil
}
