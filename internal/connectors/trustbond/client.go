package trustbond

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when the backend reports a missing resource.
var ErrNotFound = errors.New("report not found")

// APIError carries the backend status code and its `detail` message.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return e.Detail
}

// Client performs typed calls against the TrustBond REST API. It is the
// single chokepoint for backend HTTP traffic: bearer auth, query
// serialization and error normalization all live here.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Login authenticates a police user. On a non-success status the
// returned error carries the backend `detail` message when present.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodPost, "/auth/login", nil, "", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiError(resp, "login failed")
	}

	var out TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return nil, errors.New("login response missing access token")
	}
	return &out, nil
}

// ListReports fetches one page of the filterable report listing.
func (c *Client) ListReports(ctx context.Context, token string, page, perPage int, filters ReportFilters) (*ReportList, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 10
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	filters.apply(params)

	resp, err := c.do(ctx, http.MethodGet, "/reports", params, token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiError(resp, "failed to load reports")
	}

	var out ReportList
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Reports == nil {
		out.Reports = []ReportSummary{}
	}
	return &out, nil
}

// GetReport fetches one report's full detail. A backend 404 maps to
// ErrNotFound.
func (c *Client) GetReport(ctx context.Context, token, reportID string) (*ReportDetail, error) {
	resp, err := c.do(ctx, http.MethodGet, "/reports/"+url.PathEscape(reportID), nil, token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiError(resp, "failed to load report")
	}

	var out ReportDetail
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.MLPredictions == nil {
		out.MLPredictions = []MLPrediction{}
	}
	if out.Assignments == nil {
		out.Assignments = []Assignment{}
	}
	return &out, nil
}

// ReportCount derives a total from the listing envelope by requesting a
// single page of size one. A missing `total` field counts as zero.
func (c *Client) ReportCount(ctx context.Context, token string, filters ReportFilters) (int64, error) {
	list, err := c.ListReports(ctx, token, 1, 1, filters)
	if err != nil {
		return 0, err
	}
	return list.Total, nil
}

// ListAssignments fetches assignments, optionally filtered by status
// and/or officer. It never fails: any transport or status error yields
// an empty slice so dashboards degrade instead of crashing.
func (c *Client) ListAssignments(ctx context.Context, token, status string, policeUserID *int64) []Assignment {
	params := url.Values{}
	if status != "" {
		params.Set("status_filter", status)
	}
	if policeUserID != nil {
		params.Set("police_user_id", strconv.FormatInt(*policeUserID, 10))
	}

	resp, err := c.do(ctx, http.MethodGet, "/report-assignments", params, token, nil)
	if err != nil {
		log.Printf("trustbond: assignment fetch failed: %v", err)
		return []Assignment{}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("trustbond: assignment fetch returned status %d", resp.StatusCode)
		return []Assignment{}
	}

	var out []Assignment
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Printf("trustbond: assignment decode failed: %v", err)
		return []Assignment{}
	}
	if out == nil {
		out = []Assignment{}
	}
	return out
}

// Hotspots fetches clustered incident hotspots with the same
// graceful-empty policy as ListAssignments.
func (c *Client) Hotspots(ctx context.Context, token string) []Hotspot {
	resp, err := c.do(ctx, http.MethodGet, "/hotspots", nil, token, nil)
	if err != nil {
		log.Printf("trustbond: hotspot fetch failed: %v", err)
		return []Hotspot{}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("trustbond: hotspot fetch returned status %d", resp.StatusCode)
		return []Hotspot{}
	}

	var out []Hotspot
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Printf("trustbond: hotspot decode failed: %v", err)
		return []Hotspot{}
	}
	if out == nil {
		out = []Hotspot{}
	}
	return out
}

// AdminExists reports whether any police user account exists. The check
// is public and fail-safe: when it cannot be answered reliably it
// returns true so the UI never offers bootstrap on a broken backend.
func (c *Client) AdminExists(ctx context.Context) bool {
	resp, err := c.do(ctx, http.MethodGet, "/police-users/exists", nil, "", nil)
	if err != nil {
		log.Printf("trustbond: exists check failed: %v", err)
		return true
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("trustbond: exists check returned status %d", resp.StatusCode)
		return true
	}

	var out struct {
		Exists bool `json:"exists"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Printf("trustbond: exists decode failed: %v", err)
		return true
	}
	return out.Exists
}

// BootstrapAdmin creates the first admin account. The backend remains
// the authority that rejects bootstrap once any user exists.
func (c *Client) BootstrapAdmin(ctx context.Context, req BootstrapRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodPost, "/police-users/bootstrap", nil, "", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp, "bootstrap failed")
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, token string, body io.Reader) (*http.Response, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, err
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.http.Do(req)
}

// Ping probes backend reachability via the public exists endpoint and
// reports the round-trip time.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	resp, err := c.do(ctx, http.MethodGet, "/police-users/exists", nil, "", nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("trustbond status=%d", resp.StatusCode)
	}
	return time.Since(start), nil
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// apiError builds an *APIError from a non-success response, preferring
// the backend `detail` message over the fallback.
func apiError(resp *http.Response, fallback string) error {
	detail := fallback
	blob, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(blob, &payload); err == nil && strings.TrimSpace(payload.Detail) != "" {
		detail = strings.TrimSpace(payload.Detail)
	}
	return &APIError{StatusCode: resp.StatusCode, Detail: detail}
}
