package trustbond

import (
	"net/url"
	"strconv"
	"time"
)

// ReportSummary is one row of the paginated report listing.
type ReportSummary struct {
	ReportID       string    `json:"report_id"`
	IncidentTypeID int       `json:"incident_type_id"`
	Description    *string   `json:"description,omitempty"`
	ReportedAt     time.Time `json:"reported_at"`
	RuleStatus     string    `json:"rule_status"`
	IsFlagged      bool      `json:"is_flagged"`
}

// IncidentType is the nested incident-type object on a report detail.
type IncidentType struct {
	IncidentTypeID int     `json:"incident_type_id"`
	TypeName       string  `json:"type_name"`
	SeverityWeight float64 `json:"severity_weight"`
}

// MLPrediction is a model evaluation attached to a report.
type MLPrediction struct {
	PredictionID    string   `json:"prediction_id"`
	ModelType       string   `json:"model_type"`
	PredictionLabel *string  `json:"prediction_label,omitempty"`
	Confidence      *float64 `json:"confidence,omitempty"`
}

// Assignment links a report to an officer with a status and priority.
type Assignment struct {
	AssignmentID string `json:"assignment_id"`
	ReportID     string `json:"report_id,omitempty"`
	PoliceUserID int64  `json:"police_user_id"`
	Status       string `json:"status"`
	Priority     string `json:"priority"`
}

// Hotspot is a server-computed geographic cluster of related reports.
type Hotspot struct {
	HotspotID     int64    `json:"hotspot_id"`
	CenterLat     float64  `json:"center_lat"`
	CenterLong    float64  `json:"center_long"`
	RadiusMeters  *float64 `json:"radius_meters,omitempty"`
	IncidentCount int      `json:"incident_count"`
	RiskLevel     string   `json:"risk_level"`
}

// ReportDetail is the full report view: summary fields plus nested
// incident type, ML predictions and assignments.
type ReportDetail struct {
	ReportSummary
	IncidentType  *IncidentType  `json:"incident_type,omitempty"`
	MLPredictions []MLPrediction `json:"ml_predictions"`
	Assignments   []Assignment   `json:"assignments"`
}

// ReportList is the paginated envelope returned by the reports endpoint.
type ReportList struct {
	Reports []ReportSummary `json:"reports"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	PerPage int             `json:"per_page"`
}

// TokenResponse is a successful login response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// BootstrapRequest creates the first admin account when no users exist.
type BootstrapRequest struct {
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	MiddleName  *string `json:"middle_name,omitempty"`
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	BadgeNumber *string `json:"badge_number,omitempty"`
	Role        string  `json:"role,omitempty"`
}

// ReportFilters narrows the report listing. Zero-valued fields are
// omitted from the query string.
type ReportFilters struct {
	RuleStatus     string
	IncidentTypeID *int
	IsFlagged      *bool
	StartDate      *time.Time
	EndDate        *time.Time
}

func (f ReportFilters) apply(params url.Values) {
	if f.RuleStatus != "" {
		params.Set("rule_status", f.RuleStatus)
	}
	if f.IncidentTypeID != nil {
		params.Set("incident_type_id", strconv.Itoa(*f.IncidentTypeID))
	}
	if f.IsFlagged != nil {
		params.Set("is_flagged", strconv.FormatBool(*f.IsFlagged))
	}
	if f.StartDate != nil {
		params.Set("start_date", f.StartDate.UTC().Format(time.RFC3339))
	}
	if f.EndDate != nil {
		params.Set("end_date", f.EndDate.UTC().Format(time.RFC3339))
	}
}
