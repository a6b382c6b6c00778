package model

import (
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/karuna-health/assess-portal/internal/scoring"
)

// phonePattern accepts Ugandan mobile numbers: 07XXXXXXXX or +2567XXXXXXXX.
var phonePattern = regexp.MustCompile(`^(\+256|0)7\d{8}$`)

// FacilityMeta identifies the facility and visit an assessment covers.
type FacilityMeta struct {
	FacilityName string    `json:"facility_name"`
	District     string    `json:"district"`
	Level        string    `json:"level"`
	Ownership    string    `json:"ownership"`
	Assessor     string    `json:"assessor"`
	Date         time.Time `json:"date"`
	CampaignDay  int       `json:"campaign_day,omitempty"`
}

// Validate checks the required facility fields.
func (m *FacilityMeta) Validate() error {
	required := map[string]string{
		"facility_name": m.FacilityName,
		"district":      m.District,
		"level":         m.Level,
		"ownership":     m.Ownership,
		"assessor":      m.Assessor,
	}
	for field, v := range required {
		if strings.TrimSpace(v) == "" {
			return eris.Errorf("model: %s is required", field)
		}
	}
	if l := len(strings.TrimSpace(m.FacilityName)); l < 2 || l > 100 {
		return eris.New("model: facility name must be between 2 and 100 characters")
	}
	if l := len(strings.TrimSpace(m.Assessor)); l < 2 || l > 100 {
		return eris.New("model: assessor name must be between 2 and 100 characters")
	}
	if m.Date.IsZero() {
		return eris.New("model: assessment date is required")
	}
	return nil
}

// Submission is one stored facility assessment: the metadata, the scored
// result, and rollup percentages denormalized for dashboard queries.
type Submission struct {
	ID               string             `json:"id"`
	Meta             FacilityMeta       `json:"meta"`
	Result           *scoring.Result    `json:"result"`
	OverallPercent   float64            `json:"overall_percent"`
	CategoryPercents map[string]float64 `json:"category_percents"`
	SubmittedBy      string             `json:"submitted_by,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
}

// NewSubmission assembles a Submission from a scored result.
func NewSubmission(meta FacilityMeta, result *scoring.Result) *Submission {
	sub := &Submission{
		Meta:             meta,
		Result:           result,
		CategoryPercents: make(map[string]float64, len(result.Categories)),
	}
	if result.Overall.Valid {
		sub.OverallPercent = result.Overall.Percent()
	}
	for _, c := range result.Categories {
		if c.Mean.Valid {
			sub.CategoryPercents[c.CategoryID] = c.Mean.Percent()
		}
	}
	return sub
}

// Participant is a registered health worker.
type Participant struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Cadre           string    `json:"cadre"`
	DutyStation     string    `json:"duty_station"`
	District        string    `json:"district"`
	MobileNumber    string    `json:"mobile_number"`
	MobileMoneyName string    `json:"mobile_money_name"`
	CampaignDay     int       `json:"campaign_day,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Validate checks required participant fields and the phone format.
func (p *Participant) Validate() error {
	required := map[string]string{
		"name":              p.Name,
		"cadre":             p.Cadre,
		"duty_station":      p.DutyStation,
		"district":          p.District,
		"mobile_number":     p.MobileNumber,
		"mobile_money_name": p.MobileMoneyName,
	}
	for field, v := range required {
		if strings.TrimSpace(v) == "" {
			return eris.Errorf("model: %s is required", field)
		}
	}
	phone := strings.ReplaceAll(strings.TrimSpace(p.MobileNumber), " ", "")
	if !phonePattern.MatchString(phone) {
		return eris.New("model: invalid phone number, use 07XXXXXXXX or +2567XXXXXXXX")
	}
	return nil
}

// Activity is one audit-trail entry.
type Activity struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Module       string         `json:"module,omitempty"`
	UserID       string         `json:"user_id,omitempty"`
	FacilityName string         `json:"facility_name,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	IPAddress    string         `json:"ip_address,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// DashboardStats is the headline counter block on the admin dashboard.
type DashboardStats struct {
	TotalParticipants int `json:"total_participants"`
	TotalAssessments  int `json:"total_assessments"`
	ActiveFacilities  int `json:"active_facilities"`
}

// DistrictProgress is one district's registration and assessment counts.
type DistrictProgress struct {
	District      string `json:"district"`
	Registrations int    `json:"registrations"`
	Assessments   int    `json:"assessments"`
}

// CategoryPerformance is the average percentage for one category across all
// stored assessments, against the campaign target.
type CategoryPerformance struct {
	CategoryID string  `json:"category_id"`
	Average    float64 `json:"average"`
	Target     float64 `json:"target"`
}
