package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karuna-health/assess-portal/internal/catalog"
	"github.com/karuna-health/assess-portal/internal/scoring"
)

func validMeta() FacilityMeta {
	return FacilityMeta{
		FacilityName: "Kawolo General Hospital",
		District:     "Buikwe",
		Level:        "Hospital",
		Ownership:    "Government",
		Assessor:     "J. Nakato",
		Date:         time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC),
	}
}

func TestFacilityMetaValidate(t *testing.T) {
	t.Parallel()

	valid := validMeta()
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*FacilityMeta)
	}{
		{"missing facility name", func(m *FacilityMeta) { m.FacilityName = "" }},
		{"blank district", func(m *FacilityMeta) { m.District = "   " }},
		{"missing level", func(m *FacilityMeta) { m.Level = "" }},
		{"missing ownership", func(m *FacilityMeta) { m.Ownership = "" }},
		{"missing assessor", func(m *FacilityMeta) { m.Assessor = "" }},
		{"facility name too short", func(m *FacilityMeta) { m.FacilityName = "K" }},
		{"assessor name too short", func(m *FacilityMeta) { m.Assessor = "J" }},
		{"zero date", func(m *FacilityMeta) { m.Date = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := validMeta()
			tt.mutate(&m)
			assert.Error(t, m.Validate())
		})
	}
}

func validParticipant() Participant {
	return Participant{
		Name:            "Grace Auma",
		Cadre:           "Midwife",
		DutyStation:     "Kawolo General Hospital",
		District:        "Buikwe",
		MobileNumber:    "0772123456",
		MobileMoneyName: "Grace Auma",
	}
}

func TestParticipantValidate(t *testing.T) {
	t.Parallel()

	validP := validParticipant()
	assert.NoError(t, validP.Validate())

	t.Run("phone formats", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			phone string
			ok    bool
		}{
			{"0772123456", true},
			{"+256772123456", true},
			{"0772 123 456", true},
			{"0672123456", false},
			{"077212345", false},
			{"07721234567", false},
			{"256772123456", false},
			{"phone", false},
		}
		for _, tt := range tests {
			p := validParticipant()
			p.MobileNumber = tt.phone
			err := p.Validate()
			if tt.ok {
				assert.NoError(t, err, "phone %q", tt.phone)
			} else {
				assert.Error(t, err, "phone %q", tt.phone)
			}
		}
	})

	t.Run("required fields", func(t *testing.T) {
		t.Parallel()
		p := validParticipant()
		p.MobileMoneyName = ""
		assert.Error(t, p.Validate())
	})
}

func TestNewSubmission(t *testing.T) {
	t.Parallel()

	result := &scoring.Result{
		Categories: []scoring.CategoryScore{
			{CategoryID: "data_management", Mean: scoring.Value{Score: 3, Valid: true}},
			{CategoryID: "supply_chain", Mean: scoring.Value{}},
		},
		Overall: scoring.Value{Score: 3, Valid: true},
		Band:    catalog.BandLightGreen,
	}

	sub := NewSubmission(validMeta(), result)
	require.NotNil(t, sub)
	assert.InDelta(t, 75.0, sub.OverallPercent, 0.001)
	assert.InDelta(t, 75.0, sub.CategoryPercents["data_management"], 0.001)

	_, ok := sub.CategoryPercents["supply_chain"]
	assert.False(t, ok, "invalid category means are not denormalized")
}

func TestNewSubmissionInvalidOverall(t *testing.T) {
	t.Parallel()

	sub := NewSubmission(validMeta(), &scoring.Result{})
	assert.Zero(t, sub.OverallPercent)
	assert.Empty(t, sub.CategoryPercents)
}
