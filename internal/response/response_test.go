package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karuna-health/assess-portal/internal/catalog"
)

func defaultCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return cat
}

func TestRecordShapeValidation(t *testing.T) {
	t.Parallel()

	cat := defaultCatalog(t)

	tests := []struct {
		name      string
		indicator string
		answer    Answer
		wantErr   error
	}{
		{"kind mismatch", "pr_q1", Number(3), ErrInvalidAnswerShape},
		{"unknown indicator", "nope", Yes(), catalog.ErrNotFound},
		{"percent zero valid", "as_q3", Percent(0), nil},
		{"negative number", "eid_q4", Answer{Kind: catalog.KindNumber, Number: -1}, ErrInvalidAnswerShape},
		{"empty text", "hr_q2", ShortText(""), ErrInvalidAnswerShape},
		{"unknown choice", "hr_q1", Choice("Donations"), ErrInvalidAnswerShape},
		{"valid choice", "hr_q1", Choice("Public payroll"), nil},
		{"multi choice unknown option", "hr_q4", MultiChoice("ANC", "Pharmacy"), ErrInvalidAnswerShape},
		{"valid multi choice", "hr_q4", MultiChoice("ANC", "MBCP"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rs := New(cat)
			err := rs.Record(tt.indicator, tt.answer)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestRecordPercentRange(t *testing.T) {
	t.Parallel()

	rs := New(defaultCatalog(t))
	err := rs.Record("as_q3", Answer{Kind: catalog.KindPercent, Number: 101})
	assert.ErrorIs(t, err, ErrInvalidAnswerShape)

	require.NoError(t, rs.Record("as_q3", Percent(100)))
	require.NoError(t, rs.Record("as_q3", Percent(0)))
}

func TestRecordMultiYesNoItems(t *testing.T) {
	t.Parallel()

	rs := New(defaultCatalog(t))

	// te_q1 declares three items; a partial map is rejected.
	err := rs.Record("te_q1", MultiYesNo(map[string]bool{"only one": true}))
	assert.ErrorIs(t, err, ErrInvalidAnswerShape)

	cat := rs.Catalog()
	ind, err := cat.Indicator("te_q1")
	require.NoError(t, err)

	items := make(map[string]bool, len(ind.Items))
	for _, item := range ind.Items {
		items[item] = true
	}
	assert.NoError(t, rs.Record("te_q1", MultiYesNo(items)))
}

func TestRecordTableRejectsDerivedWrite(t *testing.T) {
	t.Parallel()

	rs := New(defaultCatalog(t))

	cells := map[string]float64{
		"anc1_attendance":       120,
		"hiv_tested_anc1":       110,
		"syphilis_tested_anc1":  100,
		"hepb_tested_anc1":      90,
		"hiv_status_documented": 115,
	}

	// Writing the calculated column fails.
	bad := map[string]float64{"hiv_screening_pct": 50}
	for k, v := range cells {
		bad[k] = v
	}
	err := rs.Record("te_q2", Table(bad))
	require.ErrorIs(t, err, ErrInvalidAnswerShape)
	assert.Contains(t, err.Error(), "calculated")

	// Raw columns only is fine.
	assert.NoError(t, rs.Record("te_q2", Table(cells)))

	// A missing raw column is rejected.
	delete(cells, "hepb_tested_anc1")
	err = rs.Record("te_q2", Table(cells))
	assert.ErrorIs(t, err, ErrInvalidAnswerShape)
}

func TestRecordGridShapes(t *testing.T) {
	t.Parallel()

	rs := New(defaultCatalog(t))

	// ap_q2: 10 criteria x 10 charts, NA allowed.
	marks := make([][]Mark, 10)
	for i := range marks {
		row := make([]Mark, 10)
		for j := range row {
			row[j] = MarkYes
		}
		marks[i] = row
	}
	require.NoError(t, rs.Record("ap_q2", ChartReview(marks)))

	marks[0][0] = MarkNA
	require.NoError(t, rs.Record("ap_q2", ChartReview(marks)))

	// Wrong row count.
	err := rs.Record("ap_q2", ChartReview(marks[:5]))
	assert.ErrorIs(t, err, ErrInvalidAnswerShape)

	// anc_reg_q1: 11 rows x 3 columns, NA not allowed.
	check := make([][]Mark, 11)
	for i := range check {
		check[i] = []Mark{MarkYes, MarkYes, MarkNo}
	}
	require.NoError(t, rs.Record("anc_reg_q1", Checklist(check)))

	check[3][1] = MarkNA
	err = rs.Record("anc_reg_q1", Checklist(check))
	assert.ErrorIs(t, err, ErrInvalidAnswerShape)
}

func TestRecordCompositeRejected(t *testing.T) {
	t.Parallel()

	cat, err := catalog.Parse([]byte(`
sections:
  - id: s1
    title: One
    indicators:
      - { id: q1, text: A, kind: yes_no, rule: { kind: binary, binary: { "yes": dark_green, "no": red } } }
      - { id: q2, text: B, kind: yes_no, rule: { kind: binary, binary: { "yes": dark_green, "no": red } } }
      - id: overall
        text: Overall
        kind: yes_no
        rule: { kind: composite, composite: { of: [q1, q2] } }
`))
	require.NoError(t, err)

	rs := New(cat)
	err = rs.Record("overall", Yes())
	require.ErrorIs(t, err, ErrInvalidAnswerShape)
	assert.Contains(t, err.Error(), "composite")
}

func TestSectionNotApplicable(t *testing.T) {
	t.Parallel()

	rs := New(defaultCatalog(t))

	// supply_chain_eid allows the override.
	require.NoError(t, rs.MarkSectionNotApplicable("supply_chain_eid"))
	assert.True(t, rs.SectionNotApplicable("supply_chain_eid"))

	st, err := rs.Status("sceid_q1")
	require.NoError(t, err)
	assert.Equal(t, StatusNotApplicable, st)

	// patient_records does not.
	err = rs.MarkSectionNotApplicable("patient_records")
	assert.Error(t, err)

	err = rs.MarkSectionNotApplicable("nope")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestVisibilityChain(t *testing.T) {
	t.Parallel()

	rs := New(defaultCatalog(t))

	// Unanswered parent hides the child.
	st, err := rs.Status("pr_q2")
	require.NoError(t, err)
	assert.Equal(t, StatusExcluded, st)

	// Parent answered "no": child stays hidden, its answer retained.
	require.NoError(t, rs.Record("pr_q1", No()))
	require.NoError(t, rs.Record("pr_q2", Yes()))

	st, err = rs.Status("pr_q2")
	require.NoError(t, err)
	assert.Equal(t, StatusExcluded, st)

	_, ok := rs.Answer("pr_q2")
	assert.True(t, ok, "hidden answers are retained")

	a, st, err := rs.Effective("pr_q2")
	require.NoError(t, err)
	assert.Equal(t, StatusExcluded, st)
	assert.Zero(t, a)

	// Flipping the parent back to "yes" re-includes the child answer.
	require.NoError(t, rs.Record("pr_q1", Yes()))
	st, err = rs.Status("pr_q2")
	require.NoError(t, err)
	assert.Equal(t, StatusAnswered, st)

	// A grandchild becomes visible once the chain matches, but is still
	// unanswered.
	st, err = rs.Status("pr_q3")
	require.NoError(t, err)
	assert.Equal(t, StatusMissing, st)
}

func TestVisibilityNumericAndChoiceConditions(t *testing.T) {
	t.Parallel()

	rs := New(defaultCatalog(t))

	// as_q4 requires as_q3 >= 80.
	require.NoError(t, rs.Record("as_q1", Yes()))
	require.NoError(t, rs.Record("as_q2", Yes()))
	require.NoError(t, rs.Record("as_q3", Percent(79)))

	st, err := rs.Status("as_q4")
	require.NoError(t, err)
	assert.Equal(t, StatusExcluded, st)

	require.NoError(t, rs.Record("as_q3", Percent(80)))
	st, err = rs.Status("as_q4")
	require.NoError(t, err)
	assert.Equal(t, StatusMissing, st)

	// ctx_q2 requires ctx_q1 == 0 defects.
	require.NoError(t, rs.Record("ctx_q1", Number(2)))
	st, err = rs.Status("ctx_q2")
	require.NoError(t, err)
	assert.Equal(t, StatusExcluded, st)

	require.NoError(t, rs.Record("ctx_q1", Number(0)))
	st, err = rs.Status("ctx_q2")
	require.NoError(t, err)
	assert.Equal(t, StatusMissing, st)

	// hr_q2 shows for either partner-funded option.
	require.NoError(t, rs.Record("hr_q1", Choice("Public payroll")))
	st, err = rs.Status("hr_q2")
	require.NoError(t, err)
	assert.Equal(t, StatusExcluded, st)

	require.NoError(t, rs.Record("hr_q1", Choice("Both public and partner")))
	st, err = rs.Status("hr_q2")
	require.NoError(t, err)
	assert.Equal(t, StatusMissing, st)
}

func TestBuildFromInput(t *testing.T) {
	t.Parallel()

	cat := defaultCatalog(t)

	rs, err := Build(cat, Input{
		Answers: map[string]Answer{
			"pr_q1": Yes(),
			"pr_q2": No(),
		},
		NotApplicableSections: []string{"community_linkage"},
	})
	require.NoError(t, err)

	st, err := rs.Status("pr_q1")
	require.NoError(t, err)
	assert.Equal(t, StatusAnswered, st)
	assert.True(t, rs.SectionNotApplicable("community_linkage"))

	// Unknown ids fail the whole build.
	_, err = Build(cat, Input{Answers: map[string]Answer{"ghost": Yes()}})
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	// Shape errors fail the whole build.
	_, err = Build(cat, Input{Answers: map[string]Answer{"pr_q1": Number(1)}})
	assert.ErrorIs(t, err, ErrInvalidAnswerShape)
}
