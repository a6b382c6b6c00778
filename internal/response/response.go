package response

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/karuna-health/assess-portal/internal/catalog"
)

// ErrInvalidAnswerShape is returned when a recorded value does not match the
// indicator's declared question kind.
var ErrInvalidAnswerShape = eris.New("response: invalid answer shape")

// Status is the tri-state (plus missing) disposition of an indicator within
// a response set.
type Status int

const (
	// StatusMissing means no answer has been recorded.
	StatusMissing Status = iota
	// StatusAnswered means a valid answer is recorded and visible.
	StatusAnswered
	// StatusNotApplicable means the section was marked not applicable.
	StatusNotApplicable
	// StatusExcluded means the indicator's visibility condition is not met;
	// any recorded answer is retained but ignored by scoring.
	StatusExcluded
)

func (s Status) String() string {
	switch s {
	case StatusAnswered:
		return "answered"
	case StatusNotApplicable:
		return "not_applicable"
	case StatusExcluded:
		return "excluded"
	default:
		return "missing"
	}
}

// Set collects the answers of a single assessment submission against one
// catalog. It is not safe for concurrent use; each submission owns its Set.
type Set struct {
	cat        *catalog.Catalog
	answers    map[string]Answer
	naSections map[string]bool
}

// New creates an empty response set for the given catalog.
func New(cat *catalog.Catalog) *Set {
	return &Set{
		cat:        cat,
		answers:    make(map[string]Answer),
		naSections: make(map[string]bool),
	}
}

// Catalog returns the catalog the set was built against.
func (s *Set) Catalog() *catalog.Catalog { return s.cat }

// Record validates and stores an answer for the indicator. The value shape
// must match the indicator's kind; mismatches fail with
// ErrInvalidAnswerShape and unknown ids with catalog.ErrNotFound. Recording
// is allowed even while the indicator's visibility condition is unmet: the
// answer is kept and simply excluded until the condition holds.
func (s *Set) Record(indicatorID string, a Answer) error {
	ind, err := s.cat.Indicator(indicatorID)
	if err != nil {
		return err
	}
	if ind.Rule != nil && ind.Rule.Kind == catalog.RuleComposite {
		return eris.Wrapf(ErrInvalidAnswerShape, "indicator %q is composite and derives from its sub-indicators", indicatorID)
	}
	if a.Kind != ind.Kind {
		return eris.Wrapf(ErrInvalidAnswerShape, "indicator %q expects kind %q, got %q", indicatorID, ind.Kind, a.Kind)
	}
	if err := validateShape(ind, a); err != nil {
		return err
	}
	s.answers[indicatorID] = a
	return nil
}

// MarkSectionNotApplicable excludes all of the section's indicators from
// scoring. Only sections declared with allow_na accept the override.
func (s *Set) MarkSectionNotApplicable(sectionID string) error {
	sec, err := s.cat.Section(sectionID)
	if err != nil {
		return err
	}
	if !sec.AllowNA {
		return eris.Wrapf(ErrInvalidAnswerShape, "section %q does not allow a not-applicable override", sectionID)
	}
	s.naSections[sectionID] = true
	return nil
}

// SectionNotApplicable reports whether the section is marked not applicable.
func (s *Set) SectionNotApplicable(sectionID string) bool {
	return s.naSections[sectionID]
}

// Answer returns the raw recorded answer for the indicator, if any,
// regardless of its current visibility.
func (s *Set) Answer(indicatorID string) (Answer, bool) {
	a, ok := s.answers[indicatorID]
	return a, ok
}

// Status returns the current disposition of the indicator: section N/A wins,
// then an unmet visibility condition, then answered/missing.
func (s *Set) Status(indicatorID string) (Status, error) {
	ind, err := s.cat.Indicator(indicatorID)
	if err != nil {
		return StatusMissing, err
	}
	sectionID, err := s.cat.SectionOf(indicatorID)
	if err != nil {
		return StatusMissing, err
	}
	if s.naSections[sectionID] {
		return StatusNotApplicable, nil
	}
	if !s.visible(ind) {
		return StatusExcluded, nil
	}
	if _, ok := s.answers[indicatorID]; !ok {
		return StatusMissing, nil
	}
	return StatusAnswered, nil
}

// Effective returns the answer only when the indicator is currently
// answered and visible.
func (s *Set) Effective(indicatorID string) (Answer, Status, error) {
	st, err := s.Status(indicatorID)
	if err != nil {
		return Answer{}, st, err
	}
	if st != StatusAnswered {
		return Answer{}, st, nil
	}
	return s.answers[indicatorID], StatusAnswered, nil
}

func validateShape(ind *catalog.Indicator, a Answer) error {
	switch ind.Kind {
	case catalog.KindYesNo, catalog.KindYesNoText:
		// Bool carries the value; nothing further to check.
	case catalog.KindMultiYesNo:
		if len(a.Items) != len(ind.Items) {
			return eris.Wrapf(ErrInvalidAnswerShape, "indicator %q expects %d items, got %d", ind.ID, len(ind.Items), len(a.Items))
		}
		for _, item := range ind.Items {
			if _, ok := a.Items[item]; !ok {
				return eris.Wrapf(ErrInvalidAnswerShape, "indicator %q missing item %q", ind.ID, item)
			}
		}
	case catalog.KindNumber:
		if math.IsNaN(a.Number) || math.IsInf(a.Number, 0) || a.Number < 0 {
			return eris.Wrapf(ErrInvalidAnswerShape, "indicator %q expects a non-negative number", ind.ID)
		}
	case catalog.KindPercent:
		if math.IsNaN(a.Number) || a.Number < 0 || a.Number > 100 {
			return eris.Wrapf(ErrInvalidAnswerShape, "indicator %q expects a percentage in [0,100], got %v", ind.ID, a.Number)
		}
	case catalog.KindShortText, catalog.KindLongText:
		if a.Text == "" {
			return eris.Wrapf(ErrInvalidAnswerShape, "indicator %q expects text", ind.ID)
		}
	case catalog.KindSingleChoice:
		if !containsString(ind.Options, a.Choice) {
			return eris.Wrapf(ErrInvalidAnswerShape, "indicator %q has no option %q", ind.ID, a.Choice)
		}
	case catalog.KindMultiChoice:
		if len(a.Choices) == 0 {
			return eris.Wrapf(ErrInvalidAnswerShape, "indicator %q expects at least one choice", ind.ID)
		}
		for _, c := range a.Choices {
			if !containsString(ind.Options, c) {
				return eris.Wrapf(ErrInvalidAnswerShape, "indicator %q has no option %q", ind.ID, c)
			}
		}
	case catalog.KindDataTable:
		return validateTableShape(ind, a)
	case catalog.KindChartReview:
		return validateGridShape(ind.ID, a.Marks, len(ind.ChartReview.Criteria), ind.ChartReview.Charts, true)
	case catalog.KindChecklist:
		return validateGridShape(ind.ID, a.Marks, len(ind.Checklist.Rows), len(ind.Checklist.Columns), false)
	}
	return nil
}

func validateTableShape(ind *catalog.Indicator, a Answer) error {
	for id, v := range a.Cells {
		f, ok := ind.Table.Field(id)
		if !ok {
			return eris.Wrapf(ErrInvalidAnswerShape, "indicator %q has no table field %q", ind.ID, id)
		}
		if f.Derived != nil {
			return eris.Wrapf(ErrInvalidAnswerShape, "indicator %q field %q is calculated and cannot be set", ind.ID, id)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return eris.Wrapf(ErrInvalidAnswerShape, "indicator %q field %q expects a non-negative number", ind.ID, id)
		}
	}
	for _, id := range ind.Table.RawFields() {
		if _, ok := a.Cells[id]; !ok {
			return eris.Wrapf(ErrInvalidAnswerShape, "indicator %q missing required column %q", ind.ID, id)
		}
	}
	return nil
}

func validateGridShape(id string, marks [][]Mark, rows, cols int, allowNA bool) error {
	if len(marks) != rows {
		return eris.Wrapf(ErrInvalidAnswerShape, "indicator %q expects %d rows, got %d", id, rows, len(marks))
	}
	for ri, row := range marks {
		if len(row) != cols {
			return eris.Wrapf(ErrInvalidAnswerShape, "indicator %q row %d expects %d cells, got %d", id, ri, cols, len(row))
		}
		for _, m := range row {
			switch m {
			case MarkYes, MarkNo:
			case MarkNA:
				if !allowNA {
					return eris.Wrapf(ErrInvalidAnswerShape, "indicator %q does not accept NA marks", id)
				}
			default:
				return eris.Wrapf(ErrInvalidAnswerShape, "indicator %q has invalid mark %q", id, string(m))
			}
		}
	}
	return nil
}

func containsString(opts []string, s string) bool {
	for _, o := range opts {
		if o == s {
			return true
		}
	}
	return false
}
