package response

import (
	"github.com/rotisserie/eris"

	"github.com/karuna-health/assess-portal/internal/catalog"
)

// Derived computes the calculated cells of a data-table indicator from its
// recorded raw cells. Values are recomputed from scratch on every call, so
// they always reflect the current raw cells. A derived cell whose inputs are
// unavailable (zero denominator, or a mean with no computed inputs) is
// omitted from the result.
func (s *Set) Derived(indicatorID string) (map[string]float64, error) {
	ind, err := s.cat.Indicator(indicatorID)
	if err != nil {
		return nil, err
	}
	if ind.Kind != catalog.KindDataTable {
		return nil, eris.Wrapf(ErrInvalidAnswerShape, "indicator %q is not a data table", indicatorID)
	}
	a, ok := s.answers[indicatorID]
	if !ok {
		return nil, nil
	}
	return deriveCells(ind.Table, a.Cells), nil
}

// deriveCells evaluates derived fields in declaration order, so a mean may
// reference ratio fields declared before it.
func deriveCells(spec *catalog.TableSpec, raw map[string]float64) map[string]float64 {
	values := make(map[string]float64, len(spec.Fields))
	for id, v := range raw {
		values[id] = v
	}
	for _, f := range spec.Fields {
		if f.Derived == nil {
			continue
		}
		switch f.Derived.Op {
		case catalog.DerivedRatioPercent:
			num, okN := values[f.Derived.Numerator]
			den, okD := values[f.Derived.Denominator]
			if okN && okD && den > 0 {
				values[f.ID] = num / den * 100
			}
		case catalog.DerivedMean:
			var sum float64
			var n int
			for _, ref := range f.Derived.Of {
				if v, ok := values[ref]; ok {
					sum += v
					n++
				}
			}
			if n > 0 {
				values[f.ID] = sum / float64(n)
			}
		}
	}
	derived := make(map[string]float64)
	for _, f := range spec.Fields {
		if f.Derived == nil {
			continue
		}
		if v, ok := values[f.ID]; ok {
			derived[f.ID] = v
		}
	}
	return derived
}

// GridPercent computes the percentage of Y marks against eligible (non-NA)
// cells of a chart-review or checklist grid. The second return is false when
// no cell is eligible.
func GridPercent(marks [][]Mark) (float64, bool) {
	var yes, eligible int
	for _, row := range marks {
		for _, m := range row {
			switch m {
			case MarkYes:
				yes++
				eligible++
			case MarkNo:
				eligible++
			}
		}
	}
	if eligible == 0 {
		return 0, false
	}
	return float64(yes) / float64(eligible) * 100, true
}
