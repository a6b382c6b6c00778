package scoring

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/karuna-health/assess-portal/internal/catalog"
	"github.com/karuna-health/assess-portal/internal/response"
)

// DefaultBreakpoints maps aggregate percentages onto the four bands. The
// same table applies to section, category and overall rollups.
var DefaultBreakpoints = catalog.ThresholdRule{
	Breakpoints: []catalog.Breakpoint{
		{From: 0, Band: catalog.BandRed},
		{From: 60, Band: catalog.BandYellow},
		{From: 80, Band: catalog.BandLightGreen},
		{From: 90, Band: catalog.BandDarkGreen},
	},
}

// Score converts a response set into a Result. It is a pure function of the
// catalog and the recorded answers: it performs no I/O, mutates nothing, and
// returns identical results for identical inputs. Indicators that are
// not applicable, excluded by an unmet condition, unanswered, or carry no
// rule contribute to neither the count nor the sum of any aggregate.
func Score(rs *response.Set) (*Result, error) {
	cat := rs.Catalog()
	res := &Result{}

	byID := make(map[string]*IndicatorScore)

	// First pass: everything except composites, which need sub-bands.
	for _, sec := range cat.Sections {
		for i := range sec.Indicators {
			ind := &sec.Indicators[i]
			score, err := scoreIndicator(rs, sec.ID, ind)
			if err != nil {
				return nil, err
			}
			res.Indicators = append(res.Indicators, score)
			byID[ind.ID] = &res.Indicators[len(res.Indicators)-1]
		}
	}

	// Second pass: composites average their sub-indicator bands.
	for i := range res.Indicators {
		score := &res.Indicators[i]
		ind, err := cat.Indicator(score.IndicatorID)
		if err != nil {
			return nil, err
		}
		if ind.Rule == nil || ind.Rule.Kind != catalog.RuleComposite {
			continue
		}
		if score.Status != response.StatusAnswered.String() && score.Status != response.StatusMissing.String() {
			continue
		}
		var sum, n int
		for _, ref := range ind.Rule.Composite.Of {
			if sub, ok := byID[ref]; ok && sub.Scored {
				sum += sub.Value
				n++
			}
		}
		if n == 0 {
			continue
		}
		mean := float64(sum) / float64(n)
		band := catalog.Band(int(math.Floor(mean + 0.5)))
		score.Scored = true
		score.Status = response.StatusAnswered.String()
		score.Band = band
		score.Value = band.Value()
	}

	// Section, category and overall rollups.
	for _, sec := range cat.Sections {
		res.Sections = append(res.Sections, sectionScore(sec, byID))
	}
	sections := make(map[string]SectionScore, len(res.Sections))
	for _, s := range res.Sections {
		sections[s.SectionID] = s
	}

	var catSum float64
	var catN int
	for _, cg := range cat.Categories {
		cs := CategoryScore{CategoryID: cg.ID, Title: cg.Title}
		var sum float64
		var n int
		for _, sid := range cg.Sections {
			if s, ok := sections[sid]; ok && s.Mean.Valid {
				sum += s.Mean.Score
				n++
			}
		}
		if n > 0 {
			cs.Mean = Value{Score: sum / float64(n), Valid: true}
			cs.Band = DefaultBreakpoints.Band(cs.Mean.Percent())
			catSum += cs.Mean.Score
			catN++
		}
		res.Categories = append(res.Categories, cs)
	}

	if catN > 0 {
		res.Overall = Value{Score: catSum / float64(catN), Valid: true}
		res.Band = DefaultBreakpoints.Band(res.Overall.Percent())
	}

	return res, nil
}

func sectionScore(sec catalog.Section, byID map[string]*IndicatorScore) SectionScore {
	ss := SectionScore{SectionID: sec.ID, Title: sec.Title}
	var sum int
	for _, ind := range sec.Indicators {
		if s, ok := byID[ind.ID]; ok && s.Scored {
			sum += s.Value
			ss.Scored++
		}
	}
	if ss.Scored > 0 {
		ss.Mean = Value{Score: float64(sum) / float64(ss.Scored), Valid: true}
		ss.Band = DefaultBreakpoints.Band(ss.Mean.Percent())
	}
	return ss
}

func scoreIndicator(rs *response.Set, sectionID string, ind *catalog.Indicator) (IndicatorScore, error) {
	score := IndicatorScore{IndicatorID: ind.ID, SectionID: sectionID}

	st, err := rs.Status(ind.ID)
	if err != nil {
		return score, err
	}
	score.Status = st.String()

	if a, ok := rs.Answer(ind.ID); ok {
		score.Comment = answerComment(a)
	}
	if st != response.StatusAnswered || ind.Rule == nil || ind.Rule.Kind == catalog.RuleComposite {
		return score, nil
	}

	a, _, err := rs.Effective(ind.ID)
	if err != nil {
		return score, err
	}

	var band catalog.Band
	switch ind.Rule.Kind {
	case catalog.RuleBinary:
		yes := a.Bool
		if ind.Kind == catalog.KindMultiYesNo {
			yes = a.AllYes()
		}
		if yes {
			band = ind.Rule.Binary.Yes
		} else {
			band = ind.Rule.Binary.No
		}
	case catalog.RuleThreshold:
		pct, ok, err := thresholdInput(rs, ind, a)
		if err != nil {
			return score, err
		}
		if !ok {
			// Inputs insufficient to compute the percentage (e.g. an empty
			// review grid or a zero denominator); the indicator stays
			// unscored rather than defaulting to a band.
			return score, nil
		}
		band = ind.Rule.Threshold.Band(pct)
		score.Percent = &pct
	case catalog.RuleCount:
		band = ind.Rule.Count.Band(int(math.Round(a.Number)))
	default:
		return score, eris.Errorf("scoring: indicator %q has unsupported rule kind %q", ind.ID, ind.Rule.Kind)
	}

	score.Scored = band != catalog.BandNone
	score.Band = band
	score.Value = band.Value()
	return score, nil
}

// thresholdInput resolves the percentage a threshold rule applies to, based
// on the indicator kind.
func thresholdInput(rs *response.Set, ind *catalog.Indicator, a response.Answer) (float64, bool, error) {
	switch ind.Kind {
	case catalog.KindPercent, catalog.KindNumber:
		return a.Number, true, nil
	case catalog.KindChartReview, catalog.KindChecklist:
		pct, ok := response.GridPercent(a.Marks)
		return pct, ok, nil
	case catalog.KindDataTable:
		field := ind.Rule.Threshold.Field
		if v, ok := a.Cells[field]; ok {
			return v, true, nil
		}
		derived, err := rs.Derived(ind.ID)
		if err != nil {
			return 0, false, err
		}
		v, ok := derived[field]
		return v, ok, nil
	default:
		return 0, false, eris.Errorf("scoring: indicator %q kind %q cannot feed a threshold rule", ind.ID, ind.Kind)
	}
}

// answerComment pulls the free-text portion of an answer for the detail
// sheet: an explicit comment wins over the answer's own text.
func answerComment(a response.Answer) string {
	if a.Comment != "" {
		return a.Comment
	}
	if a.Kind == catalog.KindYesNoText || a.Kind == catalog.KindShortText || a.Kind == catalog.KindLongText {
		return a.Text
	}
	return ""
}
