package response

import (
	"strconv"
	"strings"

	"github.com/karuna-health/assess-portal/internal/catalog"
)

// visible evaluates the indicator's conditional-visibility predicate against
// the current answers. The controlling indicator must itself be visible and
// answered with a matching value; chains evaluate transitively.
func (s *Set) visible(ind *catalog.Indicator) bool {
	cond := ind.DependsOn
	if cond == nil {
		return true
	}
	parent, err := s.cat.Indicator(cond.Indicator)
	if err != nil {
		return false
	}
	if !s.visible(parent) {
		return false
	}
	answer, ok := s.answers[parent.ID]
	if !ok {
		return false
	}
	if len(cond.AnyOf) > 0 {
		for _, want := range cond.AnyOf {
			if answerMatches(answer, want) {
				return true
			}
		}
		return false
	}
	return answerMatches(answer, cond.Equals)
}

// answerMatches compares a recorded answer against a condition's expected
// value: "yes"/"no" for booleans, "all"/"any" for multi yes/no items,
// numeric comparisons (">=80", "<3", or a bare number) for numbers and
// percentages, and literal equality for choices.
func answerMatches(a Answer, want string) bool {
	switch a.Kind {
	case catalog.KindYesNo, catalog.KindYesNoText:
		return (want == "yes") == a.Bool
	case catalog.KindMultiYesNo:
		switch want {
		case "all":
			return a.AllYes()
		case "any":
			for _, v := range a.Items {
				if v {
					return true
				}
			}
			return false
		}
		return false
	case catalog.KindNumber, catalog.KindPercent:
		return numberMatches(a.Number, want)
	case catalog.KindSingleChoice:
		return a.Choice == want
	case catalog.KindMultiChoice:
		for _, c := range a.Choices {
			if c == want {
				return true
			}
		}
		return false
	}
	return false
}

func numberMatches(v float64, want string) bool {
	op := "=="
	num := want
	for _, candidate := range []string{">=", "<=", ">", "<"} {
		if strings.HasPrefix(want, candidate) {
			op = candidate
			num = strings.TrimSpace(want[len(candidate):])
			break
		}
	}
	threshold, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return false
	}
	switch op {
	case ">=":
		return v >= threshold
	case "<=":
		return v <= threshold
	case ">":
		return v > threshold
	case "<":
		return v < threshold
	default:
		return v == threshold
	}
}
