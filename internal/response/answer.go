package response

import "github.com/karuna-health/assess-portal/internal/catalog"

// Mark is a single chart-review or checklist cell entry.
type Mark string

const (
	MarkYes Mark = "Y"
	MarkNo  Mark = "N"
	MarkNA  Mark = "NA"
)

// Answer is the typed value recorded for one indicator. Kind selects which
// payload field carries the value; Comment may accompany any kind.
type Answer struct {
	Kind    catalog.Kind       `json:"kind"`
	Bool    bool               `json:"bool,omitempty"`
	Number  float64            `json:"number,omitempty"`
	Text    string             `json:"text,omitempty"`
	Choice  string             `json:"choice,omitempty"`
	Choices []string           `json:"choices,omitempty"`
	Items   map[string]bool    `json:"items,omitempty"`
	Cells   map[string]float64 `json:"cells,omitempty"`
	Marks   [][]Mark           `json:"marks,omitempty"`
	Comment string             `json:"comment,omitempty"`
}

// Yes returns an affirmative yes/no answer.
func Yes() Answer { return Answer{Kind: catalog.KindYesNo, Bool: true} }

// No returns a negative yes/no answer.
func No() Answer { return Answer{Kind: catalog.KindYesNo, Bool: false} }

// YesNo returns a yes/no answer from a bool.
func YesNo(v bool) Answer { return Answer{Kind: catalog.KindYesNo, Bool: v} }

// YesNoText returns a yes/no answer with accompanying free text.
func YesNoText(v bool, text string) Answer {
	return Answer{Kind: catalog.KindYesNoText, Bool: v, Text: text}
}

// Items returns a multi yes/no answer keyed by item label.
func MultiYesNo(items map[string]bool) Answer {
	return Answer{Kind: catalog.KindMultiYesNo, Items: items}
}

// Number returns a numeric answer.
func Number(v float64) Answer { return Answer{Kind: catalog.KindNumber, Number: v} }

// Percent returns a percentage answer.
func Percent(v float64) Answer { return Answer{Kind: catalog.KindPercent, Number: v} }

// ShortText returns a short free-text answer.
func ShortText(s string) Answer { return Answer{Kind: catalog.KindShortText, Text: s} }

// LongText returns a long free-text answer.
func LongText(s string) Answer { return Answer{Kind: catalog.KindLongText, Text: s} }

// Choice returns a single-choice answer.
func Choice(opt string) Answer { return Answer{Kind: catalog.KindSingleChoice, Choice: opt} }

// MultiChoice returns a multi-choice answer.
func MultiChoice(opts ...string) Answer {
	return Answer{Kind: catalog.KindMultiChoice, Choices: opts}
}

// Table returns a data-table answer holding raw cell values keyed by field id.
func Table(cells map[string]float64) Answer {
	return Answer{Kind: catalog.KindDataTable, Cells: cells}
}

// ChartReview returns a chart-review answer: one row of marks per criterion,
// one column per reviewed chart.
func ChartReview(marks [][]Mark) Answer {
	return Answer{Kind: catalog.KindChartReview, Marks: marks}
}

// Checklist returns a checklist answer: one row of Y/N marks per checklist
// row, one column per criterion.
func Checklist(marks [][]Mark) Answer {
	return Answer{Kind: catalog.KindChecklist, Marks: marks}
}

// WithComment returns a copy of the answer carrying a free-text comment.
func (a Answer) WithComment(c string) Answer {
	a.Comment = c
	return a
}

// AllYes reports whether every item of a multi yes/no answer is affirmative.
func (a Answer) AllYes() bool {
	for _, v := range a.Items {
		if !v {
			return false
		}
	}
	return len(a.Items) > 0
}
