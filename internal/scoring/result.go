package scoring

import "github.com/karuna-health/assess-portal/internal/catalog"

// Value is an aggregate score that may be undefined. A section or category
// with no applicable-and-answered indicators has Valid == false and is
// reported as N/A, never as zero.
type Value struct {
	Score float64 `json:"score"`
	Valid bool    `json:"valid"`
}

// Percent converts a 1-4 aggregate score to a percentage of the maximum.
func (v Value) Percent() float64 {
	if !v.Valid {
		return 0
	}
	return v.Score / 4 * 100
}

// IndicatorScore is the scored outcome of one indicator.
type IndicatorScore struct {
	IndicatorID string        `json:"indicator_id"`
	SectionID   string        `json:"section_id"`
	Status      string        `json:"status"`
	Scored      bool          `json:"scored"`
	Band        catalog.Band  `json:"band,omitempty"`
	Value       int           `json:"value,omitempty"`
	Percent     *float64      `json:"percent,omitempty"`
	Comment     string        `json:"comment,omitempty"`
}

// SectionScore aggregates one section's indicator values.
type SectionScore struct {
	SectionID string       `json:"section_id"`
	Title     string       `json:"title"`
	Mean      Value        `json:"mean"`
	Band      catalog.Band `json:"band,omitempty"`
	Scored    int          `json:"scored"`
}

// CategoryScore aggregates one category's section means.
type CategoryScore struct {
	CategoryID string       `json:"category_id"`
	Title      string       `json:"title"`
	Mean       Value        `json:"mean"`
	Band       catalog.Band `json:"band,omitempty"`
}

// Result is the immutable outcome of scoring one response set. Slices are
// ordered by catalog declaration order, so scoring the same set twice yields
// identical results.
type Result struct {
	Indicators []IndicatorScore `json:"indicators"`
	Sections   []SectionScore   `json:"sections"`
	Categories []CategoryScore  `json:"categories"`
	Overall    Value            `json:"overall"`
	Band       catalog.Band     `json:"band,omitempty"`
}

// Indicator returns the score entry for the given indicator id.
func (r *Result) Indicator(id string) (IndicatorScore, bool) {
	for _, s := range r.Indicators {
		if s.IndicatorID == id {
			return s, true
		}
	}
	return IndicatorScore{}, false
}

// Section returns the aggregate entry for the given section id.
func (r *Result) Section(id string) (SectionScore, bool) {
	for _, s := range r.Sections {
		if s.SectionID == id {
			return s, true
		}
	}
	return SectionScore{}, false
}

// KeyGaps returns the indicators scoring below Light Green, in catalog
// order. These feed the action plan.
func (r *Result) KeyGaps() []IndicatorScore {
	var gaps []IndicatorScore
	for _, s := range r.Indicators {
		if s.Scored && s.Band < catalog.BandLightGreen {
			gaps = append(gaps, s)
		}
	}
	return gaps
}

// ScoredCount returns the number of indicators that produced a band.
func (r *Result) ScoredCount() int {
	n := 0
	for _, s := range r.Indicators {
		if s.Scored {
			n++
		}
	}
	return n
}
