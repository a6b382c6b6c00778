package catalog

import (
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when an indicator or section id is not in the catalog.
var ErrNotFound = eris.New("catalog: not found")

// Band is one of the four color-coded performance levels.
type Band int

const (
	BandNone Band = iota
	BandRed
	BandYellow
	BandLightGreen
	BandDarkGreen
)

var bandSlugs = map[Band]string{
	BandRed:        "red",
	BandYellow:     "yellow",
	BandLightGreen: "light_green",
	BandDarkGreen:  "dark_green",
}

var bandLabels = map[Band]string{
	BandNone:       "N/A",
	BandRed:        "Red",
	BandYellow:     "Yellow",
	BandLightGreen: "Light Green",
	BandDarkGreen:  "Dark Green",
}

// ParseBand maps a display label back to a Band. Unknown labels map to BandNone.
func ParseBand(label string) Band {
	for b, l := range bandLabels {
		if l == label {
			return b
		}
	}
	return BandNone
}

// Label returns the display label for the band.
func (b Band) Label() string {
	if l, ok := bandLabels[b]; ok {
		return l
	}
	return "N/A"
}

// Value returns the numeric score for the band, 1 (Red) through 4 (Dark Green).
func (b Band) Value() int {
	if b < BandRed || b > BandDarkGreen {
		return 0
	}
	return int(b)
}

func (b *Band) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return eris.Wrap(err, "catalog: decode band")
	}
	for band, slug := range bandSlugs {
		if slug == s {
			*b = band
			return nil
		}
	}
	return eris.Errorf("catalog: unknown band %q", s)
}

func (b Band) MarshalYAML() (any, error) {
	if slug, ok := bandSlugs[b]; ok {
		return slug, nil
	}
	return nil, eris.Errorf("catalog: band %d has no slug", int(b))
}

// Kind identifies the shape of a question and its answer.
type Kind string

const (
	KindYesNo        Kind = "yes_no"
	KindYesNoText    Kind = "yes_no_text"
	KindMultiYesNo   Kind = "multi_yes_no"
	KindNumber       Kind = "number"
	KindPercent      Kind = "percent"
	KindShortText    Kind = "short_text"
	KindLongText     Kind = "long_text"
	KindSingleChoice Kind = "single_choice"
	KindMultiChoice  Kind = "multi_choice"
	KindDataTable    Kind = "data_table"
	KindChartReview  Kind = "chart_review"
	KindChecklist    Kind = "checklist"
)

var allKinds = map[Kind]bool{
	KindYesNo: true, KindYesNoText: true, KindMultiYesNo: true,
	KindNumber: true, KindPercent: true, KindShortText: true,
	KindLongText: true, KindSingleChoice: true, KindMultiChoice: true,
	KindDataTable: true, KindChartReview: true, KindChecklist: true,
}

// Condition gates an indicator's visibility on another indicator's answer.
// Equals accepts "yes", "no", "all" (every item checked), an option value,
// a bare number, or a ">=N" / "<N" comparison.
type Condition struct {
	Indicator string   `yaml:"indicator"`
	Equals    string   `yaml:"equals,omitempty"`
	AnyOf     []string `yaml:"any_of,omitempty"`
}

// Field is a single column in a data-entry table. A field with a Derived
// spec is computed from sibling fields and is never entered directly.
type Field struct {
	ID      string   `yaml:"id"`
	Label   string   `yaml:"label"`
	Derived *Derived `yaml:"derived,omitempty"`
}

// DerivedOp enumerates the supported derived-cell computations.
type DerivedOp string

const (
	// DerivedRatioPercent computes numerator/denominator * 100.
	DerivedRatioPercent DerivedOp = "ratio_percent"
	// DerivedMean computes the arithmetic mean of the listed fields.
	DerivedMean DerivedOp = "mean"
)

// Derived describes how a calculated field is computed from its siblings.
type Derived struct {
	Op          DerivedOp `yaml:"op"`
	Numerator   string    `yaml:"numerator,omitempty"`
	Denominator string    `yaml:"denominator,omitempty"`
	Of          []string  `yaml:"of,omitempty"`
}

// TableSpec declares the columns of a data-entry table indicator.
type TableSpec struct {
	Fields []Field `yaml:"fields"`
}

// RawFields returns the ids of the directly entered (non-derived) fields.
func (t *TableSpec) RawFields() []string {
	var ids []string
	for _, f := range t.Fields {
		if f.Derived == nil {
			ids = append(ids, f.ID)
		}
	}
	return ids
}

// Field returns the field with the given id.
func (t *TableSpec) Field(id string) (Field, bool) {
	for _, f := range t.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// ChartReviewSpec declares a chart-review table: a fixed number of sampled
// records marked Y/N/NA against each service criterion.
type ChartReviewSpec struct {
	Criteria []string `yaml:"criteria"`
	Charts   int      `yaml:"charts"`
}

// ChecklistSpec declares a checklist table: per-row Y/N marks across fixed
// criteria columns.
type ChecklistSpec struct {
	Rows    []string `yaml:"rows"`
	Columns []string `yaml:"columns"`
}

// RuleKind enumerates the scoring rule families.
type RuleKind string

const (
	RuleBinary    RuleKind = "binary"
	RuleThreshold RuleKind = "threshold"
	RuleCount     RuleKind = "count"
	RuleComposite RuleKind = "composite"
)

// BinaryRule maps a yes/no (or all-yes/any-no) answer to two bands.
type BinaryRule struct {
	Yes Band `yaml:"yes"`
	No  Band `yaml:"no"`
}

// Breakpoint is the lower bound of a threshold band. Breakpoints are listed
// ascending and the first must start at 0 so the set partitions [0,100].
type Breakpoint struct {
	From float64 `yaml:"from"`
	Band Band    `yaml:"band"`
}

// ThresholdRule maps a computed percentage through ordered breakpoints.
// Field selects the table column carrying the percentage for data-table
// indicators; other kinds compute their percentage implicitly.
type ThresholdRule struct {
	Field       string       `yaml:"field,omitempty"`
	Breakpoints []Breakpoint `yaml:"breakpoints"`
}

// Band returns the band for a value, taking the highest breakpoint whose
// lower bound the value meets.
func (r *ThresholdRule) Band(v float64) Band {
	band := BandNone
	for _, bp := range r.Breakpoints {
		if v >= bp.From {
			band = bp.Band
		}
	}
	return band
}

// CountStep maps defect counts up to Max (inclusive) to a band.
type CountStep struct {
	Max  int  `yaml:"max"`
	Band Band `yaml:"band"`
}

// CountRule maps a raw defect count through ascending steps; counts beyond
// the last step score Else. More defects always score the same or worse.
type CountRule struct {
	Steps []CountStep `yaml:"steps"`
	Else  Band        `yaml:"else"`
}

// Band returns the band for the given count.
func (r *CountRule) Band(n int) Band {
	for _, s := range r.Steps {
		if n <= s.Max {
			return s.Band
		}
	}
	return r.Else
}

// CompositeRule averages the bands of a fixed set of sub-indicators,
// rounding half-up to the nearest whole band.
type CompositeRule struct {
	Of []string `yaml:"of"`
}

// Rule is the scoring rule for an indicator. Exactly one of the rule
// payloads is set, selected by Kind. Indicators without a rule are
// informational and never aggregate.
type Rule struct {
	Kind      RuleKind       `yaml:"kind"`
	Binary    *BinaryRule    `yaml:"binary,omitempty"`
	Threshold *ThresholdRule `yaml:"threshold,omitempty"`
	Count     *CountRule     `yaml:"count,omitempty"`
	Composite *CompositeRule `yaml:"composite,omitempty"`
}

// Indicator is a single scoreable question within a section. The Kind
// selects which of the payload fields (Items, Options, Table, ChartReview,
// Checklist) applies.
type Indicator struct {
	ID           string           `yaml:"id"`
	Text         string           `yaml:"text"`
	Kind         Kind             `yaml:"kind"`
	Instructions string           `yaml:"instructions,omitempty"`
	DependsOn    *Condition       `yaml:"depends_on,omitempty"`
	Items        []string         `yaml:"items,omitempty"`
	Options      []string         `yaml:"options,omitempty"`
	Table        *TableSpec       `yaml:"table,omitempty"`
	ChartReview  *ChartReviewSpec `yaml:"chart_review,omitempty"`
	Checklist    *ChecklistSpec   `yaml:"checklist,omitempty"`
	Rule         *Rule            `yaml:"rule,omitempty"`
}

// Scored reports whether the indicator carries a scoring rule.
func (i *Indicator) Scored() bool { return i.Rule != nil }

// Section is a named grouping of indicators sharing a standard.
type Section struct {
	ID           string      `yaml:"id"`
	Title        string      `yaml:"title"`
	Standard     string      `yaml:"standard,omitempty"`
	Instructions string      `yaml:"instructions,omitempty"`
	AllowNA      bool        `yaml:"allow_na,omitempty"`
	Indicators   []Indicator `yaml:"indicators"`
}

// Category groups sections for aggregate reporting.
type Category struct {
	ID       string   `yaml:"id"`
	Title    string   `yaml:"title"`
	Sections []string `yaml:"sections"`
}

// Catalog is the immutable assessment definition. Construct via Parse,
// Load or Default; never mutate after construction.
type Catalog struct {
	Title      string     `yaml:"title"`
	Categories []Category `yaml:"categories"`
	Sections   []Section  `yaml:"sections"`

	indicators map[string]*Indicator
	sections   map[string]*Section
	sectionOf  map[string]string
}

// Indicator returns the indicator with the given id.
func (c *Catalog) Indicator(id string) (*Indicator, error) {
	ind, ok := c.indicators[id]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "indicator %q", id)
	}
	return ind, nil
}

// Section returns the section with the given id.
func (c *Catalog) Section(id string) (*Section, error) {
	sec, ok := c.sections[id]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "section %q", id)
	}
	return sec, nil
}

// SectionOf returns the id of the section containing the indicator.
func (c *Catalog) SectionOf(indicatorID string) (string, error) {
	sid, ok := c.sectionOf[indicatorID]
	if !ok {
		return "", eris.Wrapf(ErrNotFound, "indicator %q", indicatorID)
	}
	return sid, nil
}

func (c *Catalog) index() {
	c.indicators = make(map[string]*Indicator)
	c.sections = make(map[string]*Section)
	c.sectionOf = make(map[string]string)
	for si := range c.Sections {
		sec := &c.Sections[si]
		c.sections[sec.ID] = sec
		for ii := range sec.Indicators {
			ind := &sec.Indicators[ii]
			c.indicators[ind.ID] = ind
			c.sectionOf[ind.ID] = sec.ID
		}
	}
}
