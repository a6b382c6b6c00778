package response

import (
	"github.com/rotisserie/eris"

	"github.com/karuna-health/assess-portal/internal/catalog"
)

// Input is the wire form of one submission's raw answers, keyed by
// indicator id.
type Input struct {
	Answers               map[string]Answer `json:"answers"`
	NotApplicableSections []string          `json:"not_applicable_sections,omitempty"`
}

// Build constructs a response set from a wire payload. Section overrides are
// applied first; answers are recorded in catalog order so errors surface
// deterministically. Unknown ids and shape mismatches fail the whole build.
func Build(cat *catalog.Catalog, in Input) (*Set, error) {
	set := New(cat)

	for _, sid := range in.NotApplicableSections {
		if err := set.MarkSectionNotApplicable(sid); err != nil {
			return nil, err
		}
	}

	recorded := 0
	for _, sec := range cat.Sections {
		for _, ind := range sec.Indicators {
			a, ok := in.Answers[ind.ID]
			if !ok {
				continue
			}
			if err := set.Record(ind.ID, a); err != nil {
				return nil, err
			}
			recorded++
		}
	}
	if recorded != len(in.Answers) {
		for id := range in.Answers {
			if _, err := cat.Indicator(id); err != nil {
				return nil, eris.Wrapf(catalog.ErrNotFound, "answer for unknown indicator %q", id)
			}
		}
	}
	return set, nil
}
