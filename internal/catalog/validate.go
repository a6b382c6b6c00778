package catalog

import "github.com/rotisserie/eris"

// Validate checks catalog consistency: unique ids, resolvable references,
// kind/payload agreement, and threshold breakpoints that partition [0,100].
func (c *Catalog) Validate() error {
	if len(c.Sections) == 0 {
		return eris.New("catalog: no sections")
	}

	seen := make(map[string]bool)
	for _, sec := range c.Sections {
		if sec.ID == "" {
			return eris.New("catalog: section with empty id")
		}
		if seen[sec.ID] {
			return eris.Errorf("catalog: duplicate section id %q", sec.ID)
		}
		seen[sec.ID] = true
		if len(sec.Indicators) == 0 {
			return eris.Errorf("catalog: section %q has no indicators", sec.ID)
		}
		for i := range sec.Indicators {
			if err := c.validateIndicator(&sec.Indicators[i], seen); err != nil {
				return err
			}
		}
	}

	for _, cat := range c.Categories {
		for _, sid := range cat.Sections {
			if _, ok := c.sections[sid]; !ok {
				return eris.Errorf("catalog: category %q references unknown section %q", cat.ID, sid)
			}
		}
	}

	return c.validateConditions()
}

func (c *Catalog) validateIndicator(ind *Indicator, seen map[string]bool) error {
	if ind.ID == "" {
		return eris.New("catalog: indicator with empty id")
	}
	if seen[ind.ID] {
		return eris.Errorf("catalog: duplicate indicator id %q", ind.ID)
	}
	seen[ind.ID] = true

	if !allKinds[ind.Kind] {
		return eris.Errorf("catalog: indicator %q has unknown kind %q", ind.ID, ind.Kind)
	}

	switch ind.Kind {
	case KindMultiYesNo:
		if len(ind.Items) == 0 {
			return eris.Errorf("catalog: indicator %q needs items", ind.ID)
		}
	case KindSingleChoice, KindMultiChoice:
		if len(ind.Options) == 0 {
			return eris.Errorf("catalog: indicator %q needs options", ind.ID)
		}
	case KindDataTable:
		if ind.Table == nil || len(ind.Table.Fields) == 0 {
			return eris.Errorf("catalog: indicator %q needs table fields", ind.ID)
		}
		if err := validateTable(ind.ID, ind.Table); err != nil {
			return err
		}
	case KindChartReview:
		if ind.ChartReview == nil || len(ind.ChartReview.Criteria) == 0 || ind.ChartReview.Charts <= 0 {
			return eris.Errorf("catalog: indicator %q needs chart-review criteria and a chart count", ind.ID)
		}
	case KindChecklist:
		if ind.Checklist == nil || len(ind.Checklist.Rows) == 0 || len(ind.Checklist.Columns) == 0 {
			return eris.Errorf("catalog: indicator %q needs checklist rows and columns", ind.ID)
		}
	}

	return validateRule(ind)
}

func validateTable(id string, t *TableSpec) error {
	fields := make(map[string]*Field, len(t.Fields))
	for i := range t.Fields {
		f := &t.Fields[i]
		if f.ID == "" {
			return eris.Errorf("catalog: indicator %q has a table field with empty id", id)
		}
		if fields[f.ID] != nil {
			return eris.Errorf("catalog: indicator %q has duplicate table field %q", id, f.ID)
		}
		fields[f.ID] = f
	}
	for _, f := range t.Fields {
		if f.Derived == nil {
			continue
		}
		switch f.Derived.Op {
		case DerivedRatioPercent:
			for _, ref := range []string{f.Derived.Numerator, f.Derived.Denominator} {
				if fields[ref] == nil {
					return eris.Errorf("catalog: indicator %q field %q references unknown field %q", id, f.ID, ref)
				}
			}
		case DerivedMean:
			if len(f.Derived.Of) == 0 {
				return eris.Errorf("catalog: indicator %q field %q has empty mean inputs", id, f.ID)
			}
			for _, ref := range f.Derived.Of {
				if fields[ref] == nil {
					return eris.Errorf("catalog: indicator %q field %q references unknown field %q", id, f.ID, ref)
				}
			}
		default:
			return eris.Errorf("catalog: indicator %q field %q has unknown derived op %q", id, f.ID, f.Derived.Op)
		}
	}
	return nil
}

func validateRule(ind *Indicator) error {
	if ind.Rule == nil {
		return nil
	}
	r := ind.Rule
	switch r.Kind {
	case RuleBinary:
		if r.Binary == nil {
			return eris.Errorf("catalog: indicator %q binary rule missing payload", ind.ID)
		}
		if r.Binary.Yes == BandNone || r.Binary.No == BandNone {
			return eris.Errorf("catalog: indicator %q binary rule needs both bands", ind.ID)
		}
	case RuleThreshold:
		if r.Threshold == nil {
			return eris.Errorf("catalog: indicator %q threshold rule missing payload", ind.ID)
		}
		bps := r.Threshold.Breakpoints
		if len(bps) == 0 {
			return eris.Errorf("catalog: indicator %q has no breakpoints", ind.ID)
		}
		// Breakpoints must partition [0,100]: start at 0, strictly ascend,
		// stay in range.
		if bps[0].From != 0 {
			return eris.Errorf("catalog: indicator %q breakpoints must start at 0", ind.ID)
		}
		for i, bp := range bps {
			if bp.Band == BandNone {
				return eris.Errorf("catalog: indicator %q breakpoint %d has no band", ind.ID, i)
			}
			if bp.From < 0 || bp.From > 100 {
				return eris.Errorf("catalog: indicator %q breakpoint %d out of range", ind.ID, i)
			}
			if i > 0 && bp.From <= bps[i-1].From {
				return eris.Errorf("catalog: indicator %q breakpoints must ascend", ind.ID)
			}
		}
		if ind.Kind == KindDataTable {
			if r.Threshold.Field == "" {
				return eris.Errorf("catalog: indicator %q threshold rule needs a field", ind.ID)
			}
			if _, ok := ind.Table.Field(r.Threshold.Field); !ok {
				return eris.Errorf("catalog: indicator %q threshold field %q not in table", ind.ID, r.Threshold.Field)
			}
		}
	case RuleCount:
		if r.Count == nil || len(r.Count.Steps) == 0 || r.Count.Else == BandNone {
			return eris.Errorf("catalog: indicator %q count rule incomplete", ind.ID)
		}
		prev := -1
		for _, s := range r.Count.Steps {
			if s.Max <= prev {
				return eris.Errorf("catalog: indicator %q count steps must ascend", ind.ID)
			}
			if s.Band == BandNone {
				return eris.Errorf("catalog: indicator %q count step has no band", ind.ID)
			}
			prev = s.Max
		}
	case RuleComposite:
		if r.Composite == nil || len(r.Composite.Of) == 0 {
			return eris.Errorf("catalog: indicator %q composite rule has no sub-indicators", ind.ID)
		}
	default:
		return eris.Errorf("catalog: indicator %q has unknown rule kind %q", ind.ID, r.Kind)
	}
	return nil
}

// validateConditions checks depends_on and composite references after
// indexing, including rejection of self-references and dependency cycles.
func (c *Catalog) validateConditions() error {
	for id, ind := range c.indicators {
		if ind.DependsOn != nil {
			ref := ind.DependsOn.Indicator
			if ref == id {
				return eris.Errorf("catalog: indicator %q depends on itself", id)
			}
			if _, ok := c.indicators[ref]; !ok {
				return eris.Errorf("catalog: indicator %q depends on unknown indicator %q", id, ref)
			}
		}
		if ind.Rule != nil && ind.Rule.Kind == RuleComposite {
			for _, ref := range ind.Rule.Composite.Of {
				sub, ok := c.indicators[ref]
				if !ok {
					return eris.Errorf("catalog: indicator %q composes unknown indicator %q", id, ref)
				}
				if sub.Rule != nil && sub.Rule.Kind == RuleComposite {
					return eris.Errorf("catalog: indicator %q composes composite indicator %q", id, ref)
				}
			}
		}
	}

	// Walk dependency chains; a chain longer than the indicator count is a cycle.
	for id, ind := range c.indicators {
		steps := 0
		for cur := ind; cur.DependsOn != nil; cur = c.indicators[cur.DependsOn.Indicator] {
			steps++
			if steps > len(c.indicators) {
				return eris.Errorf("catalog: dependency cycle through indicator %q", id)
			}
		}
	}
	return nil
}
