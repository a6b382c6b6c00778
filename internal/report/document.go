package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/karuna-health/assess-portal/internal/catalog"
	"github.com/karuna-health/assess-portal/internal/model"
	"github.com/karuna-health/assess-portal/internal/scoring"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// SectionDocument renders one section's scored outcome as an HTML fragment
// suitable for embedding in the portal or attaching to mail. Returns
// ErrEmptyReport when the section produced no scored indicators.
func SectionDocument(cat *catalog.Catalog, res *scoring.Result, sectionID string, meta model.FacilityMeta) ([]byte, error) {
	sec, err := cat.Section(sectionID)
	if err != nil {
		return nil, err
	}
	ss, ok := res.Section(sectionID)
	if !ok || ss.Scored == 0 {
		return nil, eris.Wrapf(ErrEmptyReport, "section %q", sectionID)
	}

	src, err := sectionMarkdown(cat, res, sec, ss, meta)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return nil, eris.Wrapf(err, "report: render section %q", sectionID)
	}
	return buf.Bytes(), nil
}

func sectionMarkdown(cat *catalog.Catalog, res *scoring.Result, sec *catalog.Section, ss scoring.SectionScore, meta model.FacilityMeta) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", sec.Title)
	fmt.Fprintf(&b, "**Facility:** %s, %s\n", meta.FacilityName, titleCaser.String(strings.ToLower(meta.District)))
	fmt.Fprintf(&b, "**Date:** %s\n\n", meta.Date.Format("02 Jan 2006"))

	if sec.Standard != "" {
		fmt.Fprintf(&b, "> %s\n\n", sec.Standard)
	}

	fmt.Fprintf(&b, "**Section score:** %.2f (%.1f%%, %s)\n\n", ss.Mean.Score, ss.Mean.Percent(), ss.Band.Label())

	b.WriteString("| Indicator | Status | Level | Comment |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, is := range res.Indicators {
		if is.SectionID != sec.ID {
			continue
		}
		ind, err := cat.Indicator(is.IndicatorID)
		if err != nil {
			return nil, err
		}
		level := "-"
		if is.Scored {
			level = is.Band.Label()
		}
		status := titleCaser.String(strings.ReplaceAll(is.Status, "_", " "))
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			mdEscape(ind.Text), status, level, mdEscape(is.Comment))
	}

	gaps := 0
	for _, g := range res.KeyGaps() {
		if g.SectionID == sec.ID {
			gaps++
		}
	}
	if gaps > 0 {
		fmt.Fprintf(&b, "\n%d indicator(s) in this section need follow-up action.\n", gaps)
	}

	return []byte(b.String()), nil
}

// mdEscape keeps free text from breaking the markdown table layout.
func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
