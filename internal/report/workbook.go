package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/karuna-health/assess-portal/internal/catalog"
	"github.com/karuna-health/assess-portal/internal/model"
	"github.com/karuna-health/assess-portal/internal/scoring"
)

// ErrEmptyReport is returned when a result contains no scored indicators, so
// there is nothing meaningful to render.
var ErrEmptyReport = eris.New("report: no scored indicators")

var titleCaser = cases.Title(language.English)

// PerformanceLevel maps an overall percentage to the campaign's narrative
// rating.
func PerformanceLevel(percent float64) string {
	switch {
	case percent >= 75:
		return "EXCELLENT"
	case percent >= 50:
		return "GOOD"
	case percent >= 25:
		return "NEEDS IMPROVEMENT"
	default:
		return "CRITICAL"
	}
}

// Filename builds the workbook filename for a facility visit.
func Filename(meta model.FacilityMeta) string {
	name := strings.ReplaceAll(strings.TrimSpace(meta.FacilityName), " ", "_")
	return fmt.Sprintf("assessment_%s_%s.xlsx", name, meta.Date.Format("2006-01-02"))
}

// Workbook renders a scored assessment as a three-sheet workbook: a summary
// with the facility block and category rollups, a per-indicator detail sheet,
// and an action plan seeded from the key gaps. Returns ErrEmptyReport when no
// indicator produced a band.
func Workbook(cat *catalog.Catalog, res *scoring.Result, meta model.FacilityMeta) (*xlsx.File, error) {
	if res.ScoredCount() == 0 {
		return nil, eris.Wrapf(ErrEmptyReport, "facility %q", meta.FacilityName)
	}

	f := xlsx.NewFile()
	if err := summarySheet(f, cat, res, meta); err != nil {
		return nil, err
	}
	if err := detailSheet(f, cat, res); err != nil {
		return nil, err
	}
	if err := actionPlanSheet(f, cat, res); err != nil {
		return nil, err
	}
	return f, nil
}

func summarySheet(f *xlsx.File, cat *catalog.Catalog, res *scoring.Result, meta model.FacilityMeta) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}

	title := sheet.AddRow().AddCell()
	title.Value = cat.Title
	title.SetStyle(headerStyle(14))
	sheet.AddRow()

	info := [][2]string{
		{"Facility", meta.FacilityName},
		{"District", titleCaser.String(strings.ToLower(meta.District))},
		{"Level", meta.Level},
		{"Ownership", meta.Ownership},
		{"Assessor", meta.Assessor},
		{"Assessment Date", meta.Date.Format("02 Jan 2006")},
	}
	if meta.CampaignDay > 0 {
		info = append(info, [2]string{"Campaign Day", fmt.Sprintf("%d", meta.CampaignDay)})
	}
	for _, kv := range info {
		row := sheet.AddRow()
		label := row.AddCell()
		label.Value = kv[0]
		label.SetStyle(labelStyle())
		value := row.AddCell()
		value.Value = kv[1]
		value.SetStyle(plainStyle())
	}
	sheet.AddRow()

	overall := sheet.AddRow()
	label := overall.AddCell()
	label.Value = "Overall Score"
	label.SetStyle(labelStyle())
	score := overall.AddCell()
	score.SetFloatWithFormat(res.Overall.Score, "0.00")
	score.SetStyle(plainStyle())
	pct := overall.AddCell()
	pct.Value = fmt.Sprintf("%.1f%%", res.Overall.Percent())
	pct.SetStyle(plainStyle())
	band := overall.AddCell()
	band.Value = res.Band.Label()
	band.SetStyle(bandStyle(res.Band))
	level := overall.AddCell()
	level.Value = PerformanceLevel(res.Overall.Percent())
	level.SetStyle(labelStyle())
	sheet.AddRow()

	header := sheet.AddRow()
	for _, h := range []string{"Category", "Score", "Percent", "Level"} {
		cell := header.AddCell()
		cell.Value = h
		cell.SetStyle(headerStyle(11))
	}
	for _, cs := range res.Categories {
		row := sheet.AddRow()
		name := row.AddCell()
		name.Value = cs.Title
		name.SetStyle(plainStyle())
		if !cs.Mean.Valid {
			na := row.AddCell()
			na.Value = "N/A"
			na.SetStyle(plainStyle())
			continue
		}
		sc := row.AddCell()
		sc.SetFloatWithFormat(cs.Mean.Score, "0.00")
		sc.SetStyle(plainStyle())
		pc := row.AddCell()
		pc.Value = fmt.Sprintf("%.1f%%", cs.Mean.Percent())
		pc.SetStyle(plainStyle())
		lv := row.AddCell()
		lv.Value = cs.Band.Label()
		lv.SetStyle(bandStyle(cs.Band))
	}
	sheet.AddRow()

	footer := sheet.AddRow().AddCell()
	footer.Value = fmt.Sprintf("Generated %s. %d indicators scored, %d key gaps identified.",
		time.Now().Format("02 Jan 2006"), res.ScoredCount(), len(res.KeyGaps()))
	return nil
}

func detailSheet(f *xlsx.File, cat *catalog.Catalog, res *scoring.Result) error {
	sheet, err := f.AddSheet("Detail")
	if err != nil {
		return eris.Wrap(err, "report: add detail sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Section", "Indicator", "Status", "Score", "Level", "Comment"} {
		cell := header.AddCell()
		cell.Value = h
		cell.SetStyle(headerStyle(11))
	}

	for _, is := range res.Indicators {
		ind, err := cat.Indicator(is.IndicatorID)
		if err != nil {
			return err
		}
		sec, err := cat.Section(is.SectionID)
		if err != nil {
			return err
		}

		row := sheet.AddRow()
		secCell := row.AddCell()
		secCell.Value = sec.Title
		secCell.SetStyle(plainStyle())
		indCell := row.AddCell()
		indCell.Value = ind.Text
		indCell.SetStyle(plainStyle())
		stCell := row.AddCell()
		stCell.Value = titleCaser.String(strings.ReplaceAll(is.Status, "_", " "))
		stCell.SetStyle(plainStyle())
		scCell := row.AddCell()
		lvCell := row.AddCell()
		if is.Scored {
			scCell.SetInt(is.Value)
			lvCell.Value = is.Band.Label()
			lvCell.SetStyle(bandStyle(is.Band))
		} else {
			scCell.Value = "-"
			lvCell.Value = "-"
			lvCell.SetStyle(plainStyle())
		}
		scCell.SetStyle(plainStyle())
		cmCell := row.AddCell()
		cmCell.Value = is.Comment
		cmCell.SetStyle(plainStyle())
	}
	return nil
}

func actionPlanSheet(f *xlsx.File, cat *catalog.Catalog, res *scoring.Result) error {
	sheet, err := f.AddSheet("Action Plan")
	if err != nil {
		return eris.Wrap(err, "report: add action plan sheet")
	}

	header := sheet.AddRow()
	cols := []string{"Identified Gap", "Current Level", "Recommended Action", "Responsible Person", "Timeline", "Resources Needed"}
	for _, h := range cols {
		cell := header.AddCell()
		cell.Value = h
		cell.SetStyle(headerStyle(11))
	}

	for _, gap := range res.KeyGaps() {
		ind, err := cat.Indicator(gap.IndicatorID)
		if err != nil {
			return err
		}
		row := sheet.AddRow()
		gapCell := row.AddCell()
		gapCell.Value = ind.Text
		gapCell.SetStyle(plainStyle())
		lvCell := row.AddCell()
		lvCell.Value = gap.Band.Label()
		lvCell.SetStyle(bandStyle(gap.Band))
		// Remaining columns are filled in by the facility team on site.
		for range cols[2:] {
			cell := row.AddCell()
			cell.SetStyle(plainStyle())
		}
	}
	return nil
}
