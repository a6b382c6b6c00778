package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/karuna-health/assess-portal/internal/catalog"
	"github.com/karuna-health/assess-portal/internal/model"
	"github.com/karuna-health/assess-portal/internal/response"
	"github.com/karuna-health/assess-portal/internal/scoring"
)

func sampleMeta() model.FacilityMeta {
	return model.FacilityMeta{
		FacilityName: "Kawolo General Hospital",
		District:     "BUIKWE",
		Level:        "Hospital",
		Ownership:    "Government",
		Assessor:     "J. Nakato",
		Date:         time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC),
	}
}

func sampleResult(t *testing.T) (*catalog.Catalog, *scoring.Result) {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)

	rs := response.New(cat)
	require.NoError(t, rs.Record("pr_q1", response.Yes()))
	require.NoError(t, rs.Record("pr_q2", response.Yes()))
	require.NoError(t, rs.Record("pr_q3", response.No()))
	require.NoError(t, rs.Record("as_q1", response.No()))
	require.NoError(t, rs.Record("thei_q1", response.Yes()))

	res, err := scoring.Score(rs)
	require.NoError(t, err)
	return cat, res
}

func openWorkbook(t *testing.T, f *xlsx.File) *xlsx.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	reread, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	return reread
}

func sheetByName(t *testing.T, f *xlsx.File, name string) *xlsx.Sheet {
	t.Helper()
	for _, s := range f.Sheets {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("sheet %q not found", name)
	return nil
}

func cellStrings(sheet *xlsx.Sheet) [][]string {
	var out [][]string
	for _, row := range sheet.Rows {
		var cells []string
		for _, c := range row.Cells {
			cells = append(cells, c.String())
		}
		out = append(out, cells)
	}
	return out
}

func flatten(rows [][]string) []string {
	var out []string
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}

func TestWorkbookSheets(t *testing.T) {
	t.Parallel()

	cat, res := sampleResult(t)
	f, err := Workbook(cat, res, sampleMeta())
	require.NoError(t, err)

	reread := openWorkbook(t, f)
	require.Len(t, reread.Sheets, 3)
	assert.Equal(t, "Summary", reread.Sheets[0].Name)
	assert.Equal(t, "Detail", reread.Sheets[1].Name)
	assert.Equal(t, "Action Plan", reread.Sheets[2].Name)
}

func TestWorkbookSummarySheet(t *testing.T) {
	t.Parallel()

	cat, res := sampleResult(t)
	f, err := Workbook(cat, res, sampleMeta())
	require.NoError(t, err)

	summary := flatten(cellStrings(sheetByName(t, openWorkbook(t, f), "Summary")))
	assert.Contains(t, summary, "Kawolo General Hospital")
	assert.Contains(t, summary, "Buikwe", "district is title-cased")
	assert.Contains(t, summary, "J. Nakato")
	assert.Contains(t, summary, "14 Aug 2026")
	assert.Contains(t, summary, "Overall Score")
	assert.Contains(t, summary, res.Band.Label())
	assert.Contains(t, summary, PerformanceLevel(res.Overall.Percent()))
}

func TestWorkbookDetailRoundTrip(t *testing.T) {
	t.Parallel()

	cat, res := sampleResult(t)
	f, err := Workbook(cat, res, sampleMeta())
	require.NoError(t, err)

	detail := cellStrings(sheetByName(t, openWorkbook(t, f), "Detail"))
	require.NotEmpty(t, detail)
	assert.Equal(t, []string{"Section", "Indicator", "Status", "Score", "Level", "Comment"}, detail[0])

	// One data row per catalog indicator, in catalog order.
	indicators := 0
	for _, sec := range cat.Sections {
		indicators += len(sec.Indicators)
	}
	require.Len(t, detail, indicators+1)

	// The scored band labels survive a round trip through the file.
	byLevel := make(map[string]int)
	for _, row := range detail[1:] {
		require.Len(t, row, 6)
		byLevel[row[4]]++
	}
	assert.Equal(t, 3, byLevel[catalog.BandDarkGreen.Label()], "pr_q1, pr_q2 and thei_q1")
	assert.Equal(t, 1, byLevel[catalog.BandYellow.Label()])
	assert.Equal(t, 1, byLevel[catalog.BandRed.Label()])
}

func TestWorkbookActionPlan(t *testing.T) {
	t.Parallel()

	cat, res := sampleResult(t)
	f, err := Workbook(cat, res, sampleMeta())
	require.NoError(t, err)

	plan := cellStrings(sheetByName(t, openWorkbook(t, f), "Action Plan"))
	require.NotEmpty(t, plan)

	// Gaps: pr_q3 (Yellow) and as_q1 (Red).
	require.Len(t, plan, len(res.KeyGaps())+1)
	assert.Equal(t, "Identified Gap", plan[0][0])
	assert.Equal(t, "Current Level", plan[0][1])

	levels := []string{plan[1][1], plan[2][1]}
	assert.Contains(t, levels, catalog.BandYellow.Label())
	assert.Contains(t, levels, catalog.BandRed.Label())
}

func TestWorkbookEmptyResult(t *testing.T) {
	t.Parallel()

	cat, err := catalog.Default()
	require.NoError(t, err)
	res, err := scoring.Score(response.New(cat))
	require.NoError(t, err)

	_, err = Workbook(cat, res, sampleMeta())
	assert.ErrorIs(t, err, ErrEmptyReport)
}

func TestPerformanceLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "EXCELLENT", PerformanceLevel(75))
	assert.Equal(t, "GOOD", PerformanceLevel(74.9))
	assert.Equal(t, "GOOD", PerformanceLevel(50))
	assert.Equal(t, "NEEDS IMPROVEMENT", PerformanceLevel(25))
	assert.Equal(t, "CRITICAL", PerformanceLevel(24.9))
}

func TestFilename(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "assessment_Kawolo_General_Hospital_2026-08-14.xlsx", Filename(sampleMeta()))
}

func TestRoster(t *testing.T) {
	t.Parallel()

	f, err := Roster([]model.Participant{
		{
			Name:            "Grace Auma",
			Cadre:           "Midwife",
			DutyStation:     "Kawolo General Hospital",
			District:        "Buikwe",
			MobileNumber:    "0772123456",
			MobileMoneyName: "Grace Auma",
			CampaignDay:     2,
			CreatedAt:       time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)

	rows := cellStrings(sheetByName(t, openWorkbook(t, f), "Participants"))
	require.Len(t, rows, 2)
	assert.Contains(t, rows[1], "Grace Auma")
	assert.Contains(t, rows[1], "0772123456")
}
