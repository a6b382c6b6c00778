package report

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/karuna-health/assess-portal/internal/model"
)

// Roster renders the registered participants as a single-sheet workbook for
// the campaign coordination team.
func Roster(participants []model.Participant) (*xlsx.File, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Participants")
	if err != nil {
		return nil, eris.Wrap(err, "report: add roster sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"#", "Name", "Cadre", "Duty Station", "District", "Mobile Number", "Mobile Money Name", "Campaign Day", "Registered"} {
		cell := header.AddCell()
		cell.Value = h
		cell.SetStyle(headerStyle(11))
	}

	for i, p := range participants {
		row := sheet.AddRow()
		cells := []string{
			fmt.Sprintf("%d", i+1),
			p.Name,
			p.Cadre,
			p.DutyStation,
			p.District,
			p.MobileNumber,
			p.MobileMoneyName,
		}
		for _, v := range cells {
			cell := row.AddCell()
			cell.Value = v
			cell.SetStyle(plainStyle())
		}
		day := row.AddCell()
		if p.CampaignDay > 0 {
			day.SetInt(p.CampaignDay)
		}
		day.SetStyle(plainStyle())
		reg := row.AddCell()
		if !p.CreatedAt.IsZero() {
			reg.Value = p.CreatedAt.Format(time.RFC3339)
		}
		reg.SetStyle(plainStyle())
	}

	return f, nil
}
