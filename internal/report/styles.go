package report

import (
	"github.com/tealeg/xlsx/v2"

	"github.com/karuna-health/assess-portal/internal/catalog"
)

const (
	headerARGB = "FF1F4E78"
	infoARGB   = "FFE8F4F8"
	whiteARGB  = "FFFFFFFF"
	blackARGB  = "FF000000"
)

// bandARGB maps each band to its fill color.
var bandARGB = map[catalog.Band]string{
	catalog.BandRed:        "FFDC3545",
	catalog.BandYellow:     "FFFFC107",
	catalog.BandLightGreen: "FF90EE90",
	catalog.BandDarkGreen:  "FF006400",
}

func thinBorder() xlsx.Border {
	return *xlsx.NewBorder("thin", "thin", "thin", "thin")
}

// headerStyle is the dark-blue banner used for titles and column headers.
func headerStyle(size int) *xlsx.Style {
	s := xlsx.NewStyle()
	s.Font = *xlsx.NewFont(size, "Calibri")
	s.Font.Bold = true
	s.Font.Color = whiteARGB
	s.Fill = *xlsx.NewFill("solid", headerARGB, headerARGB)
	s.Border = thinBorder()
	s.Alignment = xlsx.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}
	s.ApplyFont = true
	s.ApplyFill = true
	s.ApplyBorder = true
	s.ApplyAlignment = true
	return s
}

// labelStyle is the bold light-blue label column on info blocks.
func labelStyle() *xlsx.Style {
	s := xlsx.NewStyle()
	s.Font = *xlsx.NewFont(11, "Calibri")
	s.Font.Bold = true
	s.Fill = *xlsx.NewFill("solid", infoARGB, infoARGB)
	s.Border = thinBorder()
	s.ApplyFont = true
	s.ApplyFill = true
	s.ApplyBorder = true
	return s
}

// plainStyle is a bordered data cell.
func plainStyle() *xlsx.Style {
	s := xlsx.NewStyle()
	s.Font = *xlsx.NewFont(11, "Calibri")
	s.Border = thinBorder()
	s.Alignment = xlsx.Alignment{Vertical: "center", WrapText: true}
	s.ApplyFont = true
	s.ApplyBorder = true
	s.ApplyAlignment = true
	return s
}

// bandStyle fills a cell with the band color, with readable text on the
// dark fills.
func bandStyle(b catalog.Band) *xlsx.Style {
	s := plainStyle()
	argb, ok := bandARGB[b]
	if !ok {
		return s
	}
	s.Fill = *xlsx.NewFill("solid", argb, argb)
	s.ApplyFill = true
	if b == catalog.BandRed || b == catalog.BandDarkGreen {
		s.Font.Color = whiteARGB
	} else {
		s.Font.Color = blackARGB
	}
	return s
}
