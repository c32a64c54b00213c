// Package export renders candidate lists as Excel workbooks.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"recruitai/internal/storage"
)

const (
	ShortlistSheet = "Shortlist"
	SummarySheet   = "Summary"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var shortlistHeaders = []string{"Rank", "Candidate", "Email", "Current Role", "Score", "Status", "Tags", "Strengths", "Recommendation"}

// WriteShortlist writes a workbook with one row per candidate, in the given
// order, plus a summary sheet.
func WriteShortlist(w io.Writer, cands []*storage.Candidate, title string, generated time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", ShortlistSheet)
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	if err := writeShortlistSheet(f, cands); err != nil {
		return fmt.Errorf("failed to create shortlist sheet: %w", err)
	}
	if err := writeSummarySheet(f, cands, title, generated); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func border() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
}

func writeShortlistSheet(f *excelize.File, cands []*storage.Candidate) error {
	sheet := ShortlistSheet
	widths := map[string]float64{"A": 8, "B": 25, "C": 30, "D": 25, "E": 10, "F": 14, "G": 25, "H": 50, "I": 40}
	for col, wd := range widths {
		f.SetColWidth(sheet, col, col, wd)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border(),
	})
	if err != nil {
		return err
	}
	highStyle, err := f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"C6EFCE"}, Pattern: 1},
		Border: border(),
	})
	if err != nil {
		return err
	}
	midStyle, err := f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"FFEB9C"}, Pattern: 1},
		Border: border(),
	})
	if err != nil {
		return err
	}

	for i, h := range shortlistHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for i, c := range cands {
		row := i + 2
		values := []interface{}{
			i + 1,
			c.Name,
			c.Email,
			c.CurrentRole,
			c.Score,
			string(c.EffectiveStatus()),
			strings.Join(c.Tags, ", "),
			strings.Join(c.Strengths, "; "),
			c.Recommendation,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheet, cell, v)
		}

		style := midStyle
		if c.Score >= 90 {
			style = highStyle
		}
		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(values), row)
		f.SetCellStyle(sheet, first, last, style)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, cands []*storage.Candidate, title string, generated time.Time) error {
	sheet := SummarySheet
	f.SetColWidth(sheet, "A", "A", 22)
	f.SetColWidth(sheet, "B", "B", 40)

	labelStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return err
	}

	var avg float64
	for _, c := range cands {
		avg += c.Score
	}
	if len(cands) > 0 {
		avg /= float64(len(cands))
	}

	if title == "" {
		title = "All roles"
	}
	rows := [][2]interface{}{
		{"Report", "RecruitAI shortlist"},
		{"Role", title},
		{"Generated", generated.Format("2006-01-02 15:04 MST")},
		{"Candidates", len(cands)},
		{"Average score", fmt.Sprintf("%.1f", avg)},
	}
	for i, r := range rows {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", i+1), r[0])
		f.SetCellValue(sheet, fmt.Sprintf("B%d", i+1), r[1])
		f.SetCellStyle(sheet, fmt.Sprintf("A%d", i+1), fmt.Sprintf("A%d", i+1), labelStyle)
	}
	return nil
}
