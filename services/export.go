package services

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/foloup/backend/models"
	"github.com/xuri/excelize/v2"
)

const candidatesSheet = "Candidates"

var candidateHeaders = []string{"Rank", "Name", "Email", "Phone", "ATS Score", "Missing Skills", "Feedback", "Resume"}

// ExportCandidates renders candidates ranked by ATS score (unscored last) as an XLSX workbook
func ExportCandidates(interview *models.Interview, candidates []models.Candidate) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", candidatesSheet); err != nil {
		return nil, err
	}

	ranked := slices.Clone(candidates)
	slices.SortStableFunc(ranked, func(a, b models.Candidate) int {
		return cmp.Compare(scoreOf(b), scoreOf(a))
	})

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create wrap style: %w", err)
	}

	for col, header := range candidateHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(candidatesSheet, cell, header)
		f.SetCellStyle(candidatesSheet, cell, cell, headerStyle)
	}
	f.SetColWidth(candidatesSheet, "A", "A", 8)
	f.SetColWidth(candidatesSheet, "B", "D", 25)
	f.SetColWidth(candidatesSheet, "E", "E", 12)
	f.SetColWidth(candidatesSheet, "F", "G", 50)
	f.SetColWidth(candidatesSheet, "H", "H", 30)

	for i, c := range ranked {
		row := i + 2
		values := []any{i + 1, c.Name, c.Email, c.Phone, "", strings.Join(c.ATSMissingSkills, ", "), c.ATSFeedback, c.ResumeFilename}
		if c.ATSScore != nil {
			values[4] = *c.ATSScore
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(candidatesSheet, cell, v)
		}
		f.SetCellStyle(candidatesSheet, fmt.Sprintf("F%d", row), fmt.Sprintf("G%d", row), wrapStyle)
	}

	if len(ranked) > 0 {
		f.AutoFilter(candidatesSheet, fmt.Sprintf("A1:H%d", len(ranked)+1), []excelize.AutoFilterOptions{})
	}
	f.SetPanes(candidatesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	if interview != nil {
		f.SetDocProps(&excelize.DocProperties{Title: interview.Name + " candidates"})
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, nil
}

func scoreOf(c models.Candidate) int {
	if c.ATSScore == nil {
		return -1
	}
	return *c.ATSScore
}
