package services

import (
	"testing"

	"github.com/foloup/backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func intPtr(n int) *int { return &n }

func TestExportCandidates_RanksByScore(t *testing.T) {
	candidates := []models.Candidate{
		{Name: "Unscored", Email: "u@example.com"},
		{Name: "Low", Email: "low@example.com", ATSScore: intPtr(35), ATSMissingSkills: []string{"Go", "SQL"}},
		{Name: "High", Email: "high@example.com", ATSScore: intPtr(91), ATSFeedback: "Excellent fit", ResumeFilename: "high.pdf"},
	}

	buf, err := ExportCandidates(&models.Interview{Name: "Backend Engineer"}, candidates)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(candidatesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, candidateHeaders, rows[0])

	assert.Equal(t, []string{"1", "High", "high@example.com", "", "91", "", "Excellent fit", "high.pdf"}, rows[1])
	assert.Equal(t, "Low", rows[2][1])
	assert.Equal(t, "35", rows[2][4])
	assert.Equal(t, "Go, SQL", rows[2][5])
	assert.Equal(t, "Unscored", rows[3][1])
	assert.Equal(t, "3", rows[3][0])

	props, err := f.GetDocProps()
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer candidates", props.Title)
}

func TestExportCandidates_Empty(t *testing.T) {
	buf, err := ExportCandidates(nil, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(candidatesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"Candidates"}, f.GetSheetList())
}
