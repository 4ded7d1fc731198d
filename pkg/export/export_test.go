package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Student Name", "Total Points", "Overall Rating Avg."},
		Rows: []map[string]string{
			{"Student Name": `Andi "Ace" Saputra`, "Total Points": "12", "Overall Rating Avg.": "4.33"},
			{"Student Name": "Budi, Jr.", "Total Points": "0", "Overall Rating Avg.": "N/A"},
		},
	}
}

func TestCSVRenderQuotesAndOrder(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Student Name,Total Points,Overall Rating Avg.", lines[0])
	assert.Contains(t, lines[1], `"Andi ""Ace"" Saputra"`)
	assert.Contains(t, lines[2], `"Budi, Jr."`)
	assert.Contains(t, lines[2], "N/A")
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFRenderProducesDocument(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(), "Student Recap (weekly)")
	require.NoError(t, err)

	assert.NotEmpty(t, out)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
}
