package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	data := Dataset{
		Headers: []string{"Date", "Start", "End"},
		Rows: []map[string]string{
			{"Date": "2024-01-15", "Start": "09:00", "End": "10:00"},
			{"Date": "2024-01-15", "Start": "10:00"},
		},
	}

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Date,Start,End", lines[0])
	assert.Equal(t, "2024-01-15,09:00,10:00", lines[1])
	assert.Equal(t, "2024-01-15,10:00,", lines[2])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	data := Dataset{
		Headers: []string{"Date", "Start", "End"},
		Rows:    []map[string]string{{"Date": "2024-01-15", "Start": "09:00", "End": "10:00"}},
	}

	out, err := NewPDFExporter().Render(data, "Availability")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterEmptyDataset(t *testing.T) {
	out, err := NewPDFExporter().Render(Dataset{Headers: []string{"A", "B", "C", "D", "E", "F"}}, "")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
