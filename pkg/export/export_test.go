package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() Table {
	return Table{
		Title:   "attendance E12345",
		Columns: []string{"session_id", "status", "minutes_late"},
		Rows: []map[string]string{
			{"session_id": "sess-1", "status": "late", "minutes_late": "5"},
			{"session_id": "sess-2", "status": "absent"},
		},
	}
}

func TestCSV(t *testing.T) {
	out, err := CSV(sampleTable())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "session_id,status,minutes_late", lines[0])
	assert.Equal(t, "sess-1,late,5", lines[1])
	// Missing cells render empty, keeping column alignment.
	assert.Equal(t, "sess-2,absent,", lines[2])
}

func TestCSVRequiresColumns(t *testing.T) {
	_, err := CSV(Table{})
	require.Error(t, err)
}

func TestPDF(t *testing.T) {
	out, err := PDF(sampleTable())
	require.NoError(t, err)
	assert.True(t, len(out) > 0)
	assert.Equal(t, "%PDF", string(out[:4]))
}
