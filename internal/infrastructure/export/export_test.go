package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ecosort_service/internal/domain/model"
)

func sampleEntries() []model.LogEntry {
	now := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	return []model.LogEntry{
		{
			ID:            1,
			Timestamp:     now,
			FormattedTime: "2024-05-01 12:30:00",
			ClassName:     "bottle",
			Category:      model.CategoryInorganic,
			Confidence:    0.92,
			SessionID:     "20240501_123000",
		},
		{
			ID:            2,
			Timestamp:     now.Add(time.Second),
			FormattedTime: "2024-05-01 12:30:01",
			ClassName:     "leaves",
			Category:      model.CategoryOrganic,
			Confidence:    0.81,
			SessionID:     "20240501_123000",
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleEntries()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"ID", "Timestamp", "Class", "Category", "Confidence"}, records[0])
	assert.Equal(t, []string{"1", "2024-05-01 12:30:00", "bottle", "Inorganic", "0.92"}, records[1])
	assert.Equal(t, []string{"2", "2024-05-01 12:30:01", "leaves", "Organic", "0.81"}, records[2])
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1, "empty log still gets a header")
}

func TestExportCSV(t *testing.T) {
	dir := t.TempDir()
	path, err := ExportCSV(dir, "20240501_123000", sampleEntries())
	require.NoError(t, err)
	assert.Contains(t, path, "logs_20240501_123000.csv")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "bottle")
}

func TestExportExcel(t *testing.T) {
	dir := t.TempDir()
	stats := model.Statistics{
		TotalDetections:     2,
		InorganicCount:      1,
		OrganicCount:        1,
		InorganicPercentage: 50,
		OrganicPercentage:   50,
		SessionID:           "20240501_123000",
	}

	path, err := ExportExcel(dir, "20240501_123000", sampleEntries(), stats)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Detection Logs", "Statistics"}, f.GetSheetList())

	rows, err := f.GetRows("Detection Logs")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "bottle", rows[1][2])

	statsRows, err := f.GetRows("Statistics")
	require.NoError(t, err)
	assert.Equal(t, "Total Detections", statsRows[0][0])
	assert.Equal(t, "2", statsRows[0][1])
}
