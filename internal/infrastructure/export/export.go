// Package export writes the session detection log out as CSV or Excel
// files for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"ecosort_service/internal/domain/model"
)

var logColumns = []string{"ID", "Timestamp", "Class", "Category", "Confidence"}

// WriteCSV writes log entries as CSV rows to w, header included.
func WriteCSV(w io.Writer, entries []model.LogEntry) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(logColumns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range entries {
		record := []string{
			strconv.Itoa(e.ID),
			e.FormattedTime,
			e.ClassName,
			string(e.Category),
			strconv.FormatFloat(e.Confidence, 'f', 2, 64),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExportCSV writes the session log to logs_<session>.csv under dir and
// returns the file path.
func ExportCSV(dir, sessionID string, entries []model.LogEntry) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create logs directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("logs_%s.csv", sessionID))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, entries); err != nil {
		return "", err
	}
	return path, nil
}

// ExportExcel writes the session log to logs_<session>.xlsx under dir with
// a second sheet summarizing the session statistics.
func ExportExcel(dir, sessionID string, entries []model.LogEntry, stats model.Statistics) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create logs directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const logSheet = "Detection Logs"
	f.SetSheetName("Sheet1", logSheet)

	for col, name := range logColumns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(logSheet, cell, name); err != nil {
			return "", fmt.Errorf("write excel header: %w", err)
		}
	}
	for row, e := range entries {
		values := []interface{}{e.ID, e.FormattedTime, e.ClassName, string(e.Category), e.Confidence}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(logSheet, cell, v); err != nil {
				return "", fmt.Errorf("write excel row: %w", err)
			}
		}
	}

	const statsSheet = "Statistics"
	if _, err := f.NewSheet(statsSheet); err != nil {
		return "", fmt.Errorf("create statistics sheet: %w", err)
	}
	statsRows := [][]interface{}{
		{"Total Detections", stats.TotalDetections},
		{"Inorganic Count", stats.InorganicCount},
		{"Organic Count", stats.OrganicCount},
		{"Inorganic %", stats.InorganicPercentage},
		{"Organic %", stats.OrganicPercentage},
		{"Session", stats.SessionID},
	}
	for row, pair := range statsRows {
		for col, v := range pair {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+1)
			if err := f.SetCellValue(statsSheet, cell, v); err != nil {
				return "", fmt.Errorf("write statistics row: %w", err)
			}
		}
	}

	path := filepath.Join(dir, fmt.Sprintf("logs_%s.xlsx", sessionID))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save excel file: %w", err)
	}
	return path, nil
}
