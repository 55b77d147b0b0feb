package handlers

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	dbpkg "feetfit/internal/db"
)

const (
	summarySheet = "Summary"
	metricsSheet = "Metrics"
	reportSheet  = "Report"
)

// reportWorkbook renders r as a workbook with summary, metric and report
// text sheets.
func reportWorkbook(r *dbpkg.GaitReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{metricsSheet, reportSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	summary := [][]any{
		{"Field", "Value"},
		{"Run ID", r.RunID.String()},
		{"Analysis time", r.CreatedAt.UTC().Format(time.RFC3339)},
		{"Window start", formatOptionalTime(r.WindowStart)},
		{"Window end", formatOptionalTime(r.WindowEnd)},
		{"Records analyzed", r.SampleCount},
		{"Trigger", r.Trigger},
		{"Left device", r.LeftDevice},
		{"Right device", r.RightDevice},
		{"Step count", r.StepCount},
		{"Cadence (spm)", r.Cadence},
		{"Avg contact time (s)", r.ContactTime},
		{"Dominant strike pattern", r.DominantZone},
	}
	if err := writeRows(f, summarySheet, summary, headerStyle); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(r.Metrics))
	for k := range r.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	metricRows := [][]any{{"Metric", "Value"}}
	for _, k := range keys {
		metricRows = append(metricRows, []any{k, cellValue(r.Metrics[k])})
	}
	if err := writeRows(f, metricsSheet, metricRows, headerStyle); err != nil {
		return nil, err
	}

	reportRows := [][]any{{"Report"}}
	for _, line := range strings.Split(r.ReportText, "\n") {
		reportRows = append(reportRows, []any{line})
	}
	if err := writeRows(f, reportSheet, reportRows, headerStyle); err != nil {
		return nil, err
	}

	for sheet, width := range map[string]float64{summarySheet: 28, metricsSheet: 30, reportSheet: 90} {
		if err := f.SetColWidth(sheet, "A", "A", width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// writeRows fills sheet from A1 and styles the first row.
func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	return nil
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// cellValue flattens nested metric values, e.g. per-foot balance maps.
func cellValue(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case map[string]any, []any:
		return fmt.Sprintf("%v", x)
	default:
		return x
	}
}
