package reporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"focuslog/internal/models"
)

// ExportCSV writes time per (date, category) for filter to w.
func (r *Reporter) ExportCSV(w io.Writer, filter models.ActivityFilter) (int, error) {
	rows, err := r.repo.SummarizeByDateCategory(filter)
	if err != nil {
		return 0, fmt.Errorf("failed to summarize activity: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "category", "total_time"}); err != nil {
		return 0, err
	}
	for _, row := range rows {
		record := []string{row.Date, row.Category, strconv.FormatFloat(row.TotalMinutes, 'f', 2, 64)}
		if err := cw.Write(record); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(rows), cw.Error()
}

// ExportFile writes ExportCSV output to path.
func (r *Reporter) ExportFile(path string, filter models.ActivityFilter) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create export directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create export file: %w", err)
	}
	n, err := r.ExportCSV(f, filter)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// MonthlyReportPath is the CSV file written for an archived period.
func (r *Reporter) MonthlyReportPath(period string) (string, error) {
	dir, err := r.config.ReportsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("report_%s.csv", period)), nil
}

// WriteMonthlyReport writes the per-category summary of an archived period.
func (r *Reporter) WriteMonthlyReport(period string, summaries []models.MonthlySummary) (string, error) {
	path, err := r.MonthlyReportPath(period)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create monthly report: %w", err)
	}
	err = writeMonthlyCSV(f, summaries)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("failed to write monthly report %s: %w", path, err)
	}
	return path, nil
}

func writeMonthlyCSV(w io.Writer, summaries []models.MonthlySummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"category", "total_time", "percent"}); err != nil {
		return err
	}
	for _, s := range summaries {
		err := cw.Write([]string{
			s.Category,
			strconv.FormatFloat(s.TotalMinutes, 'f', 2, 64),
			models.FormatPercent(s.Percent),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// OnRollover is registered with the repository; it writes the report of the
// month that was just archived.
func (r *Reporter) OnRollover(period string, summaries []models.MonthlySummary) {
	path, err := r.WriteMonthlyReport(period, summaries)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	log.Printf("Monthly report for %s written to %s", period, path)
}
