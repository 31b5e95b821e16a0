// Package reporter turns the activity log into period reports and CSV files.
package reporter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"focuslog/internal/config"
	"focuslog/internal/models"
)

// Store is the query side of the activity store.
type Store interface {
	GetAppSummary(filter models.ActivityFilter) ([]models.AppSummary, error)
	SummarizeByDateCategory(filter models.ActivityFilter) ([]models.DateCategorySummary, error)
	MonthlySummaries(period string) ([]models.MonthlySummary, error)
}

type Reporter struct {
	config *config.Config
	repo   Store
	now    func() time.Time
}

func New(cfg *config.Config, repo Store) *Reporter {
	return &Reporter{
		config: cfg,
		repo:   repo,
		now:    time.Now,
	}
}

// GenerateReport summarizes the day, week or month containing now, per
// program and per category.
func (r *Reporter) GenerateReport(periodType string) (*models.Report, error) {
	period, err := r.getPeriod(periodType)
	if err != nil {
		return nil, err
	}

	apps, err := r.repo.GetAppSummary(period.Filter())
	if err != nil {
		return nil, fmt.Errorf("failed to get app summary: %w", err)
	}

	var total float64
	for _, app := range apps {
		total += app.TotalMinutes
	}

	byCategory := make(map[string]float64)
	for i := range apps {
		byCategory[apps[i].Category] += apps[i].TotalMinutes
		apps[i].TotalMinutes = models.Round2(apps[i].TotalMinutes)
		apps[i].TotalHours = models.Round2(apps[i].TotalMinutes / 60.0)
		apps[i].Percentage = share(apps[i].TotalMinutes, total)
	}

	categories := make([]models.CategoryTotal, 0, len(byCategory))
	for name, minutes := range byCategory {
		categories = append(categories, models.CategoryTotal{
			Category:     name,
			TotalMinutes: models.Round2(minutes),
			Percentage:   share(minutes, total),
		})
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].TotalMinutes != categories[j].TotalMinutes {
			return categories[i].TotalMinutes > categories[j].TotalMinutes
		}
		return categories[i].Category < categories[j].Category
	})

	return &models.Report{
		Period:       *period,
		Apps:         apps,
		Categories:   categories,
		TotalMinutes: models.Round2(total),
		TotalHours:   models.Round2(total / 60.0),
		GeneratedAt:  r.now(),
	}, nil
}

func share(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return models.Round2(part / total * 100.0)
}

// getPeriod returns [start, end) of the named period around now. Weeks start
// on Monday.
func (r *Reporter) getPeriod(periodType string) (*models.ReportPeriod, error) {
	now := r.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var start, end time.Time
	switch periodType {
	case "day", "today":
		start, end = midnight, midnight.AddDate(0, 0, 1)
	case "week":
		offset := (int(now.Weekday()) + 6) % 7
		start = midnight.AddDate(0, 0, -offset)
		end = start.AddDate(0, 0, 7)
	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0)
	default:
		return nil, fmt.Errorf("invalid period type: %s (valid: day, week, month)", periodType)
	}

	return &models.ReportPeriod{Start: start, End: end, Type: periodType}, nil
}

func (r *Reporter) FormatReportText(report *models.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Activity Report - %s\n", report.Period.Type)
	fmt.Fprintf(&b, "Period: %s to %s\n",
		report.Period.Start.Format(models.DateLayout),
		report.Period.End.AddDate(0, 0, -1).Format(models.DateLayout))
	fmt.Fprintf(&b, "Total Time: %.2fh (%.0fm)\n\n", report.TotalHours, report.TotalMinutes)

	if len(report.Apps) == 0 {
		b.WriteString("No activity recorded for this period.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%-24s %10s %9s\n", "Category", "Minutes", "Percent")
	b.WriteString(strings.Repeat("-", 45) + "\n")
	for _, c := range report.Categories {
		fmt.Fprintf(&b, "%-24s %10.2f %9s\n", truncate(c.Category, 24), c.TotalMinutes, models.FormatPercent(c.Percentage))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "%-24s %-16s %8s %8s %9s\n", "Program", "Category", "Hours", "Minutes", "Percent")
	b.WriteString(strings.Repeat("-", 69) + "\n")
	for _, app := range report.Apps {
		fmt.Fprintf(&b, "%-24s %-16s %8.2f %8.0f %9s\n",
			truncate(app.Program, 24),
			truncate(app.Category, 16),
			app.TotalHours,
			app.TotalMinutes,
			models.FormatPercent(app.Percentage))
	}

	return b.String()
}

func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
