package models

import (
	"time"
)

// DateLayout is the layout of ActivityRecord.Date and every date filter.
const DateLayout = "2006-01-02"

// PeriodLayout identifies a calendar month, the unit of rollover.
const PeriodLayout = "2006-01"

// ActivityRecord is one completed interval of foreground-window occupancy.
type ActivityRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Date        string    `gorm:"not null;index" json:"date"`
	Program     string    `gorm:"not null;index" json:"program"`
	WindowTitle string    `gorm:"not null" json:"window_title"`
	Category    string    `gorm:"not null;index" json:"category"`
	StartTime   time.Time `gorm:"not null;index" json:"start_time"`
	EndTime     time.Time `gorm:"not null" json:"end_time"`
	TotalTime   float64   `gorm:"not null;default:0" json:"total_time"` // minutes, 2 decimals
	Percent     float64   `gorm:"not null;default:0" json:"percent"`    // share of Date, 2 decimals
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// NewActivityRecord builds a record for the interval [start, end). Date is the
// local calendar date the interval started on. Start and end are stored to the
// second; TotalTime comes from the exact duration.
func NewActivityRecord(program, title, category string, start, end time.Time) *ActivityRecord {
	return &ActivityRecord{
		Date:        start.Format(DateLayout),
		Program:     program,
		WindowTitle: title,
		Category:    category,
		StartTime:   start.Truncate(time.Second),
		EndTime:     end.Truncate(time.Second),
		TotalTime:   RoundMinutes(end.Sub(start)),
	}
}

// Period returns the YYYY-MM month the record belongs to.
func (r *ActivityRecord) Period() string {
	if len(r.Date) >= len(PeriodLayout) {
		return r.Date[:len(PeriodLayout)]
	}
	return r.StartTime.Format(PeriodLayout)
}

// PercentText renders Percent the way reports display it.
func (r *ActivityRecord) PercentText() string {
	return FormatPercent(r.Percent)
}

// ArchivedRecord is an ActivityRecord moved out of the active log on rollover.
type ArchivedRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Period      string    `gorm:"not null;index" json:"period"`
	Date        string    `gorm:"not null;index" json:"date"`
	Program     string    `gorm:"not null;index" json:"program"`
	WindowTitle string    `gorm:"not null" json:"window_title"`
	Category    string    `gorm:"not null;index" json:"category"`
	StartTime   time.Time `gorm:"not null;index" json:"start_time"`
	EndTime     time.Time `gorm:"not null" json:"end_time"`
	TotalTime   float64   `gorm:"not null;default:0" json:"total_time"`
	Percent     float64   `gorm:"not null;default:0" json:"percent"`
	ArchivedAt  time.Time `gorm:"autoCreateTime" json:"archived_at"`
}

// Archive converts an active record into its archived form.
func (r *ActivityRecord) Archive(period string) ArchivedRecord {
	return ArchivedRecord{
		Period:      period,
		Date:        r.Date,
		Program:     r.Program,
		WindowTitle: r.WindowTitle,
		Category:    r.Category,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		TotalTime:   r.TotalTime,
		Percent:     r.Percent,
	}
}

// Record converts an archived row back into an ActivityRecord for queries.
func (a *ArchivedRecord) Record() *ActivityRecord {
	return &ActivityRecord{
		ID:          a.ID,
		Date:        a.Date,
		Program:     a.Program,
		WindowTitle: a.WindowTitle,
		Category:    a.Category,
		StartTime:   a.StartTime,
		EndTime:     a.EndTime,
		TotalTime:   a.TotalTime,
		Percent:     a.Percent,
	}
}

// MonthlySummary is the per-category report generated when a month is archived.
type MonthlySummary struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Period       string    `gorm:"not null;uniqueIndex:idx_period_category" json:"period"`
	Category     string    `gorm:"not null;uniqueIndex:idx_period_category" json:"category"`
	TotalMinutes float64   `gorm:"not null" json:"total_minutes"`
	Percent      float64   `gorm:"not null" json:"percent"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// StoreMeta holds explicit store-level state such as the active period.
type StoreMeta struct {
	Key   string `gorm:"primaryKey"`
	Value string `gorm:"not null"`
}

// ActivityFilter narrows queries. Zero values mean "no bound".
type ActivityFilter struct {
	From     string // inclusive, DateLayout
	To       string // inclusive, DateLayout
	Category string
	Program  string
}

// DateCategorySummary is one row of an exported report.
type DateCategorySummary struct {
	Date         string  `json:"date"`
	Category     string  `json:"category"`
	TotalMinutes float64 `json:"total_minutes"`
}

// AppSummary aggregates time per program for period reports.
type AppSummary struct {
	Program      string  `json:"program"`
	Category     string  `json:"category"`
	TotalMinutes float64 `json:"total_minutes"`
	TotalHours   float64 `json:"total_hours"`
	EventCount   int     `json:"event_count"`
	Percentage   float64 `json:"percentage,omitempty"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month"
}

// Filter selects the whole days of the period.
func (p ReportPeriod) Filter() ActivityFilter {
	return ActivityFilter{
		From: p.Start.Format(DateLayout),
		To:   p.End.AddDate(0, 0, -1).Format(DateLayout),
	}
}

// CategoryTotal is the time spent in one category over a report period.
type CategoryTotal struct {
	Category     string  `json:"category"`
	TotalMinutes float64 `json:"total_minutes"`
	Percentage   float64 `json:"percentage"`
}

type Report struct {
	Period       ReportPeriod    `json:"period"`
	Apps         []AppSummary    `json:"apps"`
	Categories   []CategoryTotal `json:"categories"`
	TotalMinutes float64         `json:"total_minutes"`
	TotalHours   float64         `json:"total_hours"`
	GeneratedAt  time.Time       `json:"generated_at"`
}
