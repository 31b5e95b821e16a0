package web

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"focuslog/internal/category"
	"focuslog/internal/config"
	"focuslog/internal/models"
	"focuslog/internal/tracker"
	"focuslog/pkg/utils"

	"github.com/pkg/errors"
)

// StateSource exposes the live tracker state.
type StateSource interface {
	Snapshot() tracker.LiveState
}

// Categorizer is the category side of the dashboard.
type Categorizer interface {
	Categories() []string
	Mapping() map[string]string
	SetCategory(program, category string) (int64, error)
	PendingRequests() []category.Request
	Respond(resp category.Response) (string, error)
}

// ActivityStore is the query side of the activity log.
type ActivityStore interface {
	Query(filter models.ActivityFilter) ([]*models.ActivityRecord, error)
	ArchivedPeriods() ([]string, error)
	MonthlySummaries(period string) ([]models.MonthlySummary, error)
}

// Reports generates period reports and CSV exports.
type Reports interface {
	GenerateReport(periodType string) (*models.Report, error)
	ExportCSV(w io.Writer, filter models.ActivityFilter) (int, error)
}

// Deps bundles what the handler serves.
type Deps struct {
	State      StateSource
	Categories Categorizer
	Store      ActivityStore
	Reports    Reports
}

type Handler struct {
	config *config.Config
	deps   Deps
}

func NewHandler(cfg *config.Config, deps Deps) *Handler {
	return &Handler{
		config: cfg,
		deps:   deps,
	}
}

func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/state", h.handleState)
	mux.HandleFunc("/api/activity", h.handleActivity)
	mux.HandleFunc("/api/categories", h.handleCategories)
	mux.HandleFunc("/api/requests", h.handleRequests)
	mux.HandleFunc("/api/report", h.handleReport)
	mux.HandleFunc("/api/summary", h.handleSummary)
	mux.HandleFunc("/api/archive", h.handleArchive)
	mux.HandleFunc("/api/export", h.handleExport)

	mux.HandleFunc("/health", h.handleHealth)

	mux.HandleFunc("/", h.handleIndex)
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.deps.State == nil {
		http.Error(w, "Tracker not running", http.StatusServiceUnavailable)
		return
	}

	state := h.deps.State.Snapshot()

	if r.Header.Get("HX-Request") == "true" {
		h.respondStateHTML(w, state)
		return
	}

	respondJSON(w, state)
}

func (h *Handler) respondStateHTML(w http.ResponseWriter, state tracker.LiveState) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	var b strings.Builder
	if state.Idle() {
		b.WriteString(`<div class="current idle">Idle</div>`)
	} else {
		fmt.Fprintf(&b, `<div class="current"><span class="app-name">%s</span> <span class="category">%s</span><div class="title">%s</div><div class="elapsed">%s</div></div>`,
			html.EscapeString(state.ActiveProgram),
			html.EscapeString(state.ActiveCategory),
			html.EscapeString(state.ActiveTitle),
			utils.FormatClock(time.Duration(state.ElapsedSeconds*float64(time.Second))))
	}

	breakClass := "break"
	if state.BreakDue {
		breakClass += " due"
	}
	fmt.Fprintf(&b, `<div class="%s">Next break: %s</div>`, breakClass, html.EscapeString(state.BreakCountdown))
	if state.PendingRecords > 0 {
		fmt.Fprintf(&b, `<div class="warning">%d records waiting to be saved</div>`, state.PendingRecords)
	}

	w.Write([]byte(b.String()))
}

func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter, err := filterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := h.deps.Store.Query(filter)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch activity: %v", err), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*models.ActivityRecord{}
	}

	respondJSON(w, records)
}

type categoryUpdate struct {
	Program  string `json:"program"`
	Category string `json:"category"`
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respondJSON(w, map[string]interface{}{
			"categories": h.deps.Categories.Categories(),
			"programs":   h.deps.Categories.Mapping(),
		})
	case http.MethodPost:
		var req categoryUpdate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		updated, err := h.deps.Categories.SetCategory(req.Program, req.Category)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		respondJSON(w, map[string]interface{}{
			"program":  req.Program,
			"category": h.deps.Categories.Mapping()[strings.TrimSpace(req.Program)],
			"updated":  updated,
		})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleRequests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respondJSON(w, h.deps.Categories.PendingRequests())
	case http.MethodPost:
		var resp category.Response
		if err := json.NewDecoder(r.Body).Decode(&resp); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		assigned, err := h.deps.Categories.Respond(resp)
		switch {
		case errors.Is(err, category.ErrUnknownRequest):
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		case errors.Is(err, category.ErrAlreadyResolved):
			http.Error(w, fmt.Sprintf("%v: %s", err, assigned), http.StatusConflict)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		respondJSON(w, map[string]string{"id": resp.ID, "category": assigned})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	periodType := r.URL.Query().Get("period")
	if periodType == "" {
		periodType = "day"
	}

	report, err := h.deps.Reports.GenerateReport(periodType)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to generate report: %v", err), http.StatusBadRequest)
		return
	}

	respondJSON(w, report)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	periodType := r.URL.Query().Get("period")
	if periodType == "" {
		periodType = "day"
	}

	report, err := h.deps.Reports.GenerateReport(periodType)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to get summary: %v", err), http.StatusBadRequest)
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		h.respondSummaryHTML(w, report)
		return
	}

	respondJSON(w, map[string]interface{}{
		"period":        report.Period,
		"apps":          report.Apps,
		"categories":    report.Categories,
		"total_minutes": report.TotalMinutes,
		"total_hours":   report.TotalHours,
	})
}

func (h *Handler) respondSummaryHTML(w http.ResponseWriter, report *models.Report) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if len(report.Apps) == 0 {
		w.Write([]byte(`<div class="loading">No data available</div>`))
		return
	}

	var b strings.Builder
	b.WriteString(`<div class="listing">`)
	for _, app := range report.Apps {
		timeStr := utils.FormatRoundedUnit(int64(app.TotalMinutes * 60))
		fmt.Fprintf(&b, `
		<div class="app-item" style="--bar-width: %.1f%%">
			<span class="app-name">%s</span>
			<span class="category">%s</span>
			<div>
				<span class="app-time">%s</span>
				<span class="app-percentage">%s</span>
			</div>
		</div>`, app.Percentage, html.EscapeString(app.Program), html.EscapeString(app.Category),
			timeStr, models.FormatPercent(app.Percentage))
	}
	b.WriteString(`</div>`)
	fmt.Fprintf(&b, `<div class="total">Total: %s</div>`, utils.FormatRoundedUnit(int64(report.TotalMinutes*60)))

	w.Write([]byte(b.String()))
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		periods, err := h.deps.Store.ArchivedPeriods()
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to list archive: %v", err), http.StatusInternalServerError)
			return
		}
		if periods == nil {
			periods = []string{}
		}
		respondJSON(w, periods)
		return
	}

	if _, err := time.Parse(models.PeriodLayout, period); err != nil {
		http.Error(w, "period must be YYYY-MM", http.StatusBadRequest)
		return
	}
	summaries, err := h.deps.Store.MonthlySummaries(period)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to get monthly summary: %v", err), http.StatusInternalServerError)
		return
	}
	if summaries == nil {
		summaries = []models.MonthlySummary{}
	}
	respondJSON(w, summaries)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter, err := filterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	name := "focuslog"
	if filter.From != "" {
		name += "_" + filter.From
	}
	if filter.To != "" {
		name += "_" + filter.To
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, name))

	if _, err := h.deps.Reports.ExportCSV(w, filter); err != nil {
		log.Printf("error: export failed: %v", err)
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	}
	if h.deps.State != nil {
		status["running"] = h.deps.State.Snapshot().Running
	}
	respondJSON(w, status)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

// filterFromQuery reads from, to, category and program. Dates must be YYYY-MM-DD.
func filterFromQuery(r *http.Request) (models.ActivityFilter, error) {
	q := r.URL.Query()
	filter := models.ActivityFilter{
		From:     q.Get("from"),
		To:       q.Get("to"),
		Category: q.Get("category"),
		Program:  q.Get("program"),
	}
	for _, d := range []string{filter.From, filter.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(models.DateLayout, d); err != nil {
			return filter, errors.Errorf("invalid date %q, want YYYY-MM-DD", d)
		}
	}
	if filter.From != "" && filter.To != "" && filter.From > filter.To {
		return filter, errors.New("from must not be after to")
	}
	return filter, nil
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
