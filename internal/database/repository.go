package database

import (
	"log"
	"sort"
	"sync"
	"time"

	"focuslog/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

// RolloverHook is called after a month has been archived and committed.
type RolloverHook func(period string, summaries []models.MonthlySummary)

// Repository handles all database operations for activity records.
// Writes are serialized; reads go straight to the connection pool.
type Repository struct {
	db *DB

	mu    sync.Mutex
	hooks []RolloverHook

	// beforeCommit runs inside the rollover transaction; tests use it to
	// force a rollback.
	beforeCommit func(tx *gorm.DB) error
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// OnRollover registers a hook run after every successful rollover.
func (r *Repository) OnRollover(hook RolloverHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// Append stores one activity record and recomputes the percentages of its
// date. A record from a later month first rolls the active log over; if the
// rollover fails the record still lands in the current log and the rollover
// is retried on the next append. A record from a month that has already been
// archived goes straight to the archive.
func (r *Repository) Append(record *models.ActivityRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if record.Date == "" {
		record.Date = record.StartTime.Format(models.DateLayout)
	}

	active, err := activePeriod(r.db.DB)
	if err != nil {
		return &PersistenceError{Op: "append", Err: err}
	}

	if active != "" && record.Period() < active {
		if err := r.appendArchived(record); err != nil {
			return &PersistenceError{Op: "append archived", Err: err}
		}
		return nil
	}

	if _, err := r.rolloverIfNeeded(record.Period()); err != nil {
		log.Printf("error: %v; appending %s record to the current log", err, record.Period())
	}

	err = r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return errors.Wrap(err, "failed to insert activity record")
		}
		return recomputePercentages(tx, &models.ActivityRecord{}, record.Date)
	})
	if err != nil {
		return &PersistenceError{Op: "append", Err: err}
	}

	// the returned record reflects the stored share
	var stored models.ActivityRecord
	if err := r.db.Select("percent").First(&stored, record.ID).Error; err == nil {
		record.Percent = stored.Percent
	}
	return nil
}

// RecomputePercentages recalculates the share of every record on date.
// It is idempotent and safe to run over historical data.
func (r *Repository) RecomputePercentages(date string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := recomputePercentages(tx, &models.ActivityRecord{}, date); err != nil {
			return err
		}
		return recomputePercentages(tx, &models.ArchivedRecord{}, date)
	})
}

func recomputePercentages(tx *gorm.DB, model interface{}, date string) error {
	var total float64
	row := tx.Model(model).Where("date = ?", date).Select("COALESCE(SUM(total_time), 0)").Row()
	if err := row.Scan(&total); err != nil {
		return errors.Wrapf(err, "failed to total minutes for %s", date)
	}

	var result *gorm.DB
	if total <= 0 {
		result = tx.Model(model).Where("date = ?", date).Update("percent", 0)
	} else {
		result = tx.Model(model).Where("date = ?", date).
			Update("percent", gorm.Expr("ROUND(total_time * 100.0 / ?, 2)", total))
	}
	if result.Error != nil {
		return errors.Wrapf(result.Error, "failed to update percentages for %s", date)
	}
	return nil
}

// Query returns records matching filter from the active log and the archive,
// ordered by start time.
func (r *Repository) Query(filter models.ActivityFilter) ([]*models.ActivityRecord, error) {
	var active []*models.ActivityRecord
	if err := applyFilter(r.db.Model(&models.ActivityRecord{}), filter).
		Order("start_time ASC, id ASC").Find(&active).Error; err != nil {
		return nil, errors.Wrap(err, "failed to query activity records")
	}

	var archived []models.ArchivedRecord
	if err := applyFilter(r.db.Model(&models.ArchivedRecord{}), filter).
		Order("start_time ASC, id ASC").Find(&archived).Error; err != nil {
		return nil, errors.Wrap(err, "failed to query archived records")
	}

	records := make([]*models.ActivityRecord, 0, len(active)+len(archived))
	for i := range archived {
		records = append(records, archived[i].Record())
	}
	records = append(records, active...)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartTime.Before(records[j].StartTime)
	})
	return records, nil
}

func applyFilter(q *gorm.DB, filter models.ActivityFilter) *gorm.DB {
	if filter.From != "" {
		q = q.Where("date >= ?", filter.From)
	}
	if filter.To != "" {
		q = q.Where("date <= ?", filter.To)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Program != "" {
		q = q.Where("program = ?", filter.Program)
	}
	return q
}

// SummarizeByDateCategory sums minutes per (date, category) across the
// active log and the archive.
func (r *Repository) SummarizeByDateCategory(filter models.ActivityFilter) ([]models.DateCategorySummary, error) {
	totals := make(map[[2]string]float64)
	for _, model := range []interface{}{&models.ActivityRecord{}, &models.ArchivedRecord{}} {
		var rows []models.DateCategorySummary
		err := applyFilter(r.db.Model(model), filter).
			Select("date, category, SUM(total_time) AS total_minutes").
			Group("date, category").
			Scan(&rows).Error
		if err != nil {
			return nil, errors.Wrap(err, "failed to summarize activity")
		}
		for _, row := range rows {
			totals[[2]string{row.Date, row.Category}] += row.TotalMinutes
		}
	}

	summaries := make([]models.DateCategorySummary, 0, len(totals))
	for key, minutes := range totals {
		summaries = append(summaries, models.DateCategorySummary{
			Date:         key[0],
			Category:     key[1],
			TotalMinutes: models.Round2(minutes),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Date != summaries[j].Date {
			return summaries[i].Date < summaries[j].Date
		}
		return summaries[i].Category < summaries[j].Category
	})
	return summaries, nil
}

// GetAppSummary returns time per program across the active log and archive.
func (r *Repository) GetAppSummary(filter models.ActivityFilter) ([]models.AppSummary, error) {
	byProgram := make(map[string]*models.AppSummary)
	for _, model := range []interface{}{&models.ActivityRecord{}, &models.ArchivedRecord{}} {
		var rows []models.AppSummary
		err := applyFilter(r.db.Model(model), filter).
			Select("program, MAX(category) AS category, SUM(total_time) AS total_minutes, COUNT(*) AS event_count").
			Group("program").
			Scan(&rows).Error
		if err != nil {
			return nil, errors.Wrap(err, "failed to query app summary")
		}
		for _, row := range rows {
			if s, ok := byProgram[row.Program]; ok {
				s.TotalMinutes += row.TotalMinutes
				s.EventCount += row.EventCount
				continue
			}
			row := row
			byProgram[row.Program] = &row
		}
	}

	summaries := make([]models.AppSummary, 0, len(byProgram))
	for _, s := range byProgram {
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].TotalMinutes > summaries[j].TotalMinutes
	})
	return summaries, nil
}

// GetLatest retrieves the most recent record of the active log
func (r *Repository) GetLatest() (*models.ActivityRecord, error) {
	var record models.ActivityRecord
	result := r.db.Order("start_time DESC, id DESC").First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest record")
	}
	return &record, nil
}

// UpdateCategory rewrites the category of every stored record of program,
// active and archived. It is the explicit historical backfill used when the
// user edits a program's category.
func (r *Repository) UpdateCategory(program, category string) (int64, error) {
	return r.backfill(program, category, time.Time{})
}

// BackfillCategory patches records of program started at or after since.
// It applies a late categorisation to records logged while it was pending.
func (r *Repository) BackfillCategory(program, category string, since time.Time) (int64, error) {
	return r.backfill(program, category, since.Truncate(time.Second))
}

func (r *Repository) backfill(program, category string, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var affected int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.ActivityRecord{}, &models.ArchivedRecord{}} {
			q := tx.Model(model).Where("program = ?", program)
			if !since.IsZero() {
				q = q.Where("start_time >= ?", since)
			}
			result := q.Update("category", category)
			if result.Error != nil {
				return errors.Wrapf(result.Error, "failed to update category for %s", program)
			}
			affected += result.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, &PersistenceError{Op: "update category", Err: err}
	}

	log.Printf("Updated category to %q for program %q (%d records)", category, program, affected)
	return affected, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// GetErrorLogsSince returns logged errors newer than since
func (r *Repository) GetErrorLogsSince(since time.Time) ([]models.ErrorLog, error) {
	var logs []models.ErrorLog
	if err := r.db.Where("timestamp >= ?", since).Order("timestamp ASC").Find(&logs).Error; err != nil {
		return nil, errors.Wrap(err, "failed to query error logs")
	}
	return logs, nil
}
