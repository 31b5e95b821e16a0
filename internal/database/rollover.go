package database

import (
	"log"
	"time"

	"focuslog/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const activePeriodKey = "active_period"

// seedActivePeriod records the month of the newest stored record as the
// active period when the store does not track one yet.
func seedActivePeriod(db *gorm.DB) error {
	current, err := activePeriod(db)
	if err != nil || current != "" {
		return err
	}

	var latest string
	row := db.Model(&models.ActivityRecord{}).Select("COALESCE(MAX(date), '')").Row()
	if err := row.Scan(&latest); err != nil {
		return errors.Wrap(err, "failed to find latest record date")
	}
	if len(latest) < len(models.PeriodLayout) {
		return nil
	}
	return setActivePeriod(db, latest[:len(models.PeriodLayout)])
}

func activePeriod(db *gorm.DB) (string, error) {
	var meta models.StoreMeta
	err := db.Where(&models.StoreMeta{Key: activePeriodKey}).Limit(1).Find(&meta).Error
	if err != nil {
		return "", errors.Wrap(err, "failed to read active period")
	}
	return meta.Value, nil
}

func setActivePeriod(db *gorm.DB, period string) error {
	meta := models.StoreMeta{Key: activePeriodKey, Value: period}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&meta).Error
	if err != nil {
		return errors.Wrap(err, "failed to store active period")
	}
	return nil
}

// ActivePeriod returns the YYYY-MM month the active log currently holds.
func (r *Repository) ActivePeriod() (string, error) {
	return activePeriod(r.db.DB)
}

// RolloverIfNeeded archives the active log when period is later than the
// active period. It reports whether a rollover happened.
func (r *Repository) RolloverIfNeeded(period string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rolloverIfNeeded(period)
}

// rolloverIfNeeded must be called with r.mu held.
func (r *Repository) rolloverIfNeeded(period string) (bool, error) {
	active, err := activePeriod(r.db.DB)
	if err != nil {
		return false, err
	}
	if active == "" {
		return false, setActivePeriod(r.db.DB, period)
	}
	if period <= active {
		return false, nil
	}

	start, err := time.ParseInLocation(models.PeriodLayout, period, time.Local)
	if err != nil {
		return false, errors.Wrapf(err, "invalid period %q", period)
	}
	cutoff := start.Format(models.DateLayout)

	archivedPeriods := make(map[string]bool)
	err = r.db.Transaction(func(tx *gorm.DB) error {
		var old []models.ActivityRecord
		if err := tx.Where("date < ?", cutoff).Order("start_time ASC, id ASC").Find(&old).Error; err != nil {
			return errors.Wrap(err, "failed to load records to archive")
		}

		if len(old) > 0 {
			archived := make([]models.ArchivedRecord, 0, len(old))
			for i := range old {
				p := old[i].Period()
				archivedPeriods[p] = true
				archived = append(archived, old[i].Archive(p))
			}
			if err := tx.CreateInBatches(archived, 200).Error; err != nil {
				return errors.Wrap(err, "failed to archive records")
			}
			if err := tx.Where("date < ?", cutoff).Delete(&models.ActivityRecord{}).Error; err != nil {
				return errors.Wrap(err, "failed to clear archived records")
			}
		}

		for p := range archivedPeriods {
			if err := writeMonthlySummary(tx, p); err != nil {
				return err
			}
		}

		if err := setActivePeriod(tx, period); err != nil {
			return err
		}

		if r.beforeCommit != nil {
			return r.beforeCommit(tx)
		}
		return nil
	})
	if err != nil {
		return false, errors.Wrapf(ErrRolloverFailed, "%s -> %s: %v", active, period, err)
	}

	log.Printf("Rolled activity log over from %s to %s", active, period)
	for p := range archivedPeriods {
		summaries, err := r.MonthlySummaries(p)
		if err != nil {
			log.Printf("warning: failed to load summary for %s: %v", p, err)
			continue
		}
		for _, hook := range r.hooks {
			hook(p, summaries)
		}
	}
	return true, nil
}

// appendArchived stores a record whose month has already been archived and
// refreshes that month's derived data.
func (r *Repository) appendArchived(record *models.ActivityRecord) error {
	period := record.Period()
	return r.db.Transaction(func(tx *gorm.DB) error {
		archived := record.Archive(period)
		if err := tx.Create(&archived).Error; err != nil {
			return errors.Wrap(err, "failed to insert archived record")
		}
		record.ID = archived.ID
		if err := recomputePercentages(tx, &models.ArchivedRecord{}, record.Date); err != nil {
			return err
		}
		return writeMonthlySummary(tx, period)
	})
}

// writeMonthlySummary replaces the per-category totals of an archived period.
func writeMonthlySummary(tx *gorm.DB, period string) error {
	var rows []struct {
		Category     string
		TotalMinutes float64
	}
	err := tx.Model(&models.ArchivedRecord{}).
		Where("period = ?", period).
		Select("category, SUM(total_time) AS total_minutes").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return errors.Wrapf(err, "failed to summarize %s", period)
	}

	summaries := buildMonthlySummaries(period, rows)
	if len(summaries) == 0 {
		return nil
	}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "period"}, {Name: "category"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_minutes", "percent"}),
	}).Create(&summaries).Error
	if err != nil {
		return errors.Wrapf(err, "failed to store summary for %s", period)
	}
	return nil
}

func buildMonthlySummaries(period string, rows []struct {
	Category     string
	TotalMinutes float64
}) []models.MonthlySummary {
	var total float64
	for _, row := range rows {
		total += row.TotalMinutes
	}

	summaries := make([]models.MonthlySummary, 0, len(rows))
	for _, row := range rows {
		s := models.MonthlySummary{
			Period:       period,
			Category:     row.Category,
			TotalMinutes: models.Round2(row.TotalMinutes),
		}
		if total > 0 {
			s.Percent = models.Round2(row.TotalMinutes * 100 / total)
		}
		summaries = append(summaries, s)
	}
	return summaries
}

// MonthlySummaries returns the stored per-category report of an archived period.
func (r *Repository) MonthlySummaries(period string) ([]models.MonthlySummary, error) {
	var summaries []models.MonthlySummary
	err := r.db.Where("period = ?", period).Order("total_minutes DESC, category ASC").Find(&summaries).Error
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load summary for %s", period)
	}
	return summaries, nil
}

// ArchivedPeriods lists every archived YYYY-MM, oldest first.
func (r *Repository) ArchivedPeriods() ([]string, error) {
	var periods []string
	err := r.db.Model(&models.ArchivedRecord{}).Distinct("period").Order("period ASC").Pluck("period", &periods).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list archived periods")
	}
	return periods, nil
}
