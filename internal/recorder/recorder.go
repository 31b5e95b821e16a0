// Package recorder puts a retrying, spooling front on the activity store so
// that a transient storage failure never loses a completed interval.
package recorder

import (
	"bufio"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"focuslog/internal/models"

	"github.com/pkg/errors"
)

// Store is the persistence the recorder writes through to.
type Store interface {
	Append(record *models.ActivityRecord) error
	BackfillCategory(program, category string, since time.Time) (int64, error)
}

// Recorder appends records to a Store. A record whose write fails twice is
// kept in memory and in a JSON-lines spool file, and is written ahead of any
// later record once the store accepts writes again.
type Recorder struct {
	store         Store
	spoolPath     string
	warnThreshold int

	mu      sync.Mutex
	pending []*models.ActivityRecord
	warned  bool

	// backlog mirrors len(pending) for readers that must not wait on mu.
	backlog atomic.Int64
}

// New creates a recorder. An empty spoolPath keeps the backlog in memory only.
func New(store Store, spoolPath string, warnThreshold int) *Recorder {
	return &Recorder{
		store:         store,
		spoolPath:     spoolPath,
		warnThreshold: warnThreshold,
	}
}

// Load reads a spool left behind by a previous run and tries to replay it.
func (r *Recorder) Load() error {
	if r.spoolPath == "" {
		return nil
	}

	f, err := os.Open(r.spoolPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "failed to open spool")
	}
	defer f.Close()

	var loaded []*models.ActivityRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec models.ActivityRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			log.Printf("warning: skipping corrupt spool line: %v", err)
			continue
		}
		loaded = append(loaded, &rec)
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "failed to read spool")
	}

	r.mu.Lock()
	r.pending = append(loaded, r.pending...)
	r.backlog.Store(int64(len(r.pending)))
	r.mu.Unlock()

	if len(loaded) > 0 {
		log.Printf("Loaded %d spooled records", len(loaded))
	}
	return r.Flush()
}

// Append writes the backlog and then record. On failure record joins the
// backlog and the returned error says so; the record is not lost.
func (r *Recorder) Append(record *models.ActivityRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.flushLocked(); err != nil {
		r.pending = append(r.pending, record)
		r.afterBuffer()
		return errors.Wrap(err, "store unavailable, record buffered")
	}

	if err := r.write(record); err != nil {
		r.pending = append(r.pending, record)
		r.afterBuffer()
		return errors.Wrap(err, "record buffered")
	}
	return nil
}

// Flush retries the backlog.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushLocked()
}

func (r *Recorder) flushLocked() error {
	if len(r.pending) == 0 {
		return nil
	}

	written := 0
	var err error
	for _, rec := range r.pending {
		if err = r.write(rec); err != nil {
			break
		}
		written++
	}

	r.pending = r.pending[written:]
	if len(r.pending) == 0 {
		r.pending = nil
		r.warned = false
	}
	r.backlog.Store(int64(len(r.pending)))
	if written > 0 {
		log.Printf("Flushed %d buffered records", written)
		r.persist()
	}
	return err
}

// write tries the store twice.
func (r *Recorder) write(record *models.ActivityRecord) error {
	err := r.store.Append(record)
	if err == nil {
		return nil
	}
	log.Printf("warning: append failed, retrying: %v", err)
	record.ID = 0
	return r.store.Append(record)
}

func (r *Recorder) afterBuffer() {
	r.backlog.Store(int64(len(r.pending)))
	r.persist()
	if r.warnThreshold > 0 && len(r.pending) >= r.warnThreshold && !r.warned {
		log.Printf("warning: %d records waiting for the store", len(r.pending))
		r.warned = true
	}
}

// persist rewrites the spool file to match the backlog.
func (r *Recorder) persist() {
	if r.spoolPath == "" {
		return
	}
	if len(r.pending) == 0 {
		if err := os.Remove(r.spoolPath); err != nil && !os.IsNotExist(err) {
			log.Printf("warning: failed to remove spool: %v", err)
		}
		return
	}
	if err := writeSpool(r.spoolPath, r.pending); err != nil {
		log.Printf("error: failed to write spool: %v", err)
	}
}

func writeSpool(path string, records []*models.ActivityRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Pending returns the number of records waiting for the store. It does not
// wait for a write in progress.
func (r *Recorder) Pending() int {
	return int(r.backlog.Load())
}

// PatchCategory applies a late categorisation to stored and buffered records
// of program that started at or after since.
func (r *Recorder) PatchCategory(program, category string, since time.Time) error {
	since = since.Truncate(time.Second)

	r.mu.Lock()
	patched := false
	for _, rec := range r.pending {
		if rec.Program == program && !rec.StartTime.Before(since) {
			rec.Category = category
			patched = true
		}
	}
	if patched {
		r.persist()
	}
	r.mu.Unlock()

	if _, err := r.store.BackfillCategory(program, category, since); err != nil {
		return errors.Wrapf(err, "failed to backfill category for %s", program)
	}
	return nil
}
