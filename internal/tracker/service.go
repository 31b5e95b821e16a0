package tracker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"focuslog/internal/config"
	"focuslog/internal/models"
	"focuslog/pkg/window"
)

// Recorder receives completed intervals.
type Recorder interface {
	Append(record *models.ActivityRecord) error
	Flush() error
	Pending() int
}

// Resolver supplies categories and tracks outstanding prompts.
type Resolver interface {
	Observe(program, title string, since time.Time) string
	CategoryFor(program string) string
	ExpirePending(now time.Time) int
	Flush() error
}

// ErrorStore persists errors raised inside the sampling loop.
type ErrorStore interface {
	CreateErrorLog(errorLog *models.ErrorLog) error
}

// BreakNotifier is told once when a break becomes due.
type BreakNotifier interface {
	NotifyBreakDue(interval time.Duration)
}

// Service samples the foreground window and turns window changes into
// activity records. States are Idle (no active program) and Tracking.
type Service struct {
	config   *config.Config
	probe    window.Probe
	recorder Recorder
	resolver Resolver
	errors   ErrorStore
	notifier BreakNotifier
	breaks   *BreakTimer
	now      func() time.Time

	mu       sync.Mutex
	active   string
	title    string
	category string
	previous string
	start    time.Time
	started  bool
	running  bool

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewService(cfg *config.Config, probe window.Probe, recorder Recorder, resolver Resolver, errs ErrorStore) *Service {
	now := time.Now
	return &Service{
		config:   cfg,
		probe:    probe,
		recorder: recorder,
		resolver: resolver,
		errors:   errs,
		breaks:   NewBreakTimer(cfg.Tracker.BreakInterval, cfg.Tracker.MinBreakInterval, now()),
		now:      now,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// SetNotifier sets who is told about due breaks.
func (s *Service) SetNotifier(n BreakNotifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

// Start runs the sampling loop until ctx is cancelled or Stop is called. The
// interval in progress is closed and flushed before it returns.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("tracker is already running")
	}
	s.started = true
	s.running = true
	s.mu.Unlock()

	defer close(s.done)

	log.Printf("Starting tracker with %v poll interval", s.config.Tracker.PollInterval)

	ticker := time.NewTicker(s.config.Tracker.PollInterval)
	defer ticker.Stop()

	s.tick(s.now())

	for {
		select {
		case <-ctx.Done():
			log.Println("Tracker stopped by context")
			s.shutdown(s.now())
			return ctx.Err()

		case <-s.stopChan:
			log.Println("Tracker stopped")
			s.shutdown(s.now())
			return nil

		case <-ticker.C:
			s.tick(s.now())
		}
	}
}

// Stop halts the loop and waits, up to the configured stop timeout, for the
// final interval to be written. It is safe to call more than once.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return
	}

	select {
	case <-s.done:
	case <-time.After(s.config.Tracker.StopTimeout):
		log.Printf("warning: tracker did not stop within %v, the last interval may be lost", s.config.Tracker.StopTimeout)
	}
}

func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// tick takes one sample and applies it at now.
func (s *Service) tick(now time.Time) {
	program, title := s.probe.Sample()
	if program == window.UnknownProgram {
		program, title = "", ""
	}

	s.mu.Lock()
	record, entered := s.transitionLocked(program, title, now)
	s.mu.Unlock()

	if record != nil {
		s.emit(record)
	}

	if entered {
		category := s.resolver.Observe(program, title, now)
		s.mu.Lock()
		if s.active == program {
			s.category = category
		}
		s.mu.Unlock()
	}

	s.resolver.ExpirePending(now)

	if s.breaks.takeDue(now) {
		s.mu.Lock()
		notifier := s.notifier
		s.mu.Unlock()
		log.Printf("Break due after %v", s.breaks.Interval())
		if notifier != nil {
			notifier.NotifyBreakDue(s.breaks.Interval())
		}
	}
}

// transitionLocked applies one sample to the state machine. It returns the
// record for a closed interval, if any, and whether a program was entered.
func (s *Service) transitionLocked(program, title string, now time.Time) (*models.ActivityRecord, bool) {
	if program == s.active {
		if program != "" {
			s.title = title
		}
		return nil, false
	}

	var record *models.ActivityRecord
	if s.active != "" {
		record = s.closeLocked(now)
	}

	s.active = program
	s.title = title
	s.category = ""
	s.start = now
	return record, program != ""
}

// closeLocked ends the active interval at now. Intervals shorter than the
// minimum session duration are dropped without touching previous.
func (s *Service) closeLocked(now time.Time) *models.ActivityRecord {
	program, title, start := s.active, s.title, s.start
	s.start = now

	if now.Sub(start) < s.config.Tracker.MinSessionDuration {
		return nil
	}

	record := models.NewActivityRecord(program, title, s.resolver.CategoryFor(program), start, now)
	s.previous = program
	return record
}

func (s *Service) emit(record *models.ActivityRecord) {
	if err := s.recorder.Append(record); err != nil {
		s.storeError("recorder", err)
		return
	}
	log.Printf("Recorded %s (%s) %.2f min", record.Program, record.Category, record.TotalTime)
}

// shutdown closes the interval in progress and flushes pending writes.
func (s *Service) shutdown(now time.Time) {
	s.mu.Lock()
	var record *models.ActivityRecord
	if s.active != "" {
		record = s.closeLocked(now)
	}
	s.active, s.title, s.category = "", "", ""
	s.running = false
	s.mu.Unlock()

	if record != nil {
		s.emit(record)
	}

	if err := s.recorder.Flush(); err != nil {
		log.Printf("warning: %d records could not be written: %v", s.recorder.Pending(), err)
	}
	if err := s.resolver.Flush(); err != nil {
		log.Printf("warning: category map not fully saved: %v", err)
	}
}

func (s *Service) storeError(source string, err error) {
	errorLog := &models.ErrorLog{
		Timestamp: s.now(),
		Source:    source,
		ErrorMsg:  err.Error(),
	}

	if s.errors == nil {
		log.Printf("error: %s: %v", source, err)
		return
	}
	if dbErr := s.errors.CreateErrorLog(errorLog); dbErr != nil {
		log.Printf("Failed to store error in database: %v (original error: %v)", dbErr, err)
	} else {
		log.Printf("Error logged to database: %v", err)
	}
}

// Snapshot returns the live state under a single lock.
func (s *Service) Snapshot() LiveState {
	now := s.now()

	s.mu.Lock()
	state := LiveState{
		ActiveProgram:   s.active,
		ActiveTitle:     s.title,
		ActiveCategory:  s.category,
		PreviousProgram: s.previous,
		Running:         s.running,
	}
	if s.active != "" {
		state.ElapsedSeconds = now.Sub(s.start).Seconds()
	}
	s.mu.Unlock()

	remaining := s.breaks.Remaining(now)
	state.BreakCountdownSeconds = remaining.Seconds()
	state.BreakCountdown = s.breaks.Display(now)
	state.BreakDue = remaining < 0
	state.PendingRecords = s.recorder.Pending()
	return state
}

// ResetBreak restarts the break countdown.
func (s *Service) ResetBreak() {
	s.breaks.Reset(s.now())
}

// SetBreakInterval changes the break interval and restarts the countdown.
func (s *Service) SetBreakInterval(d time.Duration) error {
	return s.breaks.SetInterval(d, s.now())
}

// Breaks exposes the break timer.
func (s *Service) Breaks() *BreakTimer {
	return s.breaks
}
