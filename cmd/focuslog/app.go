package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"focuslog/internal/category"
	"focuslog/internal/config"
	"focuslog/internal/daemon"
	"focuslog/internal/database"
	"focuslog/internal/notify"
	"focuslog/internal/recorder"
	"focuslog/internal/reporter"
	"focuslog/internal/tracker"
	"focuslog/pkg/detector"
	"focuslog/pkg/window"
)

// app is the store side shared by every command.
type app struct {
	cfg      *config.Config
	db       *database.DB
	repo     *database.Repository
	reporter *reporter.Reporter
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	repo := database.NewRepository(db)
	rep := reporter.New(cfg, repo)
	repo.OnRollover(rep.OnRollover)

	return &app{cfg: cfg, db: db, repo: repo, reporter: rep}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		log.Printf("warning: %v", err)
	}
}

// session is a running sampler: the only process writing activity records.
type session struct {
	*app
	daemon   *daemon.Daemon
	detector window.Detector
	recorder *recorder.Recorder
	resolver *category.Resolver
	tracker  *tracker.Service
}

// startSession claims the PID file and wires the sampler. interactive is
// whether something will answer categorization requests.
func (a *app) startSession(interactive bool) (*session, error) {
	dm := daemon.New(a.cfg.Daemon.PIDFile)
	if err := dm.Acquire(); err != nil {
		return nil, err
	}

	probe, det, err := detector.NewProbe()
	if err != nil {
		dm.RemovePID()
		return nil, fmt.Errorf("failed to initialize window detector: %w", err)
	}
	log.Printf("Window detector initialized: %s", det.GetDisplayServer())

	spoolPath, err := a.cfg.SpoolPath()
	if err != nil {
		det.Close()
		dm.RemovePID()
		return nil, err
	}
	rec := recorder.New(a.repo, spoolPath, a.cfg.Spool.WarnThreshold)
	if err := rec.Load(); err != nil {
		log.Printf("warning: %v", err)
	}

	resolver, err := category.NewResolver(a.repo, category.Options{
		Default:       a.cfg.Categories.Default,
		Interactive:   interactive && a.cfg.Categories.Interactive,
		PromptTimeout: a.cfg.Categories.PromptTimeout,
		QueueSize:     a.cfg.Categories.QueueSize,
	})
	if err != nil {
		det.Close()
		dm.RemovePID()
		return nil, err
	}
	resolver.SetPatcher(rec)

	svc := tracker.NewService(a.cfg, probe, rec, resolver, a.repo)
	svc.SetNotifier(notify.NewDesktop())

	return &session{
		app:      a,
		daemon:   dm,
		detector: det,
		recorder: rec,
		resolver: resolver,
		tracker:  svc,
	}, nil
}

func (s *session) Close() {
	if err := s.detector.Close(); err != nil {
		log.Printf("warning: %v", err)
	}
	if err := s.daemon.RemovePID(); err != nil {
		log.Printf("warning: %v", err)
	}
}

// redirectLog sends the standard logger to the per-user log file.
func redirectLog() io.Closer {
	logFile, err := os.OpenFile(daemon.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return io.NopCloser(nil)
	}
	log.SetOutput(logFile)
	return logFile
}
