package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"focuslog/internal/category"
	"focuslog/internal/daemon"
	"focuslog/internal/ui"
	"focuslog/internal/web"
	"focuslog/pkg/detector"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	foreground bool
	servePort  int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Track in the foreground with a terminal dashboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defer redirectLog().Close()
		return runInteractive()
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the tracking daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !daemon.IsChild() && !foreground {
			return daemonize(false)
		}
		return runBackground(false)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tracking daemon with the web API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !daemon.IsChild() && !foreground {
			return daemonize(true)
		}
		return runBackground(true)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the tracking daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dm := daemon.New(cfg.Daemon.PIDFile)

		running, pid, err := dm.IsRunning()
		if err != nil {
			return fmt.Errorf("failed to check daemon status: %w", err)
		}
		if !running {
			fmt.Println("Daemon is not running")
			return nil
		}

		fmt.Printf("Stopping daemon (PID: %d)...\n", pid)
		if err := dm.Stop(cfg.Tracker.StopTimeout + 5*time.Second); err != nil {
			return fmt.Errorf("failed to stop daemon: %w", err)
		}
		fmt.Println("Daemon stopped successfully")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status and the focused program",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		running, pid, err := daemon.New(a.cfg.Daemon.PIDFile).IsRunning()
		if err != nil {
			return fmt.Errorf("failed to check daemon status: %w", err)
		}
		if running {
			fmt.Printf("Status: Running (PID: %d)\n", pid)
			fmt.Printf("Poll Interval: %v\n", a.cfg.Tracker.PollInterval)
			fmt.Printf("Break Interval: %v\n", a.cfg.Tracker.BreakInterval)
		} else {
			fmt.Println("Status: Not running")
		}

		if period, err := a.repo.ActivePeriod(); err == nil && period != "" {
			fmt.Printf("Active Period: %s\n", period)
		}
		if latest, err := a.repo.GetLatest(); err == nil && latest != nil {
			fmt.Printf("\nLast Record:\n")
			fmt.Printf("  Program: %s (%s)\n", latest.Program, latest.Category)
			fmt.Printf("  Title: %s\n", latest.WindowTitle)
			fmt.Printf("  Ended: %s, %.2f min\n", latest.EndTime.Format("2006-01-02 15:04:05"), latest.TotalTime)
		}

		probe, det, err := detector.NewProbe()
		if err != nil {
			fmt.Printf("\nCould not detect current window: %v\n", err)
			return nil
		}
		defer det.Close()

		program, title := probe.Sample()
		fmt.Printf("\nCurrent Window:\n")
		fmt.Printf("  Program: %s\n", program)
		fmt.Printf("  Title: %s\n", title)
		fmt.Printf("  Display: %s\n", det.GetDisplayServer())

		if idle, err := det.GetIdleInfo(); err == nil && idle != nil {
			fmt.Printf("\nSystem State:\n")
			fmt.Printf("  Idle: %v\n", idle.IsIdle)
			fmt.Printf("  Locked: %v\n", idle.IsLocked)
			if idle.IdleTime > 0 {
				fmt.Printf("  Idle Time: %ds\n", idle.IdleTime)
			}
		}
		return nil
	},
}

func init() {
	startCmd.Flags().BoolVar(&foreground, "foreground", false, "do not detach from the terminal")
	serveCmd.Flags().BoolVar(&foreground, "foreground", false, "do not detach from the terminal")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "web API port (default from config)")

	rootCmd.AddCommand(runCmd, startCmd, serveCmd, stopCmd, statusCmd)
}

// runInteractive tracks with the terminal UI answering category prompts.
func runInteractive() error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.startSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	trackerErr := make(chan error, 1)
	go func() {
		trackerErr <- s.tracker.Start(ctx)
	}()

	var requests <-chan category.Request
	if a.cfg.Categories.Interactive {
		requests = s.resolver.Requests()
	}
	program := tea.NewProgram(ui.NewModel(s.tracker, s.resolver, requests), tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		program.Quit()
	}()

	_, uiErr := program.Run()
	s.tracker.Stop()

	select {
	case err := <-trackerErr:
		if err != nil && err != context.Canceled {
			log.Printf("Tracker error: %v", err)
		}
	default:
	}

	if uiErr != nil {
		return fmt.Errorf("terminal UI failed: %w", uiErr)
	}
	return nil
}

// runBackground is the detached sampler, optionally serving the web API.
// With the web API, category prompts are answered over HTTP.
func runBackground(withWeb bool) error {
	if daemon.IsChild() {
		defer redirectLog().Close()
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.startSession(withWeb)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var webServer *web.Server
	if withWeb {
		webServer = web.NewServer(a.cfg, web.Deps{
			State:      s.tracker,
			Categories: s.resolver,
			Store:      a.repo,
			Reports:    a.reporter,
		}, servePort)
		if err := webServer.Listen(); err != nil {
			return err
		}

		go func() {
			if err := webServer.Start(); err != nil {
				log.Printf("Web server error: %v", err)
			}
		}()
		go logRequests(ctx, s.resolver.Requests())
	}

	go func() {
		if err := s.tracker.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("Tracker error: %v", err)
			cancel()
		}
	}()

	log.Printf("Starting %s daemon...", appName)
	if webServer != nil {
		log.Printf("Web API available at: http://%s", webServer.GetAddress())
	}
	log.Printf("%s", a.cfg.String())

	select {
	case <-sigChan:
		log.Println("Received shutdown signal")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	cancel()
	s.tracker.Stop()

	if webServer != nil {
		if err := webServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down web server: %v", err)
		}
	}

	log.Println("Daemon stopped successfully")
	return nil
}

// logRequests drains the prompt queue when answers come from the web API;
// the requests stay listed under /api/requests until answered or expired.
func logRequests(ctx context.Context, requests <-chan category.Request) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-requests:
			log.Printf("Awaiting category for %s (request %s)", req.Program, req.ID)
		}
	}
}

// daemonize re-executes this command detached from the terminal.
func daemonize(withWeb bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	running, pid, err := daemon.New(cfg.Daemon.PIDFile).IsRunning()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		return fmt.Errorf("daemon is already running (PID: %d)", pid)
	}

	pid, err = daemon.Spawn(os.Args[1:])
	if err != nil {
		return err
	}

	fmt.Printf("Daemon started successfully (PID: %d)\n", pid)
	if withWeb {
		port := cfg.Web.Port
		if servePort > 0 {
			port = servePort
		}
		fmt.Printf("Web API available at: http://%s:%d\n", cfg.Web.Host, port)
	}
	fmt.Printf("Logs: %s\n", daemon.LogPath())
	return nil
}
