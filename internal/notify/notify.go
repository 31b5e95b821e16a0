// Package notify delivers break reminders to the desktop.
package notify

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"time"

	"focuslog/pkg/utils"
)

// Desktop sends notifications through notify-send and falls back to the log
// when it is not installed or fails.
type Desktop struct {
	command string
	timeout time.Duration
	run     func(ctx context.Context, name string, args ...string) error
}

// NewDesktop looks up notify-send once.
func NewDesktop() *Desktop {
	d := &Desktop{timeout: 5 * time.Second, run: runCommand}
	if path, err := exec.LookPath("notify-send"); err == nil {
		d.command = path
	}
	return d
}

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// NotifyBreakDue implements tracker.BreakNotifier.
func (d *Desktop) NotifyBreakDue(interval time.Duration) {
	title := "Time for a break"
	body := fmt.Sprintf("You have been working for %s. Reset the countdown when you are back.", utils.FormatClock(interval))

	if d.command == "" {
		log.Printf("%s: %s", title, body)
		return
	}

	// must not block the sampling loop
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.run(ctx, d.command, "--app-name=focuslog", "--urgency=normal", title, body); err != nil {
			log.Printf("warning: notify-send failed: %v; %s: %s", err, title, body)
		}
	}()
}
