package notify

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestNotifyBreakDueRunsCommand(t *testing.T) {
	calls := make(chan []string, 1)
	d := &Desktop{
		command: "/usr/bin/notify-send",
		timeout: time.Second,
		run: func(ctx context.Context, name string, args ...string) error {
			calls <- append([]string{name}, args...)
			return nil
		},
	}

	d.NotifyBreakDue(50 * time.Minute)

	select {
	case got := <-calls:
		if got[0] != "/usr/bin/notify-send" {
			t.Errorf("command = %q", got[0])
		}
		if !strings.Contains(got[len(got)-1], "00:50:00") {
			t.Errorf("body = %q, want the interval", got[len(got)-1])
		}
	case <-time.After(time.Second):
		t.Fatal("notify-send was not invoked")
	}
}

func TestNotifyBreakDueWithoutCommand(t *testing.T) {
	d := &Desktop{
		timeout: time.Second,
		run: func(context.Context, string, ...string) error {
			t.Error("command run without notify-send")
			return nil
		},
	}
	d.NotifyBreakDue(time.Minute)
}
