package window

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// UnknownProgram is the program reported when no foreground window can be
// attributed to a process.
const UnknownProgram = "Unknown"

// Probe failure reasons.
const (
	ReasonNoWindow      = "no foreground window"
	ReasonProcessExited = "process exited"
	ReasonAccessDenied  = "access denied"
	ReasonLocked        = "screen locked"
	ReasonDetector      = "detector error"
)

// ProbeError describes why a sample could not be attributed.
type ProbeError struct {
	Reason string
	Err    error
}

func (e *ProbeError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// SafeProbe turns a Detector into a Probe that never fails: errors become the
// (UnknownProgram, reason) pair.
type SafeProbe struct {
	detector Detector

	mu      sync.Mutex
	lastErr string
}

// NewSafeProbe wraps detector.
func NewSafeProbe(detector Detector) *SafeProbe {
	return &SafeProbe{detector: detector}
}

// Sample implements Probe.
func (p *SafeProbe) Sample() (string, string) {
	program, title, err := p.sample()
	if err != nil {
		p.logOnce(err)
		return UnknownProgram, err.Reason
	}
	p.logOnce(nil)
	return program, title
}

func (p *SafeProbe) sample() (program, title string, perr *ProbeError) {
	defer func() {
		if r := recover(); r != nil {
			perr = &ProbeError{Reason: ReasonDetector, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if idle, err := p.detector.GetIdleInfo(); err == nil && idle != nil && idle.IsLocked {
		return "", "", &ProbeError{Reason: ReasonLocked}
	}

	info, err := p.detector.GetFocusedWindow()
	if err != nil {
		var pe *ProbeError
		if errors.As(err, &pe) {
			return "", "", pe
		}
		return "", "", &ProbeError{Reason: ReasonNoWindow, Err: err}
	}
	if info == nil {
		return "", "", &ProbeError{Reason: ReasonNoWindow}
	}

	name := info.ProcessName
	if name == "" {
		name = info.AppName
	}
	program = NormalizeProgram(name)
	if program == "" || program == UnknownProgram {
		return "", "", &ProbeError{Reason: ReasonNoWindow}
	}

	title = strings.TrimSpace(info.WindowTitle)
	if title == "" || title == UnknownProgram {
		title = program
	}
	return program, title, nil
}

// logOnce logs probe failures when the reason changes, not on every tick.
func (p *SafeProbe) logOnce(err *ProbeError) {
	p.mu.Lock()
	defer p.mu.Unlock()

	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if msg != p.lastErr && msg != "" {
		log.Printf("Probe: %s", msg)
	}
	p.lastErr = msg
}

// NormalizeProgram strips directories and a Windows executable suffix.
func NormalizeProgram(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if ext := filepath.Ext(name); strings.EqualFold(ext, ".exe") {
		name = name[:len(name)-len(ext)]
	}
	return name
}
