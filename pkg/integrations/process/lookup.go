// Package process resolves window owner PIDs to executable names.
package process

import (
	"os"
	"path/filepath"
	"strings"

	"focuslog/pkg/window"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/process"
)

// Name returns the executable name of pid. Failures are *window.ProbeError
// with ReasonProcessExited or ReasonAccessDenied.
func Name(pid int32) (string, error) {
	if pid <= 0 {
		return "", &window.ProbeError{Reason: window.ReasonNoWindow}
	}

	proc, err := process.NewProcess(pid)
	if err != nil {
		return "", classify(err)
	}

	// Exe gives the real binary for wrappers that rename their comm.
	if exe, err := proc.Exe(); err == nil && exe != "" {
		return strings.TrimSuffix(filepath.Base(exe), " (deleted)"), nil
	}

	name, err := proc.Name()
	if err != nil {
		return "", classify(err)
	}
	return name, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, process.ErrorProcessNotRunning), errors.Is(err, os.ErrNotExist):
		return &window.ProbeError{Reason: window.ReasonProcessExited, Err: err}
	case errors.Is(err, os.ErrPermission):
		return &window.ProbeError{Reason: window.ReasonAccessDenied, Err: err}
	default:
		return &window.ProbeError{Reason: window.ReasonProcessExited, Err: err}
	}
}

// Fill sets info.ProcessName from info.PID when possible.
func Fill(info *window.WindowInfo) {
	if info == nil || info.PID <= 0 || info.ProcessName != "" {
		return
	}
	if name, err := Name(info.PID); err == nil {
		info.ProcessName = name
	}
}
