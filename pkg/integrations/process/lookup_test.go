package process

import (
	"errors"
	"os"
	"testing"

	"focuslog/pkg/window"
)

func TestNameSelf(t *testing.T) {
	name, err := Name(int32(os.Getpid()))
	if err != nil {
		t.Skipf("process lookup unavailable: %v", err)
	}
	if name == "" {
		t.Error("Name() returned empty name for own pid")
	}
}

func TestNameInvalidPID(t *testing.T) {
	_, err := Name(0)
	var pe *window.ProbeError
	if !errors.As(err, &pe) || pe.Reason != window.ReasonNoWindow {
		t.Errorf("Name(0) error = %v, want no-window ProbeError", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not exist", os.ErrNotExist, window.ReasonProcessExited},
		{"permission", &os.PathError{Op: "open", Path: "/proc/1/exe", Err: os.ErrPermission}, window.ReasonAccessDenied},
		{"other", errors.New("boom"), window.ReasonProcessExited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var pe *window.ProbeError
			if !errors.As(classify(tt.err), &pe) || pe.Reason != tt.want {
				t.Errorf("classify(%v) reason = %v, want %s", tt.err, pe, tt.want)
			}
		})
	}
}

func TestFillKeepsExistingName(t *testing.T) {
	info := &window.WindowInfo{PID: int32(os.Getpid()), ProcessName: "already"}
	Fill(info)
	if info.ProcessName != "already" {
		t.Errorf("ProcessName = %q, want unchanged", info.ProcessName)
	}
}
