// Package window defines the foreground-window probe and the display-server
// backends it samples.
package window

// Display server names reported by Detector.GetDisplayServer.
const (
	ServerX11     = "x11"
	ServerWayland = "wayland"
)

// WindowInfo describes the focused window at one instant.
type WindowInfo struct {
	AppName       string // WM_CLASS class or compositor app id
	WindowTitle   string
	ProcessName   string // owning executable; empty when the PID is unknown
	PID           int32
	DisplayServer string
}

// IdleInfo is the session's input idle and screen lock state.
type IdleInfo struct {
	IsIdle   bool
	IsLocked bool
	IdleTime int64 // seconds
}

// Detector is one display-server backend. Errors from GetFocusedWindow may be
// a *ProbeError carrying the failure reason.
type Detector interface {
	GetFocusedWindow() (*WindowInfo, error)
	GetIdleInfo() (*IdleInfo, error)
	IsAvailable() bool
	GetDisplayServer() string
	Close() error
}

// Probe reports the foreground program and window title. It never fails;
// when nothing can be observed program is UnknownProgram and title the reason.
type Probe interface {
	Sample() (program, title string)
}
