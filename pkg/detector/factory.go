// Package detector picks the window backend for the current session.
package detector

import (
	"fmt"
	"log"
	"os"

	"focuslog/pkg/integrations/wayland"
	"focuslog/pkg/integrations/x11"
	"focuslog/pkg/window"
)

const serverUnknown = "unknown"

// New returns the detector for the running display server. On Wayland the
// compositor is asked first and XWayland is the fallback.
func New() (window.Detector, error) {
	server := DetectDisplayServer()

	if server == window.ServerWayland {
		if det := wayland.NewDetector(); det.IsAvailable() {
			return det, nil
		}
		log.Printf("warning: wayland compositor not supported, falling back to XWayland")
	}

	if server != serverUnknown || os.Getenv("DISPLAY") != "" {
		if det := x11.NewDetector(); det.IsAvailable() {
			return det, nil
		}
	}

	return nil, fmt.Errorf("no window detector available for display server %q", server)
}

// NewProbe wraps New's detector in a SafeProbe. The caller closes the detector.
func NewProbe() (*window.SafeProbe, window.Detector, error) {
	det, err := New()
	if err != nil {
		return nil, nil, err
	}
	return window.NewSafeProbe(det), det, nil
}

// DetectDisplayServer reads the session environment. A Wayland socket wins
// over DISPLAY, which XWayland also sets.
func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")

	switch {
	case sessionType == window.ServerWayland || os.Getenv("WAYLAND_DISPLAY") != "":
		return window.ServerWayland
	case sessionType == window.ServerX11 || os.Getenv("DISPLAY") != "":
		return window.ServerX11
	}
	return serverUnknown
}
