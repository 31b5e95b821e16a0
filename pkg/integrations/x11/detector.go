package x11

import (
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"focuslog/pkg/integrations/process"
	"focuslog/pkg/window"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

var atomNames = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_WM_NAME",
	"_NET_WM_PID",
	"WM_NAME",
	"WM_CLASS",
	"UTF8_STRING",
}

// Detector implements window.Detector for X11 over a native xgb connection.
type Detector struct {
	mu    sync.Mutex
	conn  *xgb.Conn
	root  xproto.Window
	atoms map[string]xproto.Atom
}

// NewDetector creates a new X11 detector. The connection is opened lazily.
func NewDetector() *Detector {
	return &Detector{}
}

// IsAvailable checks if an X server is reachable
func (d *Detector) IsAvailable() bool {
	if os.Getenv("DISPLAY") == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connect() == nil
}

// GetDisplayServer returns window.ServerX11
func (d *Detector) GetDisplayServer() string {
	return window.ServerX11
}

// connect must be called with d.mu held.
func (d *Detector) connect() error {
	if d.conn != nil {
		return nil
	}

	conn, err := xgb.NewConn()
	if err != nil {
		return fmt.Errorf("failed to connect to X server: %w", err)
	}

	atoms := make(map[string]xproto.Atom, len(atomNames))
	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return fmt.Errorf("failed to intern %s: %w", name, err)
		}
		atoms[name] = reply.Atom
	}

	d.conn = conn
	d.root = xproto.Setup(conn).DefaultScreen(conn).Root
	d.atoms = atoms
	return nil
}

// reset drops a broken connection so the next sample reconnects.
func (d *Detector) reset() {
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
}

// GetFocusedWindow returns information about the currently focused window
func (d *Detector) GetFocusedWindow() (*window.WindowInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.connect(); err != nil {
		return nil, err
	}

	win, err := d.activeWindow()
	if err != nil {
		return nil, err
	}

	instance, class := d.windowClass(win)
	appName := class
	if appName == "" {
		appName = instance
	}

	info := &window.WindowInfo{
		AppName:       appName,
		WindowTitle:   d.windowName(win),
		PID:           d.windowPID(win),
		DisplayServer: window.ServerX11,
	}
	process.Fill(info)
	return info, nil
}

func (d *Detector) property(win xproto.Window, atom, typ xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(d.conn, false, win, atom, typ, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

func (d *Detector) activeWindow() (xproto.Window, error) {
	data, err := d.property(d.root, d.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1)
	if err != nil {
		d.reset()
		return 0, fmt.Errorf("failed to read _NET_ACTIVE_WINDOW: %w", err)
	}
	if len(data) >= 4 {
		if win := xproto.Window(binary.LittleEndian.Uint32(data)); win != 0 {
			return win, nil
		}
	}

	// window managers without EWMH: walk up from the input focus
	focus, err := xproto.GetInputFocus(d.conn).Reply()
	if err != nil {
		d.reset()
		return 0, fmt.Errorf("failed to read input focus: %w", err)
	}
	if focus.Focus == 0 || focus.Focus == d.root {
		return 0, &window.ProbeError{Reason: window.ReasonNoWindow}
	}
	return d.topLevel(focus.Focus), nil
}

func (d *Detector) topLevel(win xproto.Window) xproto.Window {
	for {
		reply, err := xproto.QueryTree(d.conn, win).Reply()
		if err != nil || reply.Parent == d.root || reply.Parent == 0 {
			return win
		}
		win = reply.Parent
	}
}

func (d *Detector) windowName(win xproto.Window) string {
	data, err := d.property(win, d.atoms["_NET_WM_NAME"], d.atoms["UTF8_STRING"], 256)
	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}

	data, err = d.property(win, d.atoms["WM_NAME"], xproto.AtomString, 256)
	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}
	return ""
}

func (d *Detector) windowClass(win xproto.Window) (instance, class string) {
	data, err := d.property(win, d.atoms["WM_CLASS"], xproto.AtomString, 256)
	if err != nil || len(data) == 0 {
		return "", ""
	}
	return parseWMClass(data)
}

// parseWMClass splits the NUL-separated WM_CLASS value.
func parseWMClass(data []byte) (instance, class string) {
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	if len(parts) >= 1 {
		instance = parts[0]
	}
	if len(parts) >= 2 {
		class = parts[1]
	}
	return instance, class
}

func (d *Detector) windowPID(win xproto.Window) int32 {
	data, err := d.property(win, d.atoms["_NET_WM_PID"], xproto.AtomCardinal, 1)
	if err != nil || len(data) < 4 {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(data))
}

// GetIdleInfo returns system idle/lock information
func (d *Detector) GetIdleInfo() (*window.IdleInfo, error) {
	idleTime := getIdleTime()

	const idleThreshold = 300
	return &window.IdleInfo{
		IsIdle:   idleTime > idleThreshold,
		IsLocked: isScreenLocked(),
		IdleTime: idleTime,
	}, nil
}

// getIdleTime returns the system idle time in seconds, 0 when unknown
func getIdleTime() int64 {
	output, err := exec.Command("xprintidle").Output()
	if err != nil {
		return 0
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(string(output)), 10, 64)
	if err != nil {
		return 0
	}
	return ms / 1000
}

var lockers = []string{
	"gnome-screensaver-dialog",
	"kscreenlocker",
	"i3lock",
	"slock",
	"xscreensaver",
	"xsecurelock",
}

// isScreenLocked checks if a known screen locker is running
func isScreenLocked() bool {
	for _, locker := range lockers {
		if err := exec.Command("pgrep", "-x", locker).Run(); err == nil {
			return true
		}
	}
	return false
}

// Close cleans up resources
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
	return nil
}
