package wayland

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"focuslog/pkg/integrations/process"
	"focuslog/pkg/window"
)

// Detector implements window.Detector for Wayland compositors
type Detector struct {
	compositor string
	hasSwaymsg bool
	hasHyprctl bool
	hasGdbus   bool
}

// NewDetector creates a new Wayland detector
func NewDetector() *Detector {
	d := &Detector{
		hasSwaymsg: commandExists("swaymsg"),
		hasHyprctl: commandExists("hyprctl"),
		hasGdbus:   commandExists("gdbus"),
	}
	d.compositor = detectCompositor()
	return d
}

func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

var compositorProcesses = []struct{ process, name string }{
	{"sway", "sway"},
	{"Hyprland", "hyprland"},
	{"gnome-shell", "gnome"},
	{"kwin_wayland", "kde"},
}

func detectCompositor() string {
	for _, c := range compositorProcesses {
		if err := exec.Command("pgrep", "-x", c.process).Run(); err == nil {
			return c.name
		}
	}
	return "unknown"
}

// IsAvailable checks if the running compositor can be queried
func (d *Detector) IsAvailable() bool {
	switch d.compositor {
	case "sway":
		return d.hasSwaymsg
	case "hyprland":
		return d.hasHyprctl
	case "gnome":
		return d.hasGdbus
	case "kde":
		return commandExists("qdbus")
	default:
		return false
	}
}

// GetDisplayServer returns window.ServerWayland
func (d *Detector) GetDisplayServer() string {
	return window.ServerWayland
}

// GetFocusedWindow returns information about the currently focused window
func (d *Detector) GetFocusedWindow() (*window.WindowInfo, error) {
	var (
		info *window.WindowInfo
		err  error
	)

	switch d.compositor {
	case "sway":
		info, err = d.focusedSway()
	case "hyprland":
		info, err = d.focusedHyprland()
	case "gnome":
		info, err = d.focusedGnome()
	case "kde":
		info, err = d.focusedKDE()
	default:
		return nil, fmt.Errorf("unsupported wayland compositor: %s", d.compositor)
	}
	if err != nil {
		return nil, err
	}

	info.DisplayServer = window.ServerWayland
	process.Fill(info)
	return info, nil
}

type swayNode struct {
	Focused          bool       `json:"focused"`
	Name             string     `json:"name"`
	AppID            string     `json:"app_id"`
	PID              int32      `json:"pid"`
	WindowProperties *struct {
		Class string `json:"class"`
	} `json:"window_properties"`
	Nodes         []swayNode `json:"nodes"`
	FloatingNodes []swayNode `json:"floating_nodes"`
}

func (d *Detector) focusedSway() (*window.WindowInfo, error) {
	output, err := exec.Command("swaymsg", "-t", "get_tree", "-r").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to execute swaymsg: %w", err)
	}
	return parseSwayTree(output)
}

// parseSwayTree finds the focused leaf in swaymsg's get_tree output
func parseSwayTree(data []byte) (*window.WindowInfo, error) {
	var root swayNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse sway tree: %w", err)
	}

	node := findFocused(&root)
	if node == nil || (node.PID == 0 && node.AppID == "" && node.WindowProperties == nil) {
		return nil, &window.ProbeError{Reason: window.ReasonNoWindow}
	}

	appName := node.AppID
	if appName == "" && node.WindowProperties != nil {
		appName = node.WindowProperties.Class
	}
	return &window.WindowInfo{
		AppName:     appName,
		WindowTitle: node.Name,
		PID:         node.PID,
	}, nil
}

func findFocused(node *swayNode) *swayNode {
	if node.Focused {
		return node
	}
	for i := range node.Nodes {
		if found := findFocused(&node.Nodes[i]); found != nil {
			return found
		}
	}
	for i := range node.FloatingNodes {
		if found := findFocused(&node.FloatingNodes[i]); found != nil {
			return found
		}
	}
	return nil
}

func (d *Detector) focusedHyprland() (*window.WindowInfo, error) {
	output, err := exec.Command("hyprctl", "activewindow", "-j").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to execute hyprctl: %w", err)
	}
	return parseHyprlandWindow(output)
}

// parseHyprlandWindow parses `hyprctl activewindow -j`
func parseHyprlandWindow(data []byte) (*window.WindowInfo, error) {
	var active struct {
		Class string `json:"class"`
		Title string `json:"title"`
		PID   int32  `json:"pid"`
	}
	if err := json.Unmarshal(data, &active); err != nil {
		return nil, fmt.Errorf("failed to parse hyprctl output: %w", err)
	}
	if active.Class == "" && active.PID <= 0 {
		return nil, &window.ProbeError{Reason: window.ReasonNoWindow}
	}
	return &window.WindowInfo{
		AppName:     active.Class,
		WindowTitle: active.Title,
		PID:         active.PID,
	}, nil
}

const gnomeScript = `
(() => {
	const w = global.display.get_focus_window();
	if (!w) return '';
	return JSON.stringify({wm_class: w.get_wm_class() || '', title: w.get_title() || '', pid: w.get_pid() || 0});
})()`

func (d *Detector) focusedGnome() (*window.WindowInfo, error) {
	output, err := exec.Command("gdbus", "call", "--session",
		"--dest", "org.gnome.Shell",
		"--object-path", "/org/gnome/Shell",
		"--method", "org.gnome.Shell.Eval",
		gnomeScript).Output()
	if err != nil {
		return nil, fmt.Errorf("failed to query GNOME Shell: %w", err)
	}
	return parseGnomeEval(string(output))
}

// parseGnomeEval parses gdbus output like (true, '{"wm_class":"firefox",...}')
func parseGnomeEval(output string) (*window.WindowInfo, error) {
	output = strings.TrimSpace(output)
	if !strings.HasPrefix(output, "(true,") {
		return nil, fmt.Errorf("GNOME Shell.Eval is disabled (unsafe mode required)")
	}

	start := strings.Index(output, "{")
	end := strings.LastIndex(output, "}")
	if start == -1 || end < start {
		return nil, &window.ProbeError{Reason: window.ReasonNoWindow}
	}

	payload := strings.ReplaceAll(output[start:end+1], `\"`, `"`)
	var focused struct {
		WMClass string `json:"wm_class"`
		Title   string `json:"title"`
		PID     int32  `json:"pid"`
	}
	if err := json.Unmarshal([]byte(payload), &focused); err != nil {
		return nil, fmt.Errorf("failed to parse GNOME window: %w", err)
	}
	return &window.WindowInfo{
		AppName:     focused.WMClass,
		WindowTitle: focused.Title,
		PID:         focused.PID,
	}, nil
}

const kdeScript = `
var clients = workspace.clientList();
for (var i = 0; i < clients.length; i++) {
	if (clients[i].active) {
		print(clients[i].resourceClass + "|" + clients[i].pid + "|" + clients[i].caption);
	}
}
`

func (d *Detector) focusedKDE() (*window.WindowInfo, error) {
	output, err := exec.Command("qdbus", "org.kde.KWin", "/Scripting", "org.kde.kwin.Scripting.loadScript", kdeScript).Output()
	if err != nil {
		return nil, fmt.Errorf("failed to query KDE window: %w", err)
	}
	return parseKDE(string(output))
}

func parseKDE(output string) (*window.WindowInfo, error) {
	parts := strings.SplitN(strings.TrimSpace(output), "|", 3)
	if len(parts) < 3 || parts[0] == "" {
		return nil, &window.ProbeError{Reason: window.ReasonNoWindow}
	}

	info := &window.WindowInfo{AppName: parts[0], WindowTitle: parts[2]}
	fmt.Sscanf(parts[1], "%d", &info.PID)
	return info, nil
}

// GetIdleInfo returns lock information; idle time is not exposed by most
// compositors.
func (d *Detector) GetIdleInfo() (*window.IdleInfo, error) {
	return &window.IdleInfo{IsLocked: isScreenLocked()}, nil
}

var lockers = []string{
	"swaylock",
	"waylock",
	"gtklock",
	"hyprlock",
	"gnome-screensaver-dialog",
}

// isScreenLocked checks if screen is locked
func isScreenLocked() bool {
	for _, locker := range lockers {
		if err := exec.Command("pgrep", "-x", locker).Run(); err == nil {
			return true
		}
	}

	output, err := exec.Command("loginctl", "show-session", "-p", "LockedHint").Output()
	return err == nil && strings.Contains(string(output), "LockedHint=yes")
}

// Close cleans up resources
func (d *Detector) Close() error {
	return nil
}
