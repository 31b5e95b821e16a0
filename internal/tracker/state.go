package tracker

// LiveState is a consistent copy of the tracker state for the UI.
type LiveState struct {
	ActiveProgram         string  `json:"active_program"`
	ActiveTitle           string  `json:"active_title"`
	ActiveCategory        string  `json:"active_category"`
	PreviousProgram       string  `json:"previous_program"`
	ElapsedSeconds        float64 `json:"elapsed_seconds"`
	BreakCountdownSeconds float64 `json:"break_countdown_seconds"`
	BreakCountdown        string  `json:"break_countdown"`
	BreakDue              bool    `json:"break_due"`
	Running               bool    `json:"running"`
	PendingRecords        int     `json:"pending_records"`
}

// Idle reports whether no program is being tracked.
func (s LiveState) Idle() bool {
	return s.ActiveProgram == ""
}
