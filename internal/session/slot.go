package session

import "terminal-coder/internal/core"

// SlotKind identifies a worker pane by role rather than by tmux's own
// string pane ID, so callers above the multiplexer boundary never depend
// on the "coding"/"review" string literal the reference implementation
// doubles as both a domain concept and a tmux target.
type SlotKind int

const (
	SlotCoding SlotKind = iota
	SlotReview
)

func (k SlotKind) String() string {
	switch k {
	case SlotCoding:
		return "coding"
	case SlotReview:
		return "review"
	default:
		return "unknown"
	}
}

// ParseSlotKind recovers a SlotKind from its persisted string form (the
// Session.Pane column), for a process that did not itself spawn the
// session - e.g. `tc kill` running against a session a separate `tc run`
// process started.
func ParseSlotKind(s string) (SlotKind, bool) {
	switch s {
	case "coding":
		return SlotCoding, true
	case "review":
		return SlotReview, true
	default:
		return 0, false
	}
}

// slotForSessionType maps a Task/Session type to the pane it runs in: one
// coding pane, one review pane, mirroring the reference TmuxManager's
// allocate_pane.
func slotForSessionType(t core.SessionType) SlotKind {
	switch t {
	case core.SessionTypeReview, core.SessionTypeSecurityReview:
		return SlotReview
	default:
		return SlotCoding
	}
}
