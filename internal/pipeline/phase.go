package pipeline

import "fmt"

// Phase is a state of the pipeline session.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseIdle
	PhaseGenerating
	PhasePreview
	PhaseCreating
	PhaseClosed
)

var phaseNames = map[Phase]string{
	PhaseLoading:    "loading",
	PhaseIdle:       "idle",
	PhaseGenerating: "generating",
	PhasePreview:    "preview",
	PhaseCreating:   "creating",
	PhaseClosed:     "closed",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	if _, ok := phaseNames[p]; !ok {
		return nil, fmt.Errorf("unknown phase %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	for phase, name := range phaseNames {
		if name == string(text) {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", string(text))
}

// Action is an event that moves the session between phases.
type Action string

const (
	ActionScanned   Action = "scanned"
	ActionStart     Action = "start"
	ActionCancel    Action = "cancel"
	ActionGenerated Action = "generated"
	ActionAborted   Action = "aborted"
	ActionCreate    Action = "create"
	ActionCommitted Action = "committed"
)

type edge struct {
	from   Phase
	action Action
}

var transitions = map[edge]Phase{
	{PhaseLoading, ActionScanned}:      PhaseIdle,
	{PhaseIdle, ActionStart}:           PhaseGenerating,
	{PhaseIdle, ActionCancel}:          PhaseClosed,
	{PhaseGenerating, ActionGenerated}: PhasePreview,
	{PhaseGenerating, ActionAborted}:   PhaseClosed,
	{PhasePreview, ActionCancel}:       PhaseClosed,
	{PhasePreview, ActionCreate}:       PhaseCreating,
	{PhaseCreating, ActionCommitted}:   PhaseClosed,
}

// Transition returns the phase reached by applying a in from.
func Transition(from Phase, a Action) (Phase, error) {
	if to, ok := transitions[edge{from, a}]; ok {
		return to, nil
	}
	return from, &TransitionError{From: from, Action: a}
}
