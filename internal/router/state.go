package router

import (
	"fmt"
	"strconv"
)

// Phase is the position of a CommandState in the routing state machine.
type Phase int

const (
	PhaseReceived Phase = iota
	PhaseGatedInactive
	PhaseGatedActive
	PhaseRouted
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseReceived:
		return "received"
	case PhaseGatedInactive:
		return "gated-inactive"
	case PhaseGatedActive:
		return "gated-active"
	case PhaseRouted:
		return "routed"
	case PhaseTerminated:
		return "terminated"
	}
	return "phase(" + strconv.Itoa(int(p)) + ")"
}

// Context keys shared between handlers across passes.
const (
	KeyMeetingID = "meeting_id"
	KeyChatID    = "chat_id"
)

// CommandState is the single record threaded through one routing pass.
// Input is fixed at creation; Context accumulates entries and is never
// pruned by the router.
type CommandState struct {
	input    string
	Context  map[string]any
	Active   bool
	Response string
	phase    Phase
}

// NewState wraps an utterance and a caller-owned context map. A nil map is
// replaced by an empty one so handlers can always write to it.
func NewState(input string, ctx map[string]any) *CommandState {
	if ctx == nil {
		ctx = map[string]any{}
	}
	return &CommandState{input: input, Context: ctx}
}

// Input returns the raw utterance.
func (s *CommandState) Input() string { return s.input }

// Phase reports where the state is in the routing state machine.
func (s *CommandState) Phase() Phase { return s.phase }

// ContextString reads a context entry as a string. JSON payloads decode
// numbers as float64, so numeric values are formatted without a fraction.
func (s *CommandState) ContextString(key string) string {
	v, ok := s.Context[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

// SetContext records a value for later passes.
func (s *CommandState) SetContext(key string, value any) {
	s.Context[key] = value
}
