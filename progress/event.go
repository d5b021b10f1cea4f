package progress

import (
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"

	yaoernie "github.com/longdream/yao-ernie"
)

// Event is the closed union of progress event variants. The wire-level
// "kind" discriminator exists only in Encode and Decode; inside the process
// events are typed variants.
type Event interface {
	// SessionID identifies the session this event belongs to.
	SessionID() string

	isEvent()
}

// PlanReady carries the decomposed step list of the first Thought. Emitted
// at most once per session.
type PlanReady struct {
	Session string
	Steps   []yaoernie.PlanStep
}

// StepStart marks the beginning of one Act/Observe pair.
type StepStart struct {
	Session     string
	StepID      int
	Tool        string
	Description string
}

// StepDone marks a successfully observed step.
type StepDone struct {
	Session     string
	StepID      int
	Tool        string
	Description string
}

// StepError marks a step whose observation reported failure.
type StepError struct {
	Session string
	StepID  int
	Tool    string
	Error   string
}

// Status is a free-text update.
type Status struct {
	Session string
	Message string
}

// Terminal tells the observer to stop listening. It is the last event of a
// session.
type Terminal struct {
	Session string
	Outcome yaoernie.TerminalOutcome
}

func (e *PlanReady) SessionID() string { return e.Session }
func (e *StepStart) SessionID() string { return e.Session }
func (e *StepDone) SessionID() string  { return e.Session }
func (e *StepError) SessionID() string { return e.Session }
func (e *Status) SessionID() string    { return e.Session }
func (e *Terminal) SessionID() string  { return e.Session }

func (*PlanReady) isEvent() {}
func (*StepStart) isEvent() {}
func (*StepDone) isEvent()  {}
func (*StepError) isEvent() {}
func (*Status) isEvent()    {}
func (*Terminal) isEvent()  {}

const (
	kindPlanReady = "plan_ready"
	kindStepStart = "step_start"
	kindStepDone  = "step_done"
	kindStepError = "step_error"
	kindStatus    = "status"
	kindTerminal  = "terminal"
)

// ErrUnknownEventKind is returned by Decode for an unrecognized kind
// string.
var ErrUnknownEventKind = goerr.New("unknown progress event kind")

// wireEvent is the flat JSON representation shared by all variants.
type wireEvent struct {
	Kind      string              `json:"kind"`
	SessionID string              `json:"session_id"`
	StepID    int                 `json:"step_id,omitempty"`
	Tool      string              `json:"tool,omitempty"`
	Desc      string              `json:"description,omitempty"`
	Message   string              `json:"message,omitempty"`
	Error     string              `json:"error,omitempty"`
	Steps     []yaoernie.PlanStep `json:"steps,omitempty"`
	Outcome   string              `json:"outcome,omitempty"`
	Terminal  bool                `json:"terminal,omitempty"`
}

// Encode maps an event variant to its wire representation.
func Encode(event Event) ([]byte, error) {
	var w wireEvent
	w.SessionID = event.SessionID()

	switch e := event.(type) {
	case *PlanReady:
		w.Kind = kindPlanReady
		w.Steps = e.Steps
	case *StepStart:
		w.Kind = kindStepStart
		w.StepID = e.StepID
		w.Tool = e.Tool
		w.Desc = e.Description
	case *StepDone:
		w.Kind = kindStepDone
		w.StepID = e.StepID
		w.Tool = e.Tool
		w.Desc = e.Description
	case *StepError:
		w.Kind = kindStepError
		w.StepID = e.StepID
		w.Tool = e.Tool
		w.Error = e.Error
	case *Status:
		w.Kind = kindStatus
		w.Message = e.Message
	case *Terminal:
		w.Kind = kindTerminal
		w.Outcome = string(e.Outcome)
		w.Terminal = true
	default:
		return nil, goerr.Wrap(ErrUnknownEventKind, "unencodable event", goerr.V("event", event))
	}

	data, err := json.Marshal(w)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal progress event")
	}
	return data, nil
}

// Decode maps a wire representation back to its event variant.
func Decode(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal progress event")
	}

	switch w.Kind {
	case kindPlanReady:
		return &PlanReady{Session: w.SessionID, Steps: w.Steps}, nil
	case kindStepStart:
		return &StepStart{Session: w.SessionID, StepID: w.StepID, Tool: w.Tool, Description: w.Desc}, nil
	case kindStepDone:
		return &StepDone{Session: w.SessionID, StepID: w.StepID, Tool: w.Tool, Description: w.Desc}, nil
	case kindStepError:
		return &StepError{Session: w.SessionID, StepID: w.StepID, Tool: w.Tool, Error: w.Error}, nil
	case kindStatus:
		return &Status{Session: w.SessionID, Message: w.Message}, nil
	case kindTerminal:
		return &Terminal{Session: w.SessionID, Outcome: yaoernie.TerminalOutcome(w.Outcome)}, nil
	default:
		return nil, goerr.Wrap(ErrUnknownEventKind, "undecodable event", goerr.V("kind", w.Kind))
	}
}
