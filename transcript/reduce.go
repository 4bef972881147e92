// Package transcript folds a streamed intake conversation into message state.
//
// Reduce is a pure transition function over Snapshot; Assembler owns the
// current snapshot and ties it to the turn being streamed.
package transcript

import (
	"context"
	"errors"
	"strings"
)

// Role of a transcript message.
type Role string

const (
	RolePatient   Role = "patient"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one chat bubble.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// State of the current turn.
type State int

const (
	Idle State = iota
	AwaitingFirstToken
	Streaming
	Done
	Errored
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingFirstToken:
		return "awaiting first token"
	case Streaming:
		return "streaming"
	case Done:
		return "done"
	case Errored:
		return "errored"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Active reports whether a turn is in flight.
func (s State) Active() bool {
	return s == AwaitingFirstToken || s == Streaming
}

// Terminal reports whether the last turn has ended.
func (s State) Terminal() bool {
	return s == Done || s == Errored || s == Cancelled
}

// Snapshot is an immutable view of the transcript. Messages is never
// modified once a snapshot has been handed out.
type Snapshot struct {
	Messages []Message
	State    State
	// Open is true while the trailing assistant message belongs to the
	// streaming turn.
	Open    bool
	Version uint64
}

// Action is an input to Reduce.
type Action interface{ action() }

type (
	// Send starts a turn with the patient's text.
	Send struct{ Text string }
	// Token appends streamed assistant text.
	Token struct{ Text string }
	// Finish ends the turn normally.
	Finish struct{}
	// StreamError is an error event sent by the agent.
	StreamError struct{ Message string }
	// TransportError is a failure of the request or the stream itself.
	TransportError struct{ Err error }
	// Cancel is a user abort.
	Cancel struct{}
	// Reset clears the transcript back to the greeting.
	Reset struct{ Greeting string }
)

func (Send) action()           {}
func (Token) action()          {}
func (Finish) action()         {}
func (StreamError) action()    {}
func (TransportError) action() {}
func (Cancel) action()         {}
func (Reset) action()          {}

// Notice titles and bodies shown to the patient.
const (
	AgentErrorTitle      = "Agent Error"
	ConnectionErrorTitle = "Connection Error"
	ConnectionErrorText  = "Unable to reach the virtual nurse. Please try again."
	UnknownErrorText     = "Unknown error"
)

// Notice is a user-facing error produced by a transition.
type Notice struct {
	Title   string
	Message string
}

// Effect describes what a transition did.
type Effect struct {
	Changed   bool
	Terminal  bool    // the turn ended with this transition
	Notice    *Notice // set when an error must be surfaced
	SignedOut bool    // the stream was refused with 401
}

// Reduce applies act to s. It never modifies s.
func Reduce(s Snapshot, act Action) (Snapshot, Effect) {
	switch a := act.(type) {
	case Send:
		text := strings.TrimSpace(a.Text)
		if text == "" || s.State.Active() {
			return s, Effect{}
		}
		next := withMessages(s, append(clone(s.Messages), Message{Role: RolePatient, Content: text}))
		next.State = AwaitingFirstToken
		next.Open = false
		return next, Effect{Changed: true}

	case Token:
		if a.Text == "" || !s.State.Active() {
			return s, Effect{}
		}
		msgs := clone(s.Messages)
		if s.State == Streaming && s.Open && len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			last.Content += a.Text
			msgs[len(msgs)-1] = last
		} else {
			msgs = append(msgs, Message{Role: RoleAssistant, Content: a.Text})
		}
		next := withMessages(s, msgs)
		next.State = Streaming
		next.Open = true
		return next, Effect{Changed: true}

	case Finish:
		if !s.State.Active() {
			return s, Effect{}
		}
		next := end(s, Done)
		return next, Effect{Changed: true, Terminal: true}

	case StreamError:
		if !s.State.Active() {
			return s, Effect{}
		}
		msg := a.Message
		if msg == "" {
			msg = UnknownErrorText
		}
		next := end(dropEmptyOpen(s), Errored)
		return next, Effect{Changed: true, Terminal: true, Notice: &Notice{Title: AgentErrorTitle, Message: msg}}

	case TransportError:
		if !s.State.Active() {
			return s, Effect{}
		}
		if errors.Is(a.Err, context.Canceled) {
			return Reduce(s, Cancel{})
		}
		next := end(dropEmptyOpen(s), Errored)
		if unauthorized(a.Err) {
			return next, Effect{Changed: true, Terminal: true, SignedOut: true}
		}
		return next, Effect{Changed: true, Terminal: true, Notice: &Notice{Title: ConnectionErrorTitle, Message: ConnectionErrorText}}

	case Cancel:
		if !s.State.Active() {
			return s, Effect{}
		}
		next := end(dropEmptyOpen(s), Cancelled)
		return next, Effect{Changed: true, Terminal: true}

	case Reset:
		var msgs []Message
		if a.Greeting != "" {
			msgs = []Message{{Role: RoleAssistant, Content: a.Greeting}}
		}
		next := withMessages(s, msgs)
		next.State = Idle
		next.Open = false
		return next, Effect{Changed: true, Terminal: s.State.Active()}
	}
	return s, Effect{}
}

func unauthorized(err error) bool {
	var u interface{ Unauthorized() bool }
	return errors.As(err, &u) && u.Unauthorized()
}

func clone(msgs []Message) []Message {
	out := make([]Message, len(msgs), len(msgs)+1)
	copy(out, msgs)
	return out
}

func withMessages(s Snapshot, msgs []Message) Snapshot {
	return Snapshot{Messages: msgs, State: s.State, Open: s.Open, Version: s.Version + 1}
}

func end(s Snapshot, st State) Snapshot {
	next := withMessages(s, s.Messages)
	next.State = st
	next.Open = false
	return next
}

// dropEmptyOpen removes the trailing assistant message of the current turn
// when it holds no visible text.
func dropEmptyOpen(s Snapshot) Snapshot {
	n := len(s.Messages)
	if !s.Open || n == 0 {
		return s
	}
	last := s.Messages[n-1]
	if last.Role != RoleAssistant || strings.TrimSpace(last.Content) != "" {
		return s
	}
	next := withMessages(s, clone(s.Messages[:n-1]))
	next.Open = false
	return next
}
