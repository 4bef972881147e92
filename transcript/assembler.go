package transcript

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/vaultx/vaultx-term/client"
	"github.com/vaultx/vaultx-term/sse"
	"github.com/vaultx/vaultx-term/tokens"
)

// Greeting opens every new intake.
const Greeting = "Hello! I'm your virtual nurse assistant. I'm here to help gather your intake information. Let's start with your name and what brings you in today."

var (
	// ErrBusy is returned by Begin while a turn is streaming.
	ErrBusy = errors.New("transcript: a turn is already in progress")
	// ErrEmptyMessage is returned by Begin for blank input.
	ErrEmptyMessage = errors.New("transcript: message is empty")
)

// Turn is a started turn: the request to stream and the id that tags its events.
type Turn struct {
	ID      string
	Request client.TurnRequest
}

// Assembler owns the transcript of one intake session.
type Assembler struct {
	mu       sync.Mutex
	greeting string
	snap     Snapshot
	turnID   string

	budget  int
	counter tokens.Counter
}

// New returns an assembler whose transcript starts with greeting.
func New(greeting string) *Assembler {
	a := &Assembler{greeting: greeting, counter: tokens.Heuristic{}}
	a.snap, _ = Reduce(Snapshot{}, Reset{Greeting: greeting})
	return a
}

// SetHistoryBudget caps the token cost of the history sent with each turn.
// A budget of zero sends the whole history.
func (a *Assembler) SetHistoryBudget(budget int, counter tokens.Counter) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.budget = budget
	if counter != nil {
		a.counter = counter
	}
}

// Snapshot returns the current state.
func (a *Assembler) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snap
}

// TurnID is the id of the latest turn, or "" before the first.
func (a *Assembler) TurnID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.turnID
}

// Begin appends the patient's message and returns the request for the turn.
// History is every message before the new one.
func (a *Assembler) Begin(text string) (Turn, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.snap.State.Active() {
		return Turn{}, ErrBusy
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, ErrEmptyMessage
	}
	history := a.snap.Messages
	a.snap, _ = Reduce(a.snap, Send{Text: text})
	a.turnID = uuid.NewString()

	if a.budget > 0 {
		history = TrimHistory(history, a.budget, a.counter)
	}
	return Turn{
		ID: a.turnID,
		Request: client.TurnRequest{
			History:     ToChat(history, false),
			UserMessage: text,
		},
	}, nil
}

// Dispatch applies act if turnID is the current turn. Events from an
// abandoned turn are dropped.
func (a *Assembler) Dispatch(turnID string, act Action) Effect {
	a.mu.Lock()
	defer a.mu.Unlock()
	if turnID != a.turnID {
		return Effect{}
	}
	var eff Effect
	a.snap, eff = Reduce(a.snap, act)
	return eff
}

// HandleFrame applies a decoded stream frame to the turn.
func (a *Assembler) HandleFrame(turnID string, f sse.Frame) Effect {
	act, ok := ActionForFrame(f)
	if !ok {
		return Effect{}
	}
	return a.Dispatch(turnID, act)
}

// Finish closes the turn when the stream ended. A stream that ends without
// a done event still completes the turn; err, when set, fails it instead.
func (a *Assembler) Finish(turnID string, err error) Effect {
	if err != nil {
		return a.Dispatch(turnID, TransportError{Err: err})
	}
	return a.Dispatch(turnID, Finish{})
}

// Cancel aborts the current turn silently.
func (a *Assembler) Cancel() Effect {
	a.mu.Lock()
	defer a.mu.Unlock()
	var eff Effect
	a.snap, eff = Reduce(a.snap, Cancel{})
	return eff
}

// Reset starts a new intake. Any in-flight turn is abandoned.
func (a *Assembler) Reset() Effect {
	a.mu.Lock()
	defer a.mu.Unlock()
	var eff Effect
	a.snap, eff = Reduce(a.snap, Reset{Greeting: a.greeting})
	a.turnID = ""
	return eff
}

// Transcript returns the messages in submission form.
func (a *Assembler) Transcript() []client.ChatMessage {
	return ToChat(a.Snapshot().Messages, true)
}

// ToChat converts messages to the wire form. With forSubmit the assistant
// role is stored as "agent".
func ToChat(msgs []Message, forSubmit bool) []client.ChatMessage {
	out := make([]client.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		role := string(m.Role)
		if forSubmit && m.Role == RoleAssistant {
			role = "agent"
		}
		out = append(out, client.ChatMessage{Role: role, Content: m.Content})
	}
	return out
}

// TrimHistory drops the oldest messages after the first until the rest fit
// in budget tokens. The first message, the greeting, is always kept, as is
// the most recent message.
func TrimHistory(history []Message, budget int, counter tokens.Counter) []Message {
	if budget <= 0 || len(history) <= 2 {
		return history
	}
	total := 0
	for _, m := range history {
		total += counter.Count(m.Content)
	}
	start := 1
	for total > budget && start < len(history)-1 {
		total -= counter.Count(history[start].Content)
		start++
	}
	if start == 1 {
		return history
	}
	out := make([]Message, 0, len(history)-start+1)
	out = append(out, history[0])
	return append(out, history[start:]...)
}
