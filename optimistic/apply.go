package optimistic

import (
	"context"
	"errors"
)

// NetworkMessage is shown when a request fails before any response arrives.
const NetworkMessage = "Unable to reach the server. Please try again."

// Op names a mutation for user-facing notices.
type Op struct {
	Title    string // notice title, e.g. "Action failed"
	Fallback string // body used when the server sends no message
}

// Hooks are the side effects of a failed mutation. Nil hooks are skipped.
type Hooks struct {
	Notify       func(title, message string)
	Unauthorized func()
}

// Result is how a mutation settled.
type Result int

const (
	Confirmed Result = iota
	RolledBack
	SignedOut
)

func (r Result) String() string {
	switch r {
	case Confirmed:
		return "confirmed"
	case RolledBack:
		return "rolled back"
	case SignedOut:
		return "signed out"
	default:
		return "unknown"
	}
}

// Outcome describes a settled mutation.
type Outcome struct {
	Result  Result
	Message string // notice body; empty when confirmed or signed out
	Err     error
}

type unauthorizer interface{ Unauthorized() bool }

type serverMessager interface{ ServerMessage() string }

// Classify maps a request error to a sign-out or a notice message.
// Errors carrying a status (any type with ServerMessage) use the server's
// message or fallback; anything else is treated as a network failure.
func Classify(err error, fallback string) (unauthorized bool, message string) {
	var u unauthorizer
	if errors.As(err, &u) && u.Unauthorized() {
		return true, ""
	}
	var sm serverMessager
	if errors.As(err, &sm) {
		if msg := sm.ServerMessage(); msg != "" {
			return false, msg
		}
		return false, fallback
	}
	return false, NetworkMessage
}

// Settle reconciles m with the request result. On success the server's
// record replaces the optimistic one. On failure the prior value is restored;
// a 401 calls hooks.Unauthorized once and nothing else, any other failure
// calls hooks.Notify once.
func (s *Store[T]) Settle(m *Mutation[T], server T, err error, op Op, hooks Hooks) Outcome {
	if err == nil {
		s.Confirm(m, server)
		return Outcome{Result: Confirmed}
	}

	s.Rollback(m)
	unauthorized, msg := Classify(err, op.Fallback)
	if unauthorized {
		if hooks.Unauthorized != nil {
			hooks.Unauthorized()
		}
		return Outcome{Result: SignedOut, Err: err}
	}
	if hooks.Notify != nil {
		hooks.Notify(op.Title, msg)
	}
	return Outcome{Result: RolledBack, Message: msg, Err: err}
}

// Apply runs one optimistic mutation end to end: the local edit, exactly one
// request carrying the optimistic value, and reconciliation. The returned
// error is only set when the mutation could not begin.
func Apply[T any](
	ctx context.Context,
	s *Store[T],
	id string,
	mutate func(T) T,
	request func(context.Context, T) (T, error),
	op Op,
	hooks Hooks,
) (Outcome, error) {
	m, err := s.Begin(id, mutate)
	if err != nil {
		return Outcome{}, err
	}
	server, reqErr := request(ctx, m.Optimistic)
	return s.Settle(m, server, reqErr, op, hooks), nil
}
