package transcript

import (
	"context"

	"github.com/vaultx/vaultx-term/client"
	"github.com/vaultx/vaultx-term/sse"
)

// Streamer streams one agent turn. *client.Client implements it.
type Streamer interface {
	StreamTurn(ctx context.Context, req client.TurnRequest, fn client.FrameFunc) error
}

// Event is one item delivered by Pump. The last event has End set and
// carries the stream's error, if any.
type Event struct {
	Frame sse.Frame
	End   bool
	Err   error
}

// Pump streams req on its own goroutine and delivers frames in arrival
// order. The channel is closed when the stream ends or ctx is cancelled;
// after cancellation the End event may be skipped.
func Pump(ctx context.Context, s Streamer, req client.TurnRequest) <-chan Event {
	ch := make(chan Event)
	go func() {
		defer close(ch)
		err := s.StreamTurn(ctx, req, func(f sse.Frame) bool {
			select {
			case ch <- Event{Frame: f}:
				return true
			case <-ctx.Done():
				return false
			}
		})
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		select {
		case ch <- Event{End: true, Err: err}:
		case <-ctx.Done():
		}
	}()
	return ch
}

// Run drives one turn to completion on the calling goroutine. onChange, if
// set, is called with every snapshot the turn produces. The returned effect
// is the one that ended the turn. An error is only returned when the turn
// could not begin.
func Run(ctx context.Context, a *Assembler, s Streamer, text string, onChange func(Snapshot)) (Effect, error) {
	turn, err := a.Begin(text)
	if err != nil {
		return Effect{}, err
	}
	notify := func(eff Effect) {
		if eff.Changed && onChange != nil {
			onChange(a.Snapshot())
		}
	}
	notify(Effect{Changed: true})

	var final Effect
	streamErr := s.StreamTurn(ctx, turn.Request, func(f sse.Frame) bool {
		eff := a.HandleFrame(turn.ID, f)
		notify(eff)
		if eff.Terminal {
			final = eff
			return false
		}
		return true
	})
	if final.Terminal {
		return final, nil
	}
	if streamErr == nil && ctx.Err() != nil {
		streamErr = ctx.Err()
	}
	final = a.Finish(turn.ID, streamErr)
	notify(final)
	return final, nil
}
