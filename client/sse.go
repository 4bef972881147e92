package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/vaultx/vaultx-term/sse"
)

const readChunk = 4096

// FrameFunc receives decoded frames in arrival order. Returning false stops
// the stream early.
type FrameFunc func(sse.Frame) bool

// StreamTurn posts one intake turn and feeds the event-stream reply to fn.
//
// It returns nil when the body ends (including any residual frame flushed at
// EOF) or when fn stops the stream. Cancelling ctx aborts the read and the
// returned error wraps context.Canceled. Turns are not retried: a reconnect
// would replay the patient's message.
func (c *Client) StreamTurn(ctx context.Context, req TurnRequest, fn FrameFunc) error {
	if req.History == nil {
		req.History = []ChatMessage{}
	}
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/intake/agent-turn", req)
	if err != nil {
		return fmt.Errorf("agent turn: %w", err)
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	// The stream lives as long as the turn; only ctx bounds it.
	hc := *c.HTTPClient
	hc.Timeout = 0

	resp, err := c.send(&hc, httpReq)
	if err != nil {
		return fmt.Errorf("agent turn: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("agent turn: %w", c.parseError(resp))
	}

	var dec sse.Decoder
	buf := make([]byte, readChunk)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			for _, f := range dec.Feed(buf[:n]) {
				if !fn(f) {
					return nil
				}
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("agent turn: %w", ctx.Err())
			}
			return fmt.Errorf("agent turn: read stream: %w", rerr)
		}
	}
	for _, f := range dec.Flush() {
		if !fn(f) {
			return nil
		}
	}
	return nil
}
