// Package sse decodes a server-sent-event byte stream into frames.
//
// The decoder is incremental: bytes may arrive split at any offset and a
// frame is only emitted once its terminating blank line has been read.
package sse

import (
	"bytes"
	"strings"
)

// DefaultEvent is the event type of a frame that carries no "event:" line.
const DefaultEvent = "message"

// Frame is one complete event block.
type Frame struct {
	Event string
	Data  string
}

// Decoder buffers partial input across Feed calls. The zero value is ready to use.
type Decoder struct {
	buf       []byte
	pendingCR bool
}

// Feed appends a chunk and returns every frame completed by it, in order.
// Trailing bytes that do not yet end in a blank line stay buffered.
func (d *Decoder) Feed(chunk []byte) []Frame {
	d.append(chunk)

	var frames []Frame
	for {
		idx := bytes.Index(d.buf, []byte("\n\n"))
		if idx < 0 {
			break
		}
		block := string(d.buf[:idx])
		d.buf = d.buf[idx+2:]
		if f, ok := ParseBlock(block); ok {
			frames = append(frames, f)
		}
	}
	return frames
}

// Flush parses whatever is left in the buffer as a final frame. It is called
// once the stream has ended; the buffer is empty afterwards.
func (d *Decoder) Flush() []Frame {
	if d.pendingCR {
		d.buf = append(d.buf, '\n')
		d.pendingCR = false
	}
	rest := string(d.buf)
	d.buf = nil
	if strings.TrimSpace(rest) == "" {
		return nil
	}
	var frames []Frame
	for _, block := range strings.Split(rest, "\n\n") {
		if f, ok := ParseBlock(block); ok {
			frames = append(frames, f)
		}
	}
	return frames
}

// Buffered reports how many undecoded bytes are held.
func (d *Decoder) Buffered() int {
	n := len(d.buf)
	if d.pendingCR {
		n++
	}
	return n
}

// append normalises CRLF and lone CR line endings to LF. A CR at the very
// end of a chunk is held back until the next chunk shows whether a LF follows.
func (d *Decoder) append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	in := chunk
	if d.pendingCR {
		in = append([]byte{'\r'}, chunk...)
		d.pendingCR = false
	}
	if in[len(in)-1] == '\r' {
		d.pendingCR = true
		in = in[:len(in)-1]
	}
	in = bytes.ReplaceAll(in, []byte("\r\n"), []byte("\n"))
	in = bytes.ReplaceAll(in, []byte("\r"), []byte("\n"))
	d.buf = append(d.buf, in...)
}

// ParseBlock turns one blank-line-delimited block into a frame. It reports
// false for blocks that hold neither an event nor a data line, such as
// comment-only keepalives.
func ParseBlock(block string) (Frame, bool) {
	f := Frame{Event: DefaultEvent}
	var data []string
	seen := false

	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "event:"):
			f.Event = strings.TrimSpace(line[len("event:"):])
			seen = true
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimSpace(line[len("data:"):]))
			seen = true
		}
	}
	if !seen {
		return Frame{}, false
	}
	if f.Event == "" {
		f.Event = DefaultEvent
	}
	f.Data = strings.Join(data, "\n")
	return f, true
}
