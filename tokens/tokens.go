// Package tokens estimates how many model tokens a piece of transcript costs.
package tokens

import (
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// Encoding is the BPE vocabulary used by the intake agent's model family.
const Encoding = "cl100k_base"

// Counter counts tokens in text.
type Counter interface {
	Count(text string) int
}

// Heuristic approximates one token per four bytes, rounding up.
type Heuristic struct{}

func (Heuristic) Count(text string) int {
	return (len(text) + 3) / 4
}

// Tiktoken counts with the cl100k_base encoding. The vocabulary is loaded on
// first use (the first call may fetch it into TIKTOKEN_CACHE_DIR); if that
// fails every count falls back to Heuristic.
type Tiktoken struct {
	log *zap.Logger

	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewTiktoken returns a lazily loading counter. log may be nil.
func NewTiktoken(log *zap.Logger) *Tiktoken {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tiktoken{log: log}
}

func (t *Tiktoken) load() {
	enc, err := tiktoken.GetEncoding(Encoding)
	if err != nil {
		t.log.Warn("token encoding unavailable, using estimate", zap.String("encoding", Encoding), zap.Error(err))
		return
	}
	t.enc = enc
	t.log.Debug("token encoding loaded", zap.String("encoding", Encoding))
}

func (t *Tiktoken) Count(text string) int {
	if text == "" {
		return 0
	}
	t.once.Do(t.load)
	if t.enc == nil {
		return Heuristic{}.Count(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Exact reports whether counts come from the real encoding.
func (t *Tiktoken) Exact() bool {
	t.once.Do(t.load)
	return t.enc != nil
}
