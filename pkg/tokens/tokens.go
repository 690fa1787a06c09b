package tokens

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Counter measures and truncates text in tokens.
type Counter interface {
	Count(text string) int
	Truncate(text string, limit int) string
}

// Words counts whitespace separated words. It needs no model data.
type Words struct{}

func (Words) Count(text string) int {
	return len(strings.Fields(text))
}

func (Words) Truncate(text string, limit int) string {
	words := strings.Fields(text)
	if limit <= 0 || len(words) <= limit {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:limit], " ") + " …"
}

// Tiktoken counts BPE tokens of a named encoding (e.g. cl100k_base).
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

var (
	encodings   = map[string]*tiktoken.Tiktoken{}
	encodingsMu sync.Mutex
)

func NewTiktoken(encoding string) (*Tiktoken, error) {
	encodingsMu.Lock()
	defer encodingsMu.Unlock()

	if enc, ok := encodings[encoding]; ok {
		return &Tiktoken{enc: enc}, nil
	}

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %s: %w", encoding, err)
	}
	encodings[encoding] = enc
	return &Tiktoken{enc: enc}, nil
}

func (t *Tiktoken) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

func (t *Tiktoken) Truncate(text string, limit int) string {
	ids := t.enc.Encode(text, nil, nil)
	if limit <= 0 || len(ids) <= limit {
		return text
	}
	return strings.TrimSpace(t.enc.Decode(ids[:limit])) + " …"
}

// New returns a tiktoken counter for encoding, or Words when encoding is empty.
func New(encoding string) (Counter, error) {
	if encoding == "" {
		return Words{}, nil
	}
	return NewTiktoken(encoding)
}
