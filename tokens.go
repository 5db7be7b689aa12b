package livellm

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const defaultTokenEncoding = "cl100k_base"

// Per-message and per-reply overheads of chat formatted prompts.
const (
	tokensPerMessage = 3
	tokensPerReply   = 3
)

type tokenEncoder interface {
	Encode(text string, allowedSpecial []string, disallowedSpecial []string) []int
}

func loadTiktoken(encoding string) (tokenEncoder, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return enc, nil
}

// tokenCounter loads its encoding on first use. Loading may fetch the BPE ranks over the
// network, so it is never done at construction.
type tokenCounter struct {
	encoding string
	load     func() (tokenEncoder, error)
}

func newTokenCounter(encoding string, loader func(string) (tokenEncoder, error)) *tokenCounter {
	return &tokenCounter{
		encoding: encoding,
		load: sync.OnceValues(func() (tokenEncoder, error) {
			return loader(encoding)
		}),
	}
}

func (t *tokenCounter) count(messages []Message) (int, error) {
	enc, err := t.load()
	if err != nil {
		return 0, fmt.Errorf("load token encoding %s: %w", t.encoding, err)
	}

	total := tokensPerReply
	for _, m := range messages {
		total += tokensPerMessage
		total += len(enc.Encode(string(m.MessageRole()), nil, nil))
		switch msg := m.(type) {
		case TextMessage:
			total += len(enc.Encode(msg.Content, nil, nil))
		case BinaryMessage:
			total += len(enc.Encode(msg.Caption, nil, nil))
		}
	}
	return total, nil
}

// EstimateTokens estimates the prompt tokens of messages with a local tiktoken encoding.
// Binary payloads are not counted, only their captions, so the estimate is meant for
// messages that have already been converted to text, such as those returned by
// [Client.RunAgent].
func (c *Client) EstimateTokens(messages []Message) (int, error) {
	return c.tokens.count(messages)
}
