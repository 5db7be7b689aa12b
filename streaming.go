package livellm

import (
	"errors"
	"iter"
	"strings"
)

// CollectStream drains an agent response stream into a single AgentResponse.
// Chunk outputs are concatenated in order and usage is taken from the last chunk that reports any.
// The first error read from the stream is returned together with what was collected up to it.
func CollectStream(seq iter.Seq2[AgentResponse, error]) (AgentResponse, error) {
	if seq == nil {
		return AgentResponse{}, errors.New("nil stream")
	}
	var (
		sb    strings.Builder
		usage Usage
	)
	for chunk, err := range seq {
		if err != nil {
			return AgentResponse{Output: sb.String(), Usage: usage}, err
		}
		sb.WriteString(chunk.Output)
		if chunk.Usage != (Usage{}) {
			usage = chunk.Usage
		}
	}
	return AgentResponse{Output: sb.String(), Usage: usage}, nil
}

// CollectAudio drains an audio stream into one buffer.
func CollectAudio(seq iter.Seq2[[]byte, error]) ([]byte, error) {
	if seq == nil {
		return nil, errors.New("nil stream")
	}
	var out []byte
	for chunk, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// errSeq returns a sequence that yields err once.
func errSeq[T any](err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, err)
	}
}
