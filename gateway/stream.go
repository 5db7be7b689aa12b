package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/livellm/livellm-go"
)

const (
	// maxLineSize bounds a single NDJSON line of an agent stream.
	maxLineSize = 4 << 20
	// audioChunkSize is the read size of audio streams.
	audioChunkSize = 32 << 10
)

var errStreamConsumed = errors.New("stream already consumed")

// openStream posts payload to path and returns the response once the gateway acknowledged
// the stream with a 2xx status. The configured timeout only covers this acknowledgement.
// The returned cancel func must be called once the body is no longer read.
func (c *Client) openStream(ctx context.Context, path string, payload any, creds livellm.Creds) (*http.Response, context.CancelFunc, error) {
	ctx, cancel := context.WithCancel(ctx)

	var timer *time.Timer
	if c.timeout > 0 {
		timer = time.AfterFunc(c.timeout, cancel)
	}

	req, err := c.newJSONRequest(ctx, path, payload, creds)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	resp, err := c.do(req)
	if timer != nil && !timer.Stop() {
		// The timeout fired; a response that arrived meanwhile has a cancelled body.
		if err == nil {
			resp.Body.Close()
		}
		cancel()
		return nil, nil, fmt.Errorf("stream open timed out after %s: %w", c.timeout, context.DeadlineExceeded)
	}
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return resp, cancel, nil
}

// AgentRunStream implements livellm.Transport. The gateway streams newline delimited JSON,
// one AgentResponse per line; blank lines are skipped.
func (c *Client) AgentRunStream(ctx context.Context, req livellm.AgentRequest, creds livellm.Creds) (iter.Seq2[livellm.AgentResponse, error], error) {
	resp, cancel, err := c.openStream(ctx, "/agent/run_stream", req, creds)
	if err != nil {
		return nil, err
	}
	return ndjsonSeq(resp.Body, cancel), nil
}

func ndjsonSeq(body io.ReadCloser, cancel context.CancelFunc) iter.Seq2[livellm.AgentResponse, error] {
	var used atomic.Bool
	return func(yield func(livellm.AgentResponse, error) bool) {
		if used.Swap(true) {
			yield(livellm.AgentResponse{}, errStreamConsumed)
			return
		}
		defer cancel()
		defer body.Close()

		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64<<10), maxLineSize)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var chunk livellm.AgentResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				yield(livellm.AgentResponse{}, fmt.Errorf("failed to parse stream chunk: %w", err))
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(livellm.AgentResponse{}, fmt.Errorf("failed to read stream: %w", err))
		}
	}
}

// SpeakStream implements livellm.Transport. Audio is relayed in chunks as it arrives.
func (c *Client) SpeakStream(ctx context.Context, req livellm.SpeakRequest, creds livellm.Creds) (iter.Seq2[[]byte, error], error) {
	resp, cancel, err := c.openStream(ctx, "/audio/speak_stream", req, creds)
	if err != nil {
		return nil, err
	}
	return bytesSeq(resp.Body, cancel), nil
}

func bytesSeq(body io.ReadCloser, cancel context.CancelFunc) iter.Seq2[[]byte, error] {
	var used atomic.Bool
	return func(yield func([]byte, error) bool) {
		if used.Swap(true) {
			yield(nil, errStreamConsumed)
			return
		}
		defer cancel()
		defer body.Close()

		buf := make([]byte, audioChunkSize)
		for {
			n, err := body.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				if !yield(chunk, nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("failed to read audio stream: %w", err))
				return
			}
		}
	}
}
