// Package llmtest provides a scripted llm.Completer for tests.
package llmtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/joseph-ayodele/orders-intake/internal/llm"
)

// ErrNoScript is returned when no reply matches a request.
var ErrNoScript = errors.New("llmtest: no scripted reply")

// Fake answers requests from Respond, from per-key replies chosen by a
// substring of the prompt, or from a queue, in that order.
type Fake struct {
	mu            sync.Mutex
	Respond       func(req llm.Request) (Reply, bool)
	ResponseQueue []string
	ByPrompt      map[string]Reply
	Requests      []llm.Request
}

// Reply is a scripted answer; Err makes the call fail.
type Reply struct {
	Text string
	Err  error
}

func (f *Fake) Complete(ctx context.Context, req llm.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Requests = append(f.Requests, req)

	if f.Respond != nil {
		if r, ok := f.Respond(req); ok {
			return r.Text, r.Err
		}
	}

	for key, r := range f.ByPrompt {
		if strings.Contains(req.Prompt, key) {
			return r.Text, r.Err
		}
	}
	if len(f.ResponseQueue) > 0 {
		resp := f.ResponseQueue[0]
		f.ResponseQueue = f.ResponseQueue[1:]
		return resp, nil
	}
	return "", ErrNoScript
}

// Calls returns how many requests were made.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}
