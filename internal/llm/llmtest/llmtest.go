// Package llmtest provides a scripted fake backend for tests. It records
// every prompt it receives and replays a fixed sequence of responses.
package llmtest

import (
	"context"
	"fmt"
	"sync"
)

// Response is one scripted backend reply.
type Response struct {
	Text string
	Err  error
}

// Scripted is an llm.Client that returns canned responses in order.
type Scripted struct {
	mu        sync.Mutex
	responses []Response
	next      int

	// Prompts holds every prompt passed to Complete, in call order.
	Prompts []string
}

// NewScripted builds a fake backend that replays the given responses.
func NewScripted(responses ...Response) *Scripted {
	return &Scripted{responses: responses}
}

// Text is shorthand for a successful response.
func Text(s string) Response { return Response{Text: s} }

// Err is shorthand for a failed response.
func Err(err error) Response { return Response{Err: err} }

func (s *Scripted) Name() string { return "scripted" }

func (s *Scripted) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.Prompts = append(s.Prompts, prompt)
	if s.next >= len(s.responses) {
		return "", fmt.Errorf("scripted backend exhausted after %d responses", len(s.responses))
	}
	r := s.responses[s.next]
	s.next++
	return r.Text, r.Err
}

// Calls returns how many times Complete was invoked.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Prompts)
}

// Prompt returns the i-th recorded prompt (0-based).
func (s *Scripted) Prompt(i int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Prompts[i]
}
