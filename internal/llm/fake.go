package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// Scripted is an in-memory Model that replies per schema name, for tests.
type Scripted struct {
	mu       sync.Mutex
	replies  map[string][]string
	errs     map[string]error
	Requests []Request
}

// NewScripted builds an empty scripted model.
func NewScripted() *Scripted {
	return &Scripted{replies: make(map[string][]string), errs: make(map[string]error)}
}

// Reply queues a raw answer for the schema. The last queued answer repeats.
func (s *Scripted) Reply(schema string, raw string) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[schema] = append(s.replies[schema], raw)
	return s
}

// Fail makes every call for the schema return err.
func (s *Scripted) Fail(schema string, err error) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[schema] = err
	return s
}

// Complete implements Model.
func (s *Scripted) Complete(ctx context.Context, req Request) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Requests = append(s.Requests, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.errs[req.Schema.Name]; err != nil {
		return nil, err
	}
	queue := s.replies[req.Schema.Name]
	if len(queue) == 0 {
		return nil, ErrEmptyResponse
	}
	raw := queue[0]
	if len(queue) > 1 {
		s.replies[req.Schema.Name] = queue[1:]
	}
	doc, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(doc), nil
}

var _ Model = (*Scripted)(nil)
