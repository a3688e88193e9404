package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubManager struct {
	mu         sync.Mutex
	createErr  error
	pages      map[string]string
	fetchErr   error
	fetchedFor []*Handle
	destroyed  int
	destroyCtx error
	block      bool
}

func (m *stubManager) Create(context.Context) (*Handle, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &Handle{ID: "sess-1"}, nil
}

func (m *stubManager) Fetch(ctx context.Context, url string, h *Handle) (string, error) {
	m.mu.Lock()
	m.fetchedFor = append(m.fetchedFor, h)
	m.mu.Unlock()
	if m.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if m.fetchErr != nil {
		return "", m.fetchErr
	}
	return m.pages[url], nil
}

func (m *stubManager) Destroy(ctx context.Context, h *Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyed++
	m.destroyCtx = ctx.Err()
	return nil
}

func TestAcquire_ReusesSessionAcrossFetches(t *testing.T) {
	m := &stubManager{pages: map[string]string{"a": "<html>a</html>", "b": "<html>b</html>"}}
	scope := Acquire(context.Background(), m, nil)
	defer scope.Close(context.Background())

	for _, u := range []string{"a", "b"} {
		if html, ok := scope.Fetch(context.Background(), u); !ok || html == "" {
			t.Fatalf("expected page %s, got %q ok=%v", u, html, ok)
		}
	}
	if len(m.fetchedFor) != 2 || m.fetchedFor[0] == nil || m.fetchedFor[0] != m.fetchedFor[1] {
		t.Fatalf("expected the same session for every fetch, got %v", m.fetchedFor)
	}
}

func TestAcquire_CreateFailureFallsBackToUnauthenticated(t *testing.T) {
	m := &stubManager{createErr: errors.New("quota"), pages: map[string]string{"a": "ok"}}
	scope := Acquire(context.Background(), m, nil)

	if scope.Handle() != nil {
		t.Fatalf("expected no session handle")
	}
	if html, ok := scope.Fetch(context.Background(), "a"); !ok || html != "ok" {
		t.Fatalf("expected unauthenticated fetch to succeed")
	}
	if m.fetchedFor[0] != nil {
		t.Fatalf("expected nil handle to be passed to fetch")
	}
	scope.Close(context.Background())
	if m.destroyed != 0 {
		t.Fatalf("expected no destroy without a session")
	}
}

func TestScope_FetchFailureReturnsFalse(t *testing.T) {
	m := &stubManager{fetchErr: errors.New("blocked")}
	scope := Acquire(context.Background(), m, nil)
	if _, ok := scope.Fetch(context.Background(), "a"); ok {
		t.Fatalf("expected failed fetch")
	}
}

func TestScope_FetchIsBounded(t *testing.T) {
	m := &stubManager{block: true}
	scope := Acquire(context.Background(), m, nil, WithFetchTimeout(20*time.Millisecond))

	start := time.Now()
	if _, ok := scope.Fetch(context.Background(), "slow"); ok {
		t.Fatalf("expected timeout")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("fetch was not bounded")
	}
}

func TestScope_CloseAfterCancellation(t *testing.T) {
	m := &stubManager{}
	ctx, cancel := context.WithCancel(context.Background())
	scope := Acquire(ctx, m, nil)
	cancel()

	scope.Close(ctx)
	scope.Close(ctx)

	if m.destroyed != 1 {
		t.Fatalf("expected exactly one destroy, got %d", m.destroyed)
	}
	if m.destroyCtx != nil {
		t.Fatalf("expected teardown context to be live, got %v", m.destroyCtx)
	}
}
