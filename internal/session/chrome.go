package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
)

// ChromeManager drives Chrome through the DevTools protocol. Each session is a
// dedicated tab that keeps its cookies across fetches.
type ChromeManager struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc

	mu   sync.Mutex
	tabs map[string]chromeTab
}

type chromeTab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewChromeManager connects to a running browser when wsURL is set, otherwise
// it launches a local headless instance.
func NewChromeManager(wsURL string) *ChromeManager {
	var allocCtx context.Context
	var cancel context.CancelFunc
	if wsURL != "" {
		allocCtx, cancel = chromedp.NewRemoteAllocator(context.Background(), wsURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.WindowSize(1366, 900),
		)
		allocCtx, cancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}
	return &ChromeManager{allocCtx: allocCtx, allocCancel: cancel, tabs: make(map[string]chromeTab)}
}

// Create opens a new tab and keeps it for subsequent fetches.
func (m *ChromeManager) Create(ctx context.Context) (*Handle, error) {
	tabCtx, cancel := chromedp.NewContext(m.allocCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("start browser tab: %w", err)
	}
	h := &Handle{ID: uuid.NewString(), CreatedAt: time.Now().UTC()}

	m.mu.Lock()
	m.tabs[h.ID] = chromeTab{ctx: tabCtx, cancel: cancel}
	m.mu.Unlock()
	return h, nil
}

// Fetch navigates to url and returns the rendered document.
func (m *ChromeManager) Fetch(ctx context.Context, url string, h *Handle) (string, error) {
	tabCtx, release, err := m.tab(h)
	if err != nil {
		return "", err
	}
	defer release()

	// Tie the tab run to the caller deadline without tearing the tab down.
	runCtx, cancel := context.WithCancel(tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	if err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("fetch %s: %w", url, ctx.Err())
		}
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	return html, nil
}

func (m *ChromeManager) tab(h *Handle) (context.Context, func(), error) {
	if h != nil {
		m.mu.Lock()
		tab, ok := m.tabs[h.ID]
		m.mu.Unlock()
		if ok {
			return tab.ctx, func() {}, nil
		}
	}
	tabCtx, cancel := chromedp.NewContext(m.allocCtx)
	return tabCtx, cancel, nil
}

// Destroy closes the session tab.
func (m *ChromeManager) Destroy(_ context.Context, h *Handle) error {
	if h == nil {
		return nil
	}
	m.mu.Lock()
	tab, ok := m.tabs[h.ID]
	delete(m.tabs, h.ID)
	m.mu.Unlock()
	if ok {
		tab.cancel()
	}
	return nil
}

// Close shuts down every tab and the allocator.
func (m *ChromeManager) Close() {
	m.mu.Lock()
	for id, tab := range m.tabs {
		tab.cancel()
		delete(m.tabs, id)
	}
	m.mu.Unlock()
	m.allocCancel()
}

var _ Manager = (*ChromeManager)(nil)
