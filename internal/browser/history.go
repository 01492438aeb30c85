package browser

import (
	"context"
	"strings"
	"sync"
)

// History records the URLs a browser navigated to, in order. It is safe for
// concurrent use; Record is called from browser event handlers while
// WaitFor blocks in the login flow.
type History struct {
	mu     sync.Mutex
	urls   []string
	notify chan struct{}
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{notify: make(chan struct{})}
}

// Record appends a URL and wakes up waiters.
func (h *History) Record(url string) {
	if url == "" {
		return
	}
	h.mu.Lock()
	h.urls = append(h.urls, url)
	close(h.notify)
	h.notify = make(chan struct{})
	h.mu.Unlock()
}

// URLs returns a copy of the recorded URLs.
func (h *History) URLs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.urls...)
}

// Find returns the first recorded URL that starts with prefix.
func (h *History) Find(prefix string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	url, ok := h.findLocked(prefix)
	return url, ok
}

func (h *History) findLocked(prefix string) (string, bool) {
	for _, u := range h.urls {
		if strings.HasPrefix(u, prefix) {
			return u, true
		}
	}
	return "", false
}

// WaitFor blocks until a URL starting with prefix has been recorded.
func (h *History) WaitFor(ctx context.Context, prefix string) (string, error) {
	for {
		h.mu.Lock()
		url, ok := h.findLocked(prefix)
		notify := h.notify
		h.mu.Unlock()

		if ok {
			return url, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-notify:
		}
	}
}
