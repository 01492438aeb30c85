package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_WaitForSeenURL(t *testing.T) {
	h := NewHistory()
	h.Record("https://login.microsoftonline.com/common/oauth2/v2.0/authorize?x=1")
	h.Record("https://app.example/cb?code=abc")
	h.Record("https://app.example/cb?code=later")

	url, err := h.WaitFor(context.Background(), "https://app.example/cb")
	require.NoError(t, err)
	assert.Equal(t, "https://app.example/cb?code=abc", url, "first match wins")
}

func TestHistory_WaitForFutureURL(t *testing.T) {
	h := NewHistory()

	done := make(chan string, 1)
	go func() {
		url, err := h.WaitFor(context.Background(), "https://app.example/cb")
		if err == nil {
			done <- url
		}
	}()

	h.Record("https://login.microsoftonline.com/")
	h.Record("https://app.example/cb?code=abc")

	select {
	case url := <-done:
		assert.Equal(t, "https://app.example/cb?code=abc", url)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not woken up")
	}
}

func TestHistory_WaitForCancelled(t *testing.T) {
	h := NewHistory()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := h.WaitFor(ctx, "https://app.example/cb")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHistory_IgnoresEmpty(t *testing.T) {
	h := NewHistory()
	h.Record("")
	assert.Empty(t, h.URLs())

	_, ok := h.Find("")
	assert.False(t, ok)
}
