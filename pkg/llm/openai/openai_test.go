package openai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabpilot/tabpilot/pkg/llm"
	"github.com/tabpilot/tabpilot/pkg/types"
)

func newTestProvider(t *testing.T, baseURL string) *Provider {
	t.Helper()
	p, err := NewProvider("test-key", WithBaseURL(baseURL))
	require.NoError(t, err)
	return p
}

func chatRequest() *llm.ChatRequest {
	return &llm.ChatRequest{
		Messages: []*types.Message{{Role: types.RoleUser, Content: "hi"}},
	}
}

func TestStreamCompletionStopsReadingAfterTerminator(t *testing.T) {
	// Some endpoints keep writing after [DONE]. Once the consumer stops at
	// the terminator the forwarder must finish instead of blocking on the
	// trailing data.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintln(w, `data: {"choices":[{"delta":{"content":"hi"}}]}`)
		fmt.Fprintln(w, "data: [DONE]")
		for i := 0; i < 64; i++ {
			fmt.Fprintln(w, ": keepalive")
		}
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL)
	chunks, err := p.StreamCompletion(context.Background(), chatRequest())
	require.NoError(t, err)

	for chunk := range chunks {
		require.NoError(t, chunk.Err)
		if chunk.Line == "data: [DONE]" {
			break
		}
	}

	select {
	case _, open := <-chunks:
		assert.False(t, open, "channel closes after the terminator")
	case <-time.After(2 * time.Second):
		t.Fatal("forwarder still running after the terminator")
	}
}

func TestStreamCompletionForwardsLinesInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintln(w, `data: {"choices":[{"delta":{"content":"a"}}]}`)
		fmt.Fprintln(w, `data: {"choices":[{"delta":{"content":"b"}}]}`)
		fmt.Fprintln(w, "data: [DONE]")
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL)
	chunks, err := p.StreamCompletion(context.Background(), chatRequest())
	require.NoError(t, err)

	var lines []string
	for chunk := range chunks {
		require.NoError(t, chunk.Err)
		lines = append(lines, chunk.Line)
	}
	assert.Equal(t, []string{
		`data: {"choices":[{"delta":{"content":"a"}}]}`,
		`data: {"choices":[{"delta":{"content":"b"}}]}`,
		"data: [DONE]",
	}, lines)
}

func TestStreamCompletionRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL)
	_, err := p.StreamCompletion(context.Background(), chatRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "bad key")
}
