package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseServer(t *testing.T, handler func(w http.ResponseWriter, body streamRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/chat/stream", r.URL.Path)
		require.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		var body streamRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "text/event-stream")
		handler(w, body)
	}))
}

func writeSSE(w http.ResponseWriter, event map[string]any) {
	data, _ := json.Marshal(event)
	fmt.Fprintf(w, "data: %s\n\n", data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("timed out draining event channel")
		}
	}
}

func TestStreamContentThenComplete(t *testing.T) {
	srv := sseServer(t, func(w http.ResponseWriter, body streamRequest) {
		assert.Equal(t, "What is a Terry stop?", body.Question)
		assert.Equal(t, "wisconsin", body.Jurisdiction)
		assert.True(t, body.IncludeMetadata)

		writeSSE(w, map[string]any{"type": "content", "content": "A brief "})
		writeSSE(w, map[string]any{"type": "content", "content": "investigative stop."})
		writeSSE(w, map[string]any{"type": "complete", "response": map[string]any{
			"answer":           "A brief investigative stop.",
			"confidence_score": 0.87,
			"metadata": map[string]any{
				"source_documents": []map[string]any{
					{"title": "Terry v. Ohio", "relevance_score": 0.9, "source_number": 1},
				},
			},
		}})
	})
	defer srv.Close()

	c := NewClient(srv.URL, "wisconsin", 5*time.Second)
	events, err := c.Stream(context.Background(), "What is a Terry stop?")
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 3)

	assert.Equal(t, EventContent, got[0].Type)
	assert.Equal(t, "A brief ", got[0].Content)
	assert.Equal(t, EventContent, got[1].Type)
	assert.Equal(t, "investigative stop.", got[1].Content)

	final := got[2]
	require.Equal(t, EventComplete, final.Type)
	require.NotNil(t, final.Response)
	assert.Equal(t, 0.87, final.Response.ConfidenceScore)
	require.Len(t, final.Response.Metadata.SourceDocuments, 1)
	assert.Equal(t, "Terry v. Ohio", final.Response.Metadata.SourceDocuments[0].Title)

	// All events from one request share a stream ID.
	assert.NotEmpty(t, got[0].StreamID)
	assert.Equal(t, got[0].StreamID, got[2].StreamID)
}

func TestStreamBackendError(t *testing.T) {
	srv := sseServer(t, func(w http.ResponseWriter, body streamRequest) {
		writeSSE(w, map[string]any{"type": "content", "content": "partial"})
		writeSSE(w, map[string]any{"type": "error", "response": map[string]any{
			"error": "retrieval pipeline unavailable",
		}})
	})
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)
	events, err := c.Stream(context.Background(), "q")
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 2)
	require.Equal(t, EventError, got[1].Type)
	assert.Contains(t, got[1].Err.Error(), "retrieval pipeline unavailable")
}

func TestStreamLegacyErrorShape(t *testing.T) {
	srv := sseServer(t, func(w http.ResponseWriter, body streamRequest) {
		writeSSE(w, map[string]any{"type": "error", "response": map[string]any{
			"answer": "I cannot answer that question.",
		}})
	})
	defer srv.Close()

	events, err := NewClient(srv.URL, "", 5*time.Second).Stream(context.Background(), "q")
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Err.Error(), "I cannot answer that question.")
}

func TestStreamMalformedCompletePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"type\": \"content\", \"content\": \"answer text\"}\n\n")
		fmt.Fprint(w, "data: {\"type\": \"complete\", \"response\": {\"confidence_score\": \"not a number\"}}\n\n")
	}))
	defer srv.Close()

	events, err := NewClient(srv.URL, "", 5*time.Second).Stream(context.Background(), "q")
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 2)

	// The completion still arrives; it just carries an empty payload.
	final := got[1]
	require.Equal(t, EventComplete, final.Type)
	require.NotNil(t, final.Response)
	assert.Zero(t, final.Response.ConfidenceScore)
	assert.Empty(t, final.Response.Metadata.SourceDocuments)
}

func TestStreamSkipsNonDataLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, ": keepalive comment\n")
		fmt.Fprint(w, "event: message\n")
		fmt.Fprint(w, "data: \n\n")
		fmt.Fprint(w, "data: {\"type\": \"complete\", \"response\": {\"answer\": \"done\"}}\n\n")
	}))
	defer srv.Close()

	events, err := NewClient(srv.URL, "", 5*time.Second).Stream(context.Background(), "q")
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 1)
	assert.Equal(t, EventComplete, got[0].Type)
	assert.Equal(t, "done", got[0].Response.Answer)
}

func TestStreamMalformedEventLine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {not json}\n\n")
		fmt.Fprint(w, "data: {\"type\": \"complete\", \"response\": {}}\n\n")
	}))
	defer srv.Close()

	events, err := NewClient(srv.URL, "", 5*time.Second).Stream(context.Background(), "q")
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 2)
	assert.Equal(t, EventError, got[0].Type)
	assert.Equal(t, EventComplete, got[1].Type)
}

func TestStreamConnectionFailure(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "", time.Second)
	events, err := c.Stream(context.Background(), "q")
	assert.Error(t, err)
	assert.Nil(t, events)
}

func TestStreamHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "model warming up"})
	}))
	defer srv.Close()

	events, err := NewClient(srv.URL, "", 5*time.Second).Stream(context.Background(), "q")
	require.Error(t, err)
	assert.Nil(t, events)
	assert.Contains(t, err.Error(), "model warming up")
}

func TestStreamCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w, map[string]any{"type": "content", "content": "first"})
		<-release
		writeSSE(w, map[string]any{"type": "content", "content": "second"})
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := NewClient(srv.URL, "", 30*time.Second).Stream(ctx, "q")
	require.NoError(t, err)

	first := <-events
	require.Equal(t, EventContent, first.Type)

	cancel()

	// The stream ends with either a context error event or a closed channel,
	// depending on where cancellation lands in the read loop.
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Type == EventError {
				assert.Error(t, ev.Err)
			}
		case <-timeout:
			t.Fatal("stream did not terminate after cancellation")
		}
	}
}
