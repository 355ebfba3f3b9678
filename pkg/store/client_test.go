package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wislaw/lexchat/pkg/chat"
)

func respond(w http.ResponseWriter, status int, data any, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	raw, _ := json.Marshal(data)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "success",
		"data":      json.RawMessage(raw),
		"error":     errMsg,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func TestClientSave(t *testing.T) {
	var gotBody struct {
		SessionName string         `json:"session_name"`
		History     []wireExchange `json:"history"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/chat/save", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		respond(w, http.StatusOK, map[string]any{
			"session_name":    gotBody.SessionName,
			"filename":        "miranda_rights_read_20240301.json",
			"total_exchanges": len(gotBody.History),
			"saved_at":        time.Now().Format(time.RFC3339),
		}, "")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	exchanges := []chat.Exchange{{Question: "q", Answer: "a"}}

	saved, err := c.Save(context.Background(), "Miranda Rights Read", exchanges)
	require.NoError(t, err)
	assert.Equal(t, "miranda_rights_read_20240301.json", saved.Filename)
	assert.Equal(t, "Miranda Rights Read", saved.ChatName)
	assert.Equal(t, "Miranda Rights Read", gotBody.SessionName)
	require.Len(t, gotBody.History, 1)
	assert.Equal(t, "q", gotBody.History[0].Question)
}

func TestClientList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat/list-saved", r.URL.Path)
		respond(w, http.StatusOK, map[string]any{
			"saved_chats": []map[string]any{
				{"filename": "a.json", "session_name": "A", "total_exchanges": 2},
				{"filename": "b.json", "session_name": "B", "total_exchanges": 1},
			},
		}, "")
	}))
	defer srv.Close()

	summaries, err := NewClient(srv.URL, 5*time.Second).List(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "A", summaries[0].ChatName)
	assert.Equal(t, 1, summaries[1].ExchangeCount)
}

func TestClientLoadUpgradesLegacyContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat/load/old.json", r.URL.Path)
		respond(w, http.StatusOK, map[string]any{
			"session_name": "Old Chat",
			"created_at":   "2024-03-01T10:00:00Z",
			"history": []map[string]any{{
				"question": "q",
				"answer":   "a",
				"context":  "Source 1 (Relevance: 0.75)\nDocument Type: statute\nContent: text",
			}},
		}, "")
	}))
	defer srv.Close()

	loaded, err := NewClient(srv.URL, 5*time.Second).Load(context.Background(), "old.json")
	require.NoError(t, err)
	assert.Equal(t, "Old Chat", loaded.ChatName)
	require.Len(t, loaded.Exchanges, 1)
	require.Len(t, loaded.Exchanges[0].Sources, 1)
	assert.Equal(t, 0.75, loaded.Exchanges[0].Sources[0].RelevanceScore)
}

func TestClientDeleteTreatsNotFoundAsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		respond(w, http.StatusNotFound, nil, "saved chat not found")
	}))
	defer srv.Close()

	err := NewClient(srv.URL, 5*time.Second).Delete(context.Background(), "gone.json")
	assert.NoError(t, err)
}

func TestClientDeleteSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusInternalServerError, nil, "disk full")
	}))
	defer srv.Close()

	err := NewClient(srv.URL, 5*time.Second).Delete(context.Background(), "x.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestClientErrorWithoutEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 5*time.Second).List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestClientConnectionRefused(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", time.Second)
	_, err := c.List(context.Background())
	assert.Error(t, err)
}
