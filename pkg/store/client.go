package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/wislaw/lexchat/pkg/chat"
)

// Client persists sessions through the backend's saved-chat endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// envelope is the backend's uniform response wrapper.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Save(ctx context.Context, name string, exchanges []chat.Exchange) (SavedChat, error) {
	body := struct {
		SessionName string         `json:"session_name"`
		History     []wireExchange `json:"history"`
	}{
		SessionName: name,
		History:     toWire(exchanges),
	}

	var data struct {
		SessionName    string    `json:"session_name"`
		Filename       string    `json:"filename"`
		TotalExchanges int       `json:"total_exchanges"`
		SavedAt        time.Time `json:"saved_at"`
	}
	if err := c.call(ctx, "POST", "/api/chat/save", body, &data); err != nil {
		return SavedChat{}, fmt.Errorf("failed to save chat: %w", err)
	}

	return SavedChat{
		Filename:  data.Filename,
		ChatName:  data.SessionName,
		CreatedAt: data.SavedAt,
		Exchanges: exchanges,
	}, nil
}

func (c *Client) List(ctx context.Context) ([]Summary, error) {
	var data struct {
		SavedChats []Summary `json:"saved_chats"`
	}
	if err := c.call(ctx, "GET", "/api/chat/list-saved", nil, &data); err != nil {
		return nil, fmt.Errorf("failed to list saved chats: %w", err)
	}
	return data.SavedChats, nil
}

func (c *Client) Load(ctx context.Context, filename string) (*SavedChat, error) {
	var data struct {
		SessionName string         `json:"session_name"`
		CreatedAt   time.Time      `json:"created_at"`
		History     []wireExchange `json:"history"`
	}
	if err := c.call(ctx, "GET", "/api/chat/load/"+filename, nil, &data); err != nil {
		return nil, fmt.Errorf("failed to load chat %s: %w", filename, err)
	}

	return &SavedChat{
		Filename:  filename,
		ChatName:  data.SessionName,
		CreatedAt: data.CreatedAt,
		Exchanges: upgradeExchanges(data.History),
	}, nil
}

func (c *Client) Delete(ctx context.Context, filename string) error {
	err := c.call(ctx, "DELETE", "/api/chat/delete/"+filename, nil, nil)
	if err != nil && strings.Contains(err.Error(), "status 404") {
		// Already gone. Delete is idempotent.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete chat %s: %w", filename, err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method, path string, body any, out any) error {
	var reqBody *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(encoded)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("request failed with status %d", resp.StatusCode)
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if env.Error != "" {
			return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, env.Error)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}
