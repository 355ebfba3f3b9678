package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Streamer opens a streaming chat request. The returned channel carries
// content, complete and error events in delivery order and is closed when
// the stream ends for any reason.
type Streamer interface {
	Stream(ctx context.Context, question string) (<-chan Event, error)
}

// Client streams answers from the backend's SSE chat endpoint.
type Client struct {
	baseURL      string
	jurisdiction string
	httpClient   *http.Client
}

type streamRequest struct {
	Question        string `json:"question"`
	Jurisdiction    string `json:"jurisdiction,omitempty"`
	IncludeMetadata bool   `json:"include_metadata"`
}

// sseEvent mirrors one data: line from the stream.
type sseEvent struct {
	Type     string          `json:"type"`
	Content  string          `json:"content,omitempty"`
	Response json.RawMessage `json:"response,omitempty"`
}

func NewClient(baseURL, jurisdiction string, timeout time.Duration) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		jurisdiction: jurisdiction,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Stream sends a question and returns a channel of events. A connection
// level failure is returned from Stream itself; failures after the stream
// has opened are delivered as error events.
func (c *Client) Stream(ctx context.Context, question string) (<-chan Event, error) {
	reqBody, err := json.Marshal(streamRequest{
		Question:        question,
		Jurisdiction:    c.jurisdiction,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat/stream", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		errorBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
		}

		var errorResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(errorBody, &errorResp) == nil && errorResp.Error != "" {
			return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, errorResp.Error)
		}
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(errorBody))
	}

	events := make(chan Event, 100)
	streamID := uuid.NewString()

	go c.readStream(ctx, resp.Body, events, streamID)

	return events, nil
}

// readStream parses data: lines from the SSE body into events.
func (c *Client) readStream(ctx context.Context, body io.ReadCloser, events chan<- Event, streamID string) {
	defer close(events)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			events <- Event{
				Type:      EventError,
				Err:       ctx.Err(),
				StreamID:  streamID,
				Timestamp: time.Now(),
			}
			return
		default:
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}

		var raw sseEvent
		if err := json.Unmarshal([]byte(data), &raw); err != nil {
			events <- Event{
				Type:      EventError,
				Err:       fmt.Errorf("failed to parse stream event: %w", err),
				StreamID:  streamID,
				Timestamp: time.Now(),
			}
			continue
		}

		switch EventType(raw.Type) {
		case EventContent:
			events <- Event{
				Type:      EventContent,
				Content:   raw.Content,
				StreamID:  streamID,
				Timestamp: time.Now(),
			}
		case EventComplete:
			payload := &CompletePayload{}
			if len(raw.Response) > 0 {
				// A malformed final payload must not lose the already
				// streamed answer; deliver completion without metadata.
				if err := json.Unmarshal(raw.Response, payload); err != nil {
					payload = &CompletePayload{}
				}
			}
			events <- Event{
				Type:      EventComplete,
				Response:  payload,
				StreamID:  streamID,
				Timestamp: time.Now(),
			}
			return
		case EventError:
			events <- Event{
				Type:      EventError,
				Err:       fmt.Errorf("backend error: %s", backendErrorText(raw.Response)),
				StreamID:  streamID,
				Timestamp: time.Now(),
			}
			return
		}
	}

	if err := scanner.Err(); err != nil {
		events <- Event{
			Type:      EventError,
			Err:       fmt.Errorf("stream reading error: %w", err),
			StreamID:  streamID,
			Timestamp: time.Now(),
		}
	}
}

// backendErrorText digs the human-readable message out of an error payload,
// which older backends send as "answer" and newer ones as "error".
func backendErrorText(response json.RawMessage) string {
	var payload struct {
		Error  string `json:"error"`
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal(response, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Answer != "" {
			return payload.Answer
		}
	}
	return "stream failed"
}
