package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Summary describes one indexed document.
type Summary struct {
	ID           string `json:"id"`
	FileName     string `json:"file_name"`
	DocumentType string `json:"document_type"`
	Jurisdiction string `json:"jurisdiction"`
	UploadDate   string `json:"upload_date"`
}

// UploadMeta is the classification metadata attached to an upload.
type UploadMeta struct {
	DocumentType string
	Jurisdiction string
	LawStatus    string
}

// Client talks to the backend's document endpoints. Document processing
// itself (chunking, embedding, indexing) happens server-side; this client
// only uploads files, refreshes the document counter, and fetches files for
// citation downloads.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// List returns the indexed documents.
func (c *Client) List(ctx context.Context) ([]Summary, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/documents/list", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	var env struct {
		Data struct {
			Documents []Summary `json:"documents"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return env.Data.Documents, nil
}

// Count returns the number of indexed documents.
func (c *Client) Count(ctx context.Context) (int, error) {
	docs, err := c.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// Upload sends a file for background processing on the backend.
func (c *Client) Upload(ctx context.Context, path string, meta UploadMeta) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	writer.WriteField("document_type", meta.DocumentType)
	writer.WriteField("jurisdiction", meta.Jurisdiction)
	writer.WriteField("law_status", meta.LawStatus)
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize upload body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/documents/upload", &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upload failed with status %d", resp.StatusCode)
	}
	return nil
}

// Download fetches a source document file by name.
func (c *Client) Download(ctx context.Context, filename string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/documents/download/"+filename, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
