package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wislaw/lexchat/pkg/chat"
)

// FileStore keeps session snapshots as JSON files in a local directory.
// It is the store used when no backend is configured for persistence.
type FileStore struct {
	dir string
}

// fileSnapshot is the on-disk layout, matching the backend's saved-chat
// files so snapshots can move between the two stores.
type fileSnapshot struct {
	SessionName    string         `json:"session_name"`
	CreatedAt      time.Time      `json:"created_at"`
	History        []wireExchange `json:"history"`
	TotalExchanges int            `json:"total_exchanges"`
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (fs *FileStore) Save(ctx context.Context, name string, exchanges []chat.Exchange) (SavedChat, error) {
	snapshot := fileSnapshot{
		SessionName:    name,
		CreatedAt:      time.Now(),
		History:        toWire(exchanges),
		TotalExchanges: len(exchanges),
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return SavedChat{}, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.json", sanitizeName(name), uuid.NewString()[:8])
	if err := os.WriteFile(filepath.Join(fs.dir, filename), data, 0644); err != nil {
		return SavedChat{}, fmt.Errorf("failed to write snapshot: %w", err)
	}

	return SavedChat{
		Filename:  filename,
		ChatName:  name,
		CreatedAt: snapshot.CreatedAt,
		Exchanges: exchanges,
	}, nil
}

func (fs *FileStore) List(ctx context.Context) ([]Summary, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read store directory: %w", err)
	}

	summaries := make([]Summary, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		snapshot, err := fs.read(entry.Name())
		if err != nil {
			// Unreadable snapshots are skipped, not fatal.
			continue
		}
		summaries = append(summaries, Summary{
			Filename:      entry.Name(),
			ChatName:      snapshot.SessionName,
			CreatedAt:     snapshot.CreatedAt,
			ExchangeCount: snapshot.TotalExchanges,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

func (fs *FileStore) Load(ctx context.Context, filename string) (*SavedChat, error) {
	snapshot, err := fs.read(filename)
	if err != nil {
		return nil, err
	}
	return &SavedChat{
		Filename:  filename,
		ChatName:  snapshot.SessionName,
		CreatedAt: snapshot.CreatedAt,
		Exchanges: upgradeExchanges(snapshot.History),
	}, nil
}

func (fs *FileStore) Delete(ctx context.Context, filename string) error {
	err := os.Remove(filepath.Join(fs.dir, filepath.Base(filename)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot %s: %w", filename, err)
	}
	return nil
}

func (fs *FileStore) read(filename string) (*fileSnapshot, error) {
	data, err := os.ReadFile(filepath.Join(fs.dir, filepath.Base(filename)))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", filename, err)
	}
	var snapshot fileSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", filename, err)
	}
	return &snapshot, nil
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "session"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", "..", "_")
	return replacer.Replace(name)
}
