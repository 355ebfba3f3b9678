package store

import (
	"context"
	"time"

	"github.com/wislaw/lexchat/pkg/chat"
)

// Summary describes one saved session without its transcript.
type Summary struct {
	Filename      string    `json:"filename"`
	ChatName      string    `json:"session_name"`
	CreatedAt     time.Time `json:"created_at"`
	ExchangeCount int       `json:"total_exchanges"`
}

// SavedChat is a persisted session snapshot.
type SavedChat struct {
	Filename  string          `json:"filename"`
	ChatName  string          `json:"session_name"`
	CreatedAt time.Time       `json:"created_at"`
	Exchanges []chat.Exchange `json:"history"`
}

// Store persists named session snapshots. Snapshots are immutable: updates
// are modeled as delete-then-save by the caller. Delete is idempotent;
// deleting an absent filename is not an error.
type Store interface {
	Save(ctx context.Context, name string, exchanges []chat.Exchange) (SavedChat, error)
	List(ctx context.Context) ([]Summary, error)
	Load(ctx context.Context, filename string) (*SavedChat, error)
	Delete(ctx context.Context, filename string) error
}

// wireExchange is the persisted exchange shape. Older snapshots carry a
// free-text "context" blob instead of structured sources; upgradeExchange
// converts those at the load boundary so nothing downstream sees blobs.
type wireExchange struct {
	Question  string               `json:"question"`
	Answer    string               `json:"answer"`
	Context   string               `json:"context,omitempty"`
	Sources   []chat.SourceRef     `json:"sources,omitempty"`
	Metadata  *chat.AnswerMetadata `json:"metadata,omitempty"`
	Timestamp time.Time            `json:"timestamp,omitempty"`
}

func toWire(exchanges []chat.Exchange) []wireExchange {
	wire := make([]wireExchange, 0, len(exchanges))
	for _, ex := range exchanges {
		wire = append(wire, wireExchange{
			Question:  ex.Question,
			Answer:    ex.Answer,
			Sources:   ex.Sources,
			Metadata:  ex.Metadata,
			Timestamp: ex.Timestamp,
		})
	}
	return wire
}

func upgradeExchanges(wire []wireExchange) []chat.Exchange {
	exchanges := make([]chat.Exchange, 0, len(wire))
	for _, w := range wire {
		exchanges = append(exchanges, upgradeExchange(w))
	}
	return exchanges
}

func upgradeExchange(w wireExchange) chat.Exchange {
	ex := chat.Exchange{
		Question:  w.Question,
		Answer:    w.Answer,
		Sources:   w.Sources,
		Metadata:  w.Metadata,
		Timestamp: w.Timestamp,
	}
	if len(ex.Sources) == 0 && w.Context != "" {
		ex.Sources = ParseLegacyContext(w.Context)
	}
	return ex
}
