package chat

import "time"

// Exchange is one persisted question/answer pair within a saved session.
type Exchange struct {
	Question  string          `json:"question"`
	Answer    string          `json:"answer"`
	Sources   []SourceRef     `json:"sources,omitempty"`
	Metadata  *AnswerMetadata `json:"metadata,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// PairExchanges converts a transcript into persisted exchanges. The seeded
// greeting (an assistant message before any user turn) is stripped, error
// turns are skipped, and a trailing unanswered question is dropped.
func PairExchanges(messages []Message) []Exchange {
	exchanges := make([]Exchange, 0, len(messages)/2)

	var pending *Message
	for i := range messages {
		msg := messages[i]
		switch {
		case msg.IsUser():
			pending = &messages[i]
		case msg.IsAssistant() && pending != nil:
			exchanges = append(exchanges, Exchange{
				Question:  pending.Content,
				Answer:    msg.Content,
				Sources:   msg.Sources,
				Metadata:  msg.Metadata,
				Timestamp: msg.Timestamp,
			})
			pending = nil
		case msg.IsError():
			// Error turns never persist; the question they answered is
			// dropped with them.
			pending = nil
		}
	}

	return exchanges
}

// ExchangeMessages rebuilds a transcript from persisted exchanges.
func ExchangeMessages(exchanges []Exchange) []Message {
	messages := make([]Message, 0, len(exchanges)*2)
	for _, ex := range exchanges {
		messages = append(messages, NewUserMessage(ex.Question))
		answer := NewAssistantMessage(ex.Answer)
		answer.Sources = ex.Sources
		answer.Metadata = ex.Metadata
		if !ex.Timestamp.IsZero() {
			answer.Timestamp = ex.Timestamp
		}
		messages = append(messages, answer)
	}
	return messages
}
