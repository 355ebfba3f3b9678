package chat

// Session is the full transcript plus identity. ID is the filename assigned
// by the session store on first successful save and is empty before that.
type Session struct {
	ID          string    `json:"id,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	Messages    []Message `json:"messages"`
	AutoSave    bool      `json:"auto_save"`
}

// NewSession seeds a fresh session with an assistant greeting. The greeting
// is part of the visible transcript but is never persisted.
func NewSession(greeting string, autoSave bool) *Session {
	s := &Session{
		Messages: make([]Message, 0, 8),
		AutoSave: autoSave,
	}
	if greeting != "" {
		s.Messages = append(s.Messages, NewAssistantMessage(greeting))
	}
	return s
}

// Append adds a message and returns its index.
func (s *Session) Append(msg Message) int {
	s.Messages = append(s.Messages, msg)
	return len(s.Messages) - 1
}

// UserMessageCount reports how many genuine user turns the session holds.
func (s *Session) UserMessageCount() int {
	count := 0
	for _, m := range s.Messages {
		if m.IsUser() {
			count++
		}
	}
	return count
}

// LastMessage returns the most recent message, if any.
func (s *Session) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}
