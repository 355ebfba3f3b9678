package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wislaw/lexchat/pkg/chat"
	"github.com/wislaw/lexchat/pkg/store"
	"github.com/wislaw/lexchat/pkg/transport"
)

// fakeStreamer hands the test full control over event delivery. Each call
// to Stream opens a new channel; the test emits events onto the most recent
// one, or onto an older one to simulate late callbacks from a stopped
// request.
type fakeStreamer struct {
	mu       sync.Mutex
	channels []chan transport.Event
	contexts []context.Context
	failWith error
}

func (f *fakeStreamer) Stream(ctx context.Context, question string) (<-chan transport.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failWith != nil {
		return nil, f.failWith
	}

	ch := make(chan transport.Event, 32)
	f.channels = append(f.channels, ch)
	f.contexts = append(f.contexts, ctx)
	return ch, nil
}

func (f *fakeStreamer) channel(n int) chan transport.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channels[n]
}

func (f *fakeStreamer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.channels)
}

func (f *fakeStreamer) cancelled(n int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contexts[n].Err() != nil
}

func (f *fakeStreamer) emitContent(n int, content string) {
	f.channel(n) <- transport.Event{Type: transport.EventContent, Content: content}
}

func (f *fakeStreamer) emitComplete(n int, payload *transport.CompletePayload) {
	ch := f.channel(n)
	ch <- transport.Event{Type: transport.EventComplete, Response: payload}
	close(ch)
}

func (f *fakeStreamer) emitError(n int, message string) {
	ch := f.channel(n)
	ch <- transport.Event{Type: transport.EventError, Err: errors.New(message)}
	close(ch)
}

// fakeStore records save and delete traffic and can be told to fail.
// A non-nil gate parks each Save until the channel is closed, so tests can
// hold a save in flight across other manager calls.
type fakeStore struct {
	mu        sync.Mutex
	saves     []savedCall
	deletes   []string
	failSave  bool
	nextID    int
	gate      chan struct{}
	savesSeen int
}

type savedCall struct {
	name      string
	filename  string
	exchanges []chat.Exchange
}

func (f *fakeStore) Save(ctx context.Context, name string, exchanges []chat.Exchange) (store.SavedChat, error) {
	f.mu.Lock()
	f.savesSeen++
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failSave {
		return store.SavedChat{}, errors.New("store unavailable")
	}

	f.nextID++
	filename := fmt.Sprintf("%s_%d.json", name, f.nextID)
	copied := make([]chat.Exchange, len(exchanges))
	copy(copied, exchanges)
	f.saves = append(f.saves, savedCall{name: name, filename: filename, exchanges: copied})

	return store.SavedChat{Filename: filename, ChatName: name, Exchanges: copied}, nil
}

func (f *fakeStore) List(ctx context.Context) ([]store.Summary, error) {
	return nil, nil
}

func (f *fakeStore) Load(ctx context.Context, filename string) (*store.SavedChat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.saves {
		if s.filename == filename {
			return &store.SavedChat{Filename: filename, ChatName: s.name, Exchanges: s.exchanges}, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeStore) Delete(ctx context.Context, filename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, filename)
	return nil
}

func (f *fakeStore) holdSaves(gate chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = gate
}

func (f *fakeStore) savesStarted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.savesSeen
}

func (f *fakeStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakeStore) savedAt(n int) savedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves[n]
}

func (f *fakeStore) deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.deletes))
	copy(out, f.deletes)
	return out
}
