package session

import (
	"context"
	"time"

	"github.com/wislaw/lexchat/pkg/chat"
	"github.com/wislaw/lexchat/pkg/logger"
)

const saveTimeout = 30 * time.Second

// maybeAutoSaveLocked fires a background save after a completed assistant
// turn. Gating: autosave enabled, at least one user message, and at least
// one persistable exchange (error turns pair to nothing). The caller holds
// the manager lock; the store calls run off it so saving never blocks the
// next Submit.
func (m *Manager) maybeAutoSaveLocked() {
	if !m.session.AutoSave || m.session.UserMessageCount() == 0 {
		return
	}

	exchanges := chat.PairExchanges(m.session.Messages)
	if len(exchanges) == 0 {
		return
	}

	name := m.session.DisplayName
	if name == "" {
		name = chat.FallbackName
	}

	m.saving++
	m.saveWg.Add(1)
	go m.persistSnapshot(m.session, name, exchanges)
}

// persistSnapshot writes one captured snapshot. The store only exposes
// create and delete, so an update is emulated as delete-then-write against
// the previously saved filename. A failed delete is logged and swallowed:
// an orphaned stale snapshot is acceptable, a missing newest one is not.
//
// owner is the session the snapshot was captured from. If the manager has
// replaced the session while the save was in flight, the snapshot is still
// written (the captured transcript must not be lost) but supersession state
// stays untouched: no delete of another session's snapshot, no filename
// written back onto a session that never saved.
func (m *Manager) persistSnapshot(owner *chat.Session, name string, exchanges []chat.Exchange) {
	defer m.saveWg.Done()
	defer func() {
		m.mu.Lock()
		m.saving--
		m.mu.Unlock()
	}()

	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	m.mu.Lock()
	prior := ""
	if m.session == owner {
		prior = m.lastSaved
	}
	m.mu.Unlock()

	if prior != "" {
		if err := m.store.Delete(ctx, prior); err != nil {
			logger.Warn("Failed to delete superseded snapshot %s: %v", prior, err)
		}
	}

	saved, err := m.store.Save(ctx, name, exchanges)
	if err != nil {
		logger.Error("Auto-save failed: %v", err)
		m.notifyUser("Failed to auto-save session: " + err.Error())
		return
	}

	m.mu.Lock()
	if m.session == owner {
		m.lastSaved = saved.Filename
		m.session.ID = saved.Filename
	} else {
		logger.Debug("Session replaced during save; snapshot %s left standing", saved.Filename)
	}
	m.mu.Unlock()
	logger.Debug("Auto-saved session %q as %s (%d exchanges)", name, saved.Filename, len(exchanges))
}

// SaveAs persists the current transcript under an explicit name,
// independent of the autosave cycle. The saved snapshot becomes the
// supersession target for subsequent autosaves.
func (m *Manager) SaveAs(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	exchanges := chat.PairExchanges(m.session.Messages)
	m.mu.Unlock()

	saved, err := m.store.Save(ctx, name, exchanges)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.lastSaved = saved.Filename
	m.session.ID = saved.Filename
	if m.session.DisplayName == "" {
		m.session.DisplayName = name
	}
	m.mu.Unlock()
	return saved.Filename, nil
}

// WaitForSaves blocks until background saves have drained. Used on shutdown
// and by tests; the conversational flow never calls it.
func (m *Manager) WaitForSaves() {
	m.saveWg.Wait()
}
