package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// StartPromptTimer arms the session's prompt timeout: when the limit
// elapses the engine emits a prompt-expired effect for the given player.
// This is the single actively-scheduled timer in the engine; everything
// else is a lazily-checked clock delta. Re-arming replaces any previous
// timer.
func (m *Manager) StartPromptTimer(sessionID, playerID uuid.UUID, limit time.Duration) error {
	gs, err := m.session(sessionID)
	if err != nil {
		return err
	}
	if !gs.state.HasPlayer(playerID) {
		return newError(CodePlayerNotFound, "player %s is not in session %s", playerID, sessionID)
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()
	if gs.promptTimer != nil {
		gs.promptTimer.Stop()
	}
	gs.promptTimer = time.AfterFunc(limit, func() {
		m.handlePromptTimeout(sessionID, playerID)
	})
	m.logAction(gs, playerID, "prompt_timer_started", map[string]interface{}{"limitMs": limit.Milliseconds()})
	return nil
}

// CancelPromptTimer stops the session's prompt timer if one is armed.
// Returns whether a timer was cancelled.
func (m *Manager) CancelPromptTimer(sessionID uuid.UUID) bool {
	gs, err := m.session(sessionID)
	if err != nil {
		return false
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if gs.promptTimer == nil {
		return false
	}
	stopped := gs.promptTimer.Stop()
	gs.promptTimer = nil
	return stopped
}

// handlePromptTimeout runs on the timer goroutine after the prompt limit
// elapses. The session may have been cleaned up in the meantime.
func (m *Manager) handlePromptTimeout(sessionID, playerID uuid.UUID) {
	gs, err := m.session(sessionID)
	if err != nil {
		return
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.promptTimer = nil

	m.log.WithFields(logrus.Fields{
		"session": sessionID,
		"player":  playerID,
	}).Info("prompt time limit elapsed")
	m.logAction(gs, playerID, "prompt_expired", nil)
	m.emitEffect(Effect{Type: EffectPromptExpired, SessionID: sessionID, PlayerID: playerID})
}
