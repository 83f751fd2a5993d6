package game

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/playcallout/callout/internal/models"
)

// turnState is a session's turn-sequencing state. turnNumber increments
// exactly when currentIndex wraps to 0.
type turnState struct {
	order        []uuid.UUID
	currentIndex int
	turnNumber   int
	hasSpun      bool
}

func (t *turnState) currentPlayerID() uuid.UUID {
	if len(t.order) == 0 {
		return uuid.Nil
	}
	return t.order[t.currentIndex]
}

// TurnSnapshot is the caller-visible view of a session's turn state.
type TurnSnapshot struct {
	CurrentPlayerID uuid.UUID `json:"currentPlayerId"`
	TurnNumber      int       `json:"turnNumber"`
	HasSpun         bool      `json:"hasSpun"`
}

// InitializeTurnOrder fixes the session's turn order and moves the
// session into play. The first player in the order acts first on turn 1.
func (m *Manager) InitializeTurnOrder(sessionID uuid.UUID, orderedPlayerIDs []uuid.UUID) error {
	gs, err := m.session(sessionID)
	if err != nil {
		return err
	}
	if len(orderedPlayerIDs) == 0 {
		return newError(CodeTurnNotInitialized, "turn order requires at least one player")
	}
	for _, id := range orderedPlayerIDs {
		if _, perr := m.getPlayer(id); perr != nil {
			return perr
		}
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()
	order := make([]uuid.UUID, len(orderedPlayerIDs))
	copy(order, orderedPlayerIDs)
	gs.turn = &turnState{
		order:      order,
		turnNumber: 1,
	}
	gs.state.Status = models.SessionInProgress
	m.logAction(gs, uuid.Nil, "turn_order_initialized", map[string]interface{}{"players": len(order)})
	return nil
}

// Turn returns the session's current turn state, if initialized.
func (m *Manager) Turn(sessionID uuid.UUID) (*TurnSnapshot, error) {
	gs, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if gs.turn == nil {
		return nil, newError(CodeTurnNotInitialized, "turn order not initialized for session %s", sessionID)
	}
	return &TurnSnapshot{
		CurrentPlayerID: gs.turn.currentPlayerID(),
		TurnNumber:      gs.turn.turnNumber,
		HasSpun:         gs.turn.hasSpun,
	}, nil
}

// canPlayerActLocked applies the act guard: turn state exists, the
// player exists and is active, it is their turn, and they have not spun
// yet. Assumes the session lock is held.
func (m *Manager) canPlayerActLocked(gs *GameSession, playerID uuid.UUID) bool {
	if gs.turn == nil {
		return false
	}
	p, perr := m.getPlayer(playerID)
	if perr != nil || p.Status != models.PlayerStatusActive {
		return false
	}
	return gs.turn.currentPlayerID() == playerID && !gs.turn.hasSpun
}

// CanPlayerAct reports whether the player may take their spin now.
func (m *Manager) CanPlayerAct(sessionID, playerID uuid.UUID) bool {
	gs, err := m.session(sessionID)
	if err != nil {
		return false
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return m.canPlayerActLocked(gs, playerID)
}

// RecordPlayerSpin marks the current player's spin taken. A call that
// fails the act guard is a speculative no-op returning false, not an
// error, because clients may probe it.
func (m *Manager) RecordPlayerSpin(sessionID, playerID uuid.UUID) bool {
	gs, err := m.session(sessionID)
	if err != nil {
		return false
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if !m.canPlayerActLocked(gs, playerID) {
		return false
	}
	gs.turn.hasSpun = true
	m.logAction(gs, playerID, "player_spin", map[string]interface{}{"turn": gs.turn.turnNumber})
	return true
}

// NextTurn advances to the next player in order, resetting the spin
// flag. The turn number increments exactly when the index wraps to 0.
func (m *Manager) NextTurn(sessionID uuid.UUID) (*TurnSnapshot, error) {
	gs, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return m.nextTurnLocked(gs)
}

// nextTurnLocked advances the turn. A rule-expiration hook failure is
// logged and swallowed so turn advancement is never blocked by the rule
// engine. Assumes the session lock is held.
func (m *Manager) nextTurnLocked(gs *GameSession) (*TurnSnapshot, error) {
	if gs.turn == nil {
		return nil, newError(CodeTurnNotInitialized, "turn order not initialized for session %s", gs.state.ID)
	}
	t := gs.turn
	t.currentIndex = (t.currentIndex + 1) % len(t.order)
	if t.currentIndex == 0 {
		t.turnNumber++
	}
	t.hasSpun = false

	snap := &TurnSnapshot{
		CurrentPlayerID: t.currentPlayerID(),
		TurnNumber:      t.turnNumber,
	}
	m.logAction(gs, uuid.Nil, "turn_advanced", map[string]interface{}{
		"turn":    snap.TurnNumber,
		"current": snap.CurrentPlayerID.String(),
	})
	m.emitEffect(Effect{
		Type:      EffectTurnAdvanced,
		SessionID: gs.state.ID,
		PlayerID:  snap.CurrentPlayerID,
		Turn:      snap.TurnNumber,
	})

	if m.rules != nil {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		if rerr := m.rules.HandleTurnProgression(ctx, gs.state.ID, t.turnNumber); rerr != nil {
			m.log.WithFields(logrus.Fields{
				"session": gs.state.ID,
				"turn":    t.turnNumber,
			}).WithError(rerr).Warn("rule expiration hook failed")
		}
	}
	return snap, nil
}

// HandlePlayerDisconnect marks the player disconnected and, if it was
// their turn, forcibly advances so the game is never stuck on them.
func (m *Manager) HandlePlayerDisconnect(sessionID, playerID uuid.UUID) error {
	gs, err := m.session(sessionID)
	if err != nil {
		return err
	}
	p, perr := m.getPlayer(playerID)
	if perr != nil {
		return perr
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()
	p.Status = models.PlayerStatusDisconnected
	m.logAction(gs, playerID, "player_disconnect", nil)
	m.emitEffect(Effect{Type: EffectPlayerStatusChanged, SessionID: sessionID, PlayerID: playerID, Rule: string(models.PlayerStatusDisconnected)})

	if gs.turn != nil && gs.turn.currentPlayerID() == playerID {
		if _, aerr := m.nextTurnLocked(gs); aerr != nil {
			return aerr
		}
	}

	m.mirrorWrite(sessionID, "update_player_status", func(ctx context.Context) error {
		return m.mirror.UpdatePlayerStatus(ctx, sessionID, playerID, string(models.PlayerStatusDisconnected))
	})
	return nil
}
