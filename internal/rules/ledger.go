package rules

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/playcallout/callout/internal/models"
)

// ModifierTurnLifetime is how many turns a modifier card's rule stays
// active before the turn-progression sweep retires it.
const ModifierTurnLifetime = 3

// Ledger is the in-memory Engine implementation: a per-session list of
// active rules, expired lazily on turn progression.
type Ledger struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID][]ActiveRule
}

// NewLedger creates an empty rule ledger.
func NewLedger() *Ledger {
	return &Ledger{
		sessions: make(map[uuid.UUID][]ActiveRule),
	}
}

func (l *Ledger) InitializeSession(_ context.Context, sessionID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.sessions[sessionID]; !ok {
		l.sessions[sessionID] = nil
	}
	return nil
}

// HandleCardDrawn activates the drawn card's rule text where the card
// type calls for it. Rule cards bind to the drawing player with no
// turn-based expiry; modifier cards are session-wide and retire after
// ModifierTurnLifetime turns. Other card types activate nothing.
func (l *Ledger) HandleCardDrawn(_ context.Context, sessionID, playerID uuid.UUID, card *models.Card, dc DrawContext) (*ActiveRule, error) {
	if card == nil {
		return nil, nil
	}

	var rule ActiveRule
	switch card.Type {
	case models.CardTypeRule:
		rule = ActiveRule{
			ID:            uuid.New(),
			SessionID:     sessionID,
			PlayerID:      playerID,
			CardID:        card.ID,
			RuleText:      card.ActiveRule(),
			ActivatedTurn: dc.TurnNumber,
		}
	case models.CardTypeModifier:
		rule = ActiveRule{
			ID:               uuid.New(),
			SessionID:        sessionID,
			CardID:           card.ID,
			RuleText:         card.ActiveRule(),
			ActivatedTurn:    dc.TurnNumber,
			ExpiresAfterTurn: dc.TurnNumber + ModifierTurnLifetime,
		}
	default:
		return nil, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessions[sessionID] = append(l.sessions[sessionID], rule)
	return &rule, nil
}

// HandleTurnProgression retires rules whose expiry turn has passed.
func (l *Ledger) HandleTurnProgression(_ context.Context, sessionID uuid.UUID, turnNumber int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	active := l.sessions[sessionID]
	kept := active[:0]
	for _, r := range active {
		if r.ExpiresAfterTurn != 0 && turnNumber > r.ExpiresAfterTurn {
			continue
		}
		kept = append(kept, r)
	}
	l.sessions[sessionID] = kept
	return nil
}

func (l *Ledger) GetActiveRules(_ context.Context, sessionID uuid.UUID) ([]ActiveRule, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	active := l.sessions[sessionID]
	out := make([]ActiveRule, len(active))
	copy(out, active)
	return out, nil
}

// GetEffectiveRulesForPlayer returns session-wide rules plus the rules
// bound to the given player.
func (l *Ledger) GetEffectiveRulesForPlayer(_ context.Context, sessionID, playerID uuid.UUID) ([]ActiveRule, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []ActiveRule
	for _, r := range l.sessions[sessionID] {
		if r.PlayerID == uuid.Nil || r.PlayerID == playerID {
			out = append(out, r)
		}
	}
	return out, nil
}

// HandleCardTransfer rebinds rules that follow their card to the new
// holder.
func (l *Ledger) HandleCardTransfer(_ context.Context, sessionID, fromPlayerID, toPlayerID uuid.UUID, card *models.Card) error {
	if card == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.sessions[sessionID] {
		r := &l.sessions[sessionID][i]
		if r.CardID == card.ID && r.PlayerID == fromPlayerID {
			r.PlayerID = toPlayerID
		}
	}
	return nil
}

func (l *Ledger) HandleGameEnd(_ context.Context, sessionID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.sessions, sessionID)
	return nil
}
