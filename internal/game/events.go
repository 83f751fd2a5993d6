package game

import "github.com/google/uuid"

// EffectType identifies a state change the synchronization layer should
// mirror outward. Effects describe what already happened; they are never
// preconditions.
type EffectType string

const (
	EffectPointsChanged       EffectType = "points_changed"
	EffectCardsMoved          EffectType = "cards_moved"
	EffectRuleActivated       EffectType = "rule_activated"
	EffectRefereeChanged      EffectType = "referee_changed"
	EffectTurnAdvanced        EffectType = "turn_advanced"
	EffectCalloutInitiated    EffectType = "callout_initiated"
	EffectCalloutResolved     EffectType = "callout_resolved"
	EffectPlayerStatusChanged EffectType = "player_status_changed"
	EffectPromptExpired       EffectType = "prompt_expired"
	EffectGameEnded           EffectType = "game_ended"
)

// Effect is a single side-effect descriptor emitted by an engine
// operation after its in-memory mutation has completed.
type Effect struct {
	Type      EffectType `json:"type"`
	SessionID uuid.UUID  `json:"sessionId"`
	PlayerID  uuid.UUID  `json:"playerId,omitempty"`
	TargetID  uuid.UUID  `json:"targetId,omitempty"`
	CardID    uuid.UUID  `json:"cardId,omitempty"`
	Delta     int        `json:"delta,omitempty"`
	Turn      int        `json:"turn,omitempty"`
	Rule      string     `json:"rule,omitempty"`
}

// emitEffect hands a descriptor to the sync layer callback, if wired.
// Assumes the session lock is held by the caller.
func (m *Manager) emitEffect(eff Effect) {
	if m.EffectFn != nil {
		m.EffectFn(eff)
	}
}
