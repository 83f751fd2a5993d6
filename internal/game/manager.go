// Package game implements the Callout session state machine: session and
// player lifecycle, turn sequencing, referee rotation, the callout
// adjudication protocol and the special card actions. All state lives in
// memory; the persistence mirror and rule engine are injected
// collaborators whose failures never roll back applied state.
package game

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/playcallout/callout/internal/cache"
	"github.com/playcallout/callout/internal/models"
	"github.com/playcallout/callout/internal/rules"
	"github.com/playcallout/callout/internal/store"
)

// StartingPoints is every player's initial score.
const StartingPoints = 20

// mirrorTimeout bounds each fire-and-forget call to an external
// collaborator.
const mirrorTimeout = 2 * time.Second

// Manager owns the session and player registries and is the single
// entry point for every engine operation. Operations against one
// session are serialized by that session's lock; different sessions
// proceed in parallel.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*GameSession
	players  map[uuid.UUID]*models.Player

	mirror store.Mirror
	rules  rules.Engine

	// Historian, when set, receives an ActionRecord for every engine
	// action. Publishing is fire-and-forget.
	Historian *cache.Historian

	// EffectFn, when set, receives side-effect descriptors after each
	// in-memory mutation completes, for the sync layer to mirror outward.
	EffectFn func(eff Effect)

	// Now and Rand are injectable so cooldowns and referee selection are
	// deterministic under test.
	Now  func() time.Time
	Rand func() float64

	wg  sync.WaitGroup
	log *logrus.Logger
}

// Drain blocks until all in-flight background publishes and mirror
// writes have finished. Called on shutdown.
func (m *Manager) Drain() {
	m.wg.Wait()
}

// NewManager creates a Manager with empty registries and wall-clock
// defaults.
func NewManager(mirror store.Mirror, ruleEngine rules.Engine, log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		sessions: make(map[uuid.UUID]*GameSession),
		players:  make(map[uuid.UUID]*models.Player),
		mirror:   mirror,
		rules:    ruleEngine,
		Now:      time.Now,
		Rand:     rand.Float64,
		log:      log,
	}
}

// session resolves a session aggregate. The caller locks it.
func (m *Manager) session(sessionID uuid.UUID) (*GameSession, *Error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	gs, ok := m.sessions[sessionID]
	if !ok {
		return nil, newError(CodeSessionNotFound, "session %s not found", sessionID)
	}
	return gs, nil
}

// getPlayer resolves a player record from the registry.
func (m *Manager) getPlayer(playerID uuid.UUID) (*models.Player, *Error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[playerID]
	if !ok {
		return nil, newError(CodePlayerNotFound, "player %s not found", playerID)
	}
	return p, nil
}

// GetSession returns the session's current state.
func (m *Manager) GetSession(sessionID uuid.UUID) (*models.Session, error) {
	gs, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}
	return gs.state, nil
}

// GetPlayer returns a player's local record.
func (m *Manager) GetPlayer(playerID uuid.UUID) (*models.Player, error) {
	p, perr := m.getPlayer(playerID)
	if perr != nil {
		return nil, perr
	}
	return p, nil
}

// ListSessions returns the ids of all live sessions.
func (m *Manager) ListSessions() []uuid.UUID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	return out
}

// logAction publishes an action record to the historian asynchronously.
// Assumes the session lock is held by the caller.
func (m *Manager) logAction(gs *GameSession, actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	gs.actionIndex++
	if m.Historian == nil {
		return
	}
	rec := cache.ActionRecord{
		SessionID:   gs.state.ID,
		ActionIndex: gs.actionIndex,
		ActorID:     actorID,
		ActionType:  actionType,
		Payload:     payload,
		Timestamp:   m.Now().UnixMilli(),
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		if err := m.Historian.Publish(ctx, rec); err != nil {
			m.log.WithFields(logrus.Fields{
				"session": rec.SessionID,
				"action":  rec.ActionType,
			}).WithError(err).Error("historian publish failed")
		}
	}()
}

// mirrorWrite runs a mirror write in the background. Mirror failures are
// logged and never affect engine state.
func (m *Manager) mirrorWrite(sessionID uuid.UUID, op string, fn func(ctx context.Context) error) {
	if m.mirror == nil {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			m.log.WithFields(logrus.Fields{
				"session": sessionID,
				"op":      op,
			}).WithError(err).Warn("mirror write failed")
		}
	}()
}

// activeRuleBlocks reports whether any active rule's text contains the
// given keyword. Rule text is matched as a case-insensitive substring
// and is otherwise opaque to the engine. A rule-engine failure is
// logged and treated as "no rules".
func (m *Manager) activeRuleBlocks(sessionID uuid.UUID, keyword string) bool {
	if m.rules == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()
	active, err := m.rules.GetActiveRules(ctx, sessionID)
	if err != nil {
		m.log.WithField("session", sessionID).WithError(err).Warn("rule engine lookup failed, allowing action")
		return false
	}
	for _, r := range active {
		if containsFold(r.RuleText, keyword) {
			return true
		}
	}
	return false
}
