package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/playcallout/callout/internal/models"
)

// cloneRef is one registered clone of an original card. OwnerID is the
// player who created the clone; the current holder is resolved at
// removal time since clones change hands.
type cloneRef struct {
	OwnerID uuid.UUID
	CloneID uuid.UUID
}

// GameSession is the per-session aggregate. Every operation that reads
// or mutates it holds mu for its full read-modify-write, so two
// near-simultaneous requests can never both observe the same pre-state.
type GameSession struct {
	mu    sync.Mutex
	state *models.Session

	turn *turnState // nil until InitializeTurnOrder

	// cloneMap maps an original card id to its registered clones, in
	// creation order.
	cloneMap map[uuid.UUID][]cloneRef

	// Callout throttling ledgers, all lazily checked now() deltas.
	lastCalloutAt  map[uuid.UUID]time.Time
	recentCallouts map[uuid.UUID][]time.Time
	lastDecisionAt map[uuid.UUID]time.Time

	promptTimer *time.Timer

	actionIndex int
}

func newGameSession(state *models.Session) *GameSession {
	return &GameSession{
		state:          state,
		cloneMap:       make(map[uuid.UUID][]cloneRef),
		lastCalloutAt:  make(map[uuid.UUID]time.Time),
		recentCallouts: make(map[uuid.UUID][]time.Time),
		lastDecisionAt: make(map[uuid.UUID]time.Time),
	}
}

// pendingCallout returns the session's pending callout, or nil. This is
// the single place "is a callout pending" is decided.
func (gs *GameSession) pendingCallout() *models.Callout {
	if c := gs.state.CurrentCallout; c != nil && c.Status == models.CalloutPending {
		return c
	}
	return nil
}

// CreateSession allocates a session with a fresh id and registers the
// host as its first player with starting points and an empty hand.
func (m *Manager) CreateSession(hostID uuid.UUID, hostDisplayName string) (*models.Session, error) {
	sessionID := uuid.New()

	host := &models.Player{
		ID:          hostID,
		DisplayName: hostDisplayName,
		Points:      StartingPoints,
		Status:      models.PlayerStatusActive,
		Hand:        []*models.Card{},
	}
	state := &models.Session{
		ID:             sessionID,
		HostID:         hostID,
		Players:        []uuid.UUID{hostID},
		Status:         models.SessionLobby,
		CalloutHistory: []*models.Callout{},
	}
	gs := newGameSession(state)

	m.mu.Lock()
	m.sessions[sessionID] = gs
	m.players[hostID] = host
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{
		"session": sessionID,
		"host":    hostID,
	}).Info("session created")

	if m.rules != nil {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		if err := m.rules.InitializeSession(ctx, sessionID); err != nil {
			m.log.WithField("session", sessionID).WithError(err).Warn("rule engine session init failed")
		}
		cancel()
	}
	m.mirrorWrite(sessionID, "create_session", func(ctx context.Context) error {
		if err := m.mirror.CreateSession(ctx, sessionID, hostID, hostDisplayName); err != nil {
			return err
		}
		return m.mirror.InitializePlayer(ctx, sessionID, hostID, hostDisplayName, true)
	})

	gs.mu.Lock()
	m.logAction(gs, hostID, "session_create", nil)
	gs.mu.Unlock()

	return state, nil
}

// InitializePlayer creates (or resets) a player's local record with
// starting points, active status and an empty hand. It is idempotent per
// player id and does not add the player to the session's membership —
// JoinSession does that.
func (m *Manager) InitializePlayer(sessionID, playerID uuid.UUID, displayName string) (*models.Player, error) {
	if _, err := m.session(sessionID); err != nil {
		return nil, err
	}

	p := &models.Player{
		ID:          playerID,
		DisplayName: displayName,
		Points:      StartingPoints,
		Status:      models.PlayerStatusActive,
		Hand:        []*models.Card{},
	}
	m.mu.Lock()
	m.players[playerID] = p
	m.mu.Unlock()

	m.mirrorWrite(sessionID, "initialize_player", func(ctx context.Context) error {
		return m.mirror.InitializePlayer(ctx, sessionID, playerID, displayName, false)
	})
	return p, nil
}

// JoinSession appends an initialized player to the session's membership
// list. Joining twice is a no-op.
func (m *Manager) JoinSession(sessionID, playerID uuid.UUID) error {
	gs, err := m.session(sessionID)
	if err != nil {
		return err
	}
	if _, perr := m.getPlayer(playerID); perr != nil {
		return perr
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()
	if gs.state.HasPlayer(playerID) {
		return nil
	}
	gs.state.Players = append(gs.state.Players, playerID)
	m.logAction(gs, playerID, "player_join", nil)
	return nil
}

// TrackPlayerStatus sets a player's status and mirrors the change.
func (m *Manager) TrackPlayerStatus(sessionID, playerID uuid.UUID, status models.PlayerStatus) error {
	gs, err := m.session(sessionID)
	if err != nil {
		return err
	}
	p, perr := m.getPlayer(playerID)
	if perr != nil {
		return perr
	}

	gs.mu.Lock()
	p.Status = status
	m.emitEffect(Effect{Type: EffectPlayerStatusChanged, SessionID: sessionID, PlayerID: playerID, Rule: string(status)})
	gs.mu.Unlock()

	m.mirrorWrite(sessionID, "update_player_status", func(ctx context.Context) error {
		return m.mirror.UpdatePlayerStatus(ctx, sessionID, playerID, string(status))
	})
	return nil
}

// AssignPlayerHand replaces a player's hand wholesale.
func (m *Manager) AssignPlayerHand(sessionID, playerID uuid.UUID, hand []*models.Card) error {
	gs, err := m.session(sessionID)
	if err != nil {
		return err
	}
	p, perr := m.getPlayer(playerID)
	if perr != nil {
		return perr
	}

	gs.mu.Lock()
	if hand == nil {
		hand = []*models.Card{}
	}
	p.Hand = hand
	gs.mu.Unlock()

	m.mirrorWrite(sessionID, "update_player_hand", func(ctx context.Context) error {
		return m.mirror.UpdatePlayerHand(ctx, sessionID, playerID, hand)
	})
	return nil
}

// CleanupEmptySession removes the session, its turn state and its
// timers if no member is still active. Returns whether a removal
// happened; a missing session is not an error.
func (m *Manager) CleanupEmptySession(sessionID uuid.UUID) bool {
	gs, err := m.session(sessionID)
	if err != nil {
		return false
	}

	gs.mu.Lock()
	for _, id := range gs.state.Players {
		if p, perr := m.getPlayer(id); perr == nil && p.Status == models.PlayerStatusActive {
			gs.mu.Unlock()
			return false
		}
	}
	if gs.promptTimer != nil {
		gs.promptTimer.Stop()
		gs.promptTimer = nil
	}
	gs.turn = nil
	members := gs.state.Players
	gs.mu.Unlock()

	m.mu.Lock()
	delete(m.sessions, sessionID)
	for _, id := range members {
		delete(m.players, id)
	}
	m.mu.Unlock()

	m.log.WithField("session", sessionID).Info("empty session cleaned up")
	return true
}

// EndGame marks the session completed, cancels the prompt timer and
// notifies the rule engine. A rule-engine failure is logged and
// swallowed.
func (m *Manager) EndGame(sessionID uuid.UUID) error {
	gs, err := m.session(sessionID)
	if err != nil {
		return err
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()
	if gs.state.Status == models.SessionCompleted {
		return nil
	}
	gs.state.Status = models.SessionCompleted
	if gs.promptTimer != nil {
		gs.promptTimer.Stop()
		gs.promptTimer = nil
	}
	m.logAction(gs, uuid.Nil, "game_end", nil)
	m.emitEffect(Effect{Type: EffectGameEnded, SessionID: sessionID})

	if m.rules != nil {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		if rerr := m.rules.HandleGameEnd(ctx, sessionID); rerr != nil {
			m.log.WithField("session", sessionID).WithError(rerr).Warn("rule engine game end failed")
		}
	}
	return nil
}
