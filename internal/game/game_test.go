package game

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playcallout/callout/internal/models"
	"github.com/playcallout/callout/internal/rules"
	"github.com/playcallout/callout/internal/store"
)

// fixture wires a Manager with an in-memory mirror, a rule ledger, a
// frozen clock and a pinned random source.
type fixture struct {
	m      *Manager
	mirror *store.Memory
	ledger *rules.Ledger
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	f := &fixture{
		mirror: store.NewMemory(),
		ledger: rules.NewLedger(),
		now:    time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	f.m = NewManager(f.mirror, f.ledger, log)
	f.m.Now = func() time.Time { return f.now }
	f.m.Rand = func() float64 { return 0 }
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// setupSession creates a session with n players. The mirror roster is
// seeded synchronously, in join order, so roster-dependent operations
// are deterministic regardless of the engine's background writes.
func (f *fixture) setupSession(t *testing.T, n int) (uuid.UUID, []uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}

	sess, err := f.m.CreateSession(ids[0], "host")
	require.NoError(t, err)
	require.NoError(t, f.mirror.CreateSession(ctx, sess.ID, ids[0], "host"))
	require.NoError(t, f.mirror.InitializePlayer(ctx, sess.ID, ids[0], "host", true))

	for i := 1; i < n; i++ {
		name := fmt.Sprintf("player-%d", i)
		require.NoError(t, f.mirror.InitializePlayer(ctx, sess.ID, ids[i], name, false))
		_, err := f.m.InitializePlayer(sess.ID, ids[i], name)
		require.NoError(t, err)
		require.NoError(t, f.m.JoinSession(sess.ID, ids[i]))
	}
	f.m.Drain()
	return sess.ID, ids
}

// assignReferee makes the player at roster index idx the referee by
// pinning the draw.
func (f *fixture) assignReferee(t *testing.T, sessionID uuid.UUID, idx, rosterSize int, card *models.Card) *models.Player {
	t.Helper()
	f.m.Rand = func() float64 { return (float64(idx) + 0.5) / float64(rosterSize) }
	ref, err := f.m.AssignRefereeCard(context.Background(), sessionID, card)
	require.NoError(t, err)
	require.NotNil(t, ref)
	return ref
}

func ruleCard(text string) *models.Card {
	return &models.Card{
		ID:          uuid.New(),
		Type:        models.CardTypeRule,
		FrontRule:   text,
		CurrentSide: models.CardSideFront,
	}
}

func twoSidedCard(front, back string) *models.Card {
	return &models.Card{
		ID:          uuid.New(),
		Type:        models.CardTypeRule,
		FrontRule:   front,
		BackRule:    back,
		CurrentSide: models.CardSideFront,
	}
}

func TestCreateSessionUniqueIDs(t *testing.T) {
	f := newFixture(t)
	seen := make(map[uuid.UUID]bool, 10000)
	for i := 0; i < 10000; i++ {
		sess, err := f.m.CreateSession(uuid.New(), "host")
		require.NoError(t, err)
		require.False(t, seen[sess.ID], "duplicate session id %s", sess.ID)
		seen[sess.ID] = true
	}
}

func TestCreateSessionRegistersHost(t *testing.T) {
	f := newFixture(t)
	hostID := uuid.New()
	sess, err := f.m.CreateSession(hostID, "alice")
	require.NoError(t, err)

	assert.Equal(t, hostID, sess.HostID)
	assert.Equal(t, models.SessionLobby, sess.Status)
	assert.True(t, sess.HasPlayer(hostID))

	host, err := f.m.GetPlayer(hostID)
	require.NoError(t, err)
	assert.Equal(t, StartingPoints, host.Points)
	assert.Equal(t, models.PlayerStatusActive, host.Status)
	assert.Empty(t, host.Hand)
}

func TestInitializePlayerDoesNotJoin(t *testing.T) {
	f := newFixture(t)
	sessionID, _ := f.setupSession(t, 1)

	outsider := uuid.New()
	p, err := f.m.InitializePlayer(sessionID, outsider, "bob")
	require.NoError(t, err)
	assert.Equal(t, StartingPoints, p.Points)

	sess, err := f.m.GetSession(sessionID)
	require.NoError(t, err)
	assert.False(t, sess.HasPlayer(outsider))

	require.NoError(t, f.m.JoinSession(sessionID, outsider))
	assert.True(t, sess.HasPlayer(outsider))

	// Joining twice is a no-op.
	require.NoError(t, f.m.JoinSession(sessionID, outsider))
	count := 0
	for _, id := range sess.Players {
		if id == outsider {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestGetSessionNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.GetSession(uuid.New())
	assert.Equal(t, CodeSessionNotFound, CodeOf(err))
}

func TestCleanupEmptySession(t *testing.T) {
	f := newFixture(t)
	sessionID, ids := f.setupSession(t, 2)

	assert.False(t, f.m.CleanupEmptySession(sessionID), "active members present")

	require.NoError(t, f.m.TrackPlayerStatus(sessionID, ids[0], models.PlayerStatusLeft))
	assert.False(t, f.m.CleanupEmptySession(sessionID))

	require.NoError(t, f.m.TrackPlayerStatus(sessionID, ids[1], models.PlayerStatusLeft))
	assert.True(t, f.m.CleanupEmptySession(sessionID))

	_, err := f.m.GetSession(sessionID)
	assert.Equal(t, CodeSessionNotFound, CodeOf(err))
	_, err = f.m.GetPlayer(ids[0])
	assert.Equal(t, CodePlayerNotFound, CodeOf(err))
}

func TestEndGameIdempotent(t *testing.T) {
	f := newFixture(t)
	sessionID, _ := f.setupSession(t, 2)

	require.NoError(t, f.m.EndGame(sessionID))
	sess, err := f.m.GetSession(sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, sess.Status)

	require.NoError(t, f.m.EndGame(sessionID))
}

func TestPromptTimerFires(t *testing.T) {
	f := newFixture(t)
	sessionID, ids := f.setupSession(t, 1)

	fired := make(chan Effect, 1)
	f.m.EffectFn = func(eff Effect) {
		if eff.Type == EffectPromptExpired {
			fired <- eff
		}
	}

	require.NoError(t, f.m.StartPromptTimer(sessionID, ids[0], 10*time.Millisecond))
	select {
	case eff := <-fired:
		assert.Equal(t, ids[0], eff.PlayerID)
	case <-time.After(time.Second):
		t.Fatal("prompt timer never fired")
	}
}

func TestPromptTimerCancel(t *testing.T) {
	f := newFixture(t)
	sessionID, ids := f.setupSession(t, 1)

	fired := make(chan Effect, 1)
	f.m.EffectFn = func(eff Effect) {
		if eff.Type == EffectPromptExpired {
			fired <- eff
		}
	}

	require.NoError(t, f.m.StartPromptTimer(sessionID, ids[0], 50*time.Millisecond))
	assert.True(t, f.m.CancelPromptTimer(sessionID))
	assert.False(t, f.m.CancelPromptTimer(sessionID), "second cancel finds no timer")

	select {
	case <-fired:
		t.Fatal("cancelled timer fired")
	case <-time.After(150 * time.Millisecond):
	}
}
