package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/playcallout/callout/internal/models"
)

// Memory is an in-process Mirror used in tests and single-node
// deployments without a backing database.
type Memory struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]map[uuid.UUID]*PlayerRecord
	order    map[uuid.UUID][]uuid.UUID
	hands    map[uuid.UUID]map[uuid.UUID][]*models.Card
	referees map[uuid.UUID]uuid.UUID
}

// NewMemory creates an empty in-memory mirror.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[uuid.UUID]map[uuid.UUID]*PlayerRecord),
		order:    make(map[uuid.UUID][]uuid.UUID),
		hands:    make(map[uuid.UUID]map[uuid.UUID][]*models.Card),
		referees: make(map[uuid.UUID]uuid.UUID),
	}
}

func (m *Memory) CreateSession(_ context.Context, sessionID, hostID uuid.UUID, hostName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		m.sessions[sessionID] = make(map[uuid.UUID]*PlayerRecord)
		m.hands[sessionID] = make(map[uuid.UUID][]*models.Card)
	}
	return nil
}

func (m *Memory) InitializePlayer(_ context.Context, sessionID, playerID uuid.UUID, displayName string, isHost bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	members, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("mirror: session %s not found", sessionID)
	}
	if _, exists := members[playerID]; !exists {
		m.order[sessionID] = append(m.order[sessionID], playerID)
	}
	members[playerID] = &PlayerRecord{
		UID:         playerID,
		DisplayName: displayName,
		Status:      string(models.PlayerStatusActive),
		IsHost:      isHost,
	}
	return nil
}

func (m *Memory) UpdatePlayerStatus(_ context.Context, sessionID, playerID uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	members, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("mirror: session %s not found", sessionID)
	}
	rec, ok := members[playerID]
	if !ok {
		return fmt.Errorf("mirror: player %s not found in session %s", playerID, sessionID)
	}
	rec.Status = status
	return nil
}

func (m *Memory) UpdatePlayerHand(_ context.Context, sessionID, playerID uuid.UUID, hand []*models.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	hands, ok := m.hands[sessionID]
	if !ok {
		return fmt.Errorf("mirror: session %s not found", sessionID)
	}
	copied := make([]*models.Card, len(hand))
	copy(copied, hand)
	hands[playerID] = copied
	return nil
}

func (m *Memory) UpdateRefereeCard(_ context.Context, sessionID, playerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return fmt.Errorf("mirror: session %s not found", sessionID)
	}
	m.referees[sessionID] = playerID
	return nil
}

// GetPlayersInSession returns members in join order.
func (m *Memory) GetPlayersInSession(_ context.Context, sessionID uuid.UUID) ([]PlayerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	members, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("mirror: session %s not found", sessionID)
	}
	out := make([]PlayerRecord, 0, len(members))
	for _, id := range m.order[sessionID] {
		if rec, ok := members[id]; ok {
			out = append(out, *rec)
		}
	}
	return out, nil
}
