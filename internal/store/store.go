// Package store defines the persistence mirror the session engine
// reports state changes to. The mirror is an at-least-once reflection of
// engine state, not a source of truth — with one exception: the roster
// returned by GetPlayersInSession is authoritative for referee
// assignment, so that late-arriving joins are visible.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/playcallout/callout/internal/models"
)

// PlayerRecord is the mirror's view of one session member.
type PlayerRecord struct {
	UID         uuid.UUID `json:"uid"`
	DisplayName string    `json:"displayName"`
	Status      string    `json:"status"`
	IsHost      bool      `json:"isHost"`
}

// Mirror receives engine state changes. All writes are fire-and-forget
// from the engine's perspective; a failed write is logged and never
// rolls back engine state.
type Mirror interface {
	CreateSession(ctx context.Context, sessionID, hostID uuid.UUID, hostName string) error
	InitializePlayer(ctx context.Context, sessionID, playerID uuid.UUID, displayName string, isHost bool) error
	UpdatePlayerStatus(ctx context.Context, sessionID, playerID uuid.UUID, status string) error
	UpdatePlayerHand(ctx context.Context, sessionID, playerID uuid.UUID, hand []*models.Card) error
	UpdateRefereeCard(ctx context.Context, sessionID, playerID uuid.UUID) error
	GetPlayersInSession(ctx context.Context, sessionID uuid.UUID) ([]PlayerRecord, error)
}
