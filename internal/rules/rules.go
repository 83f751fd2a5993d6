// Package rules defines the rule-engine contract the session engine
// calls into, plus an in-memory activation ledger implementing it.
// The session engine treats activation results as opaque and only ever
// inspects RuleText.
package rules

import (
	"context"

	"github.com/google/uuid"

	"github.com/playcallout/callout/internal/models"
)

// ActiveRule is one rule currently in force in a session. PlayerID is
// uuid.Nil for session-wide rules.
type ActiveRule struct {
	ID               uuid.UUID `json:"id"`
	SessionID        uuid.UUID `json:"sessionId"`
	PlayerID         uuid.UUID `json:"playerId,omitempty"`
	CardID           uuid.UUID `json:"cardId,omitempty"`
	RuleText         string    `json:"ruleText"`
	ActivatedTurn    int       `json:"activatedTurn"`
	ExpiresAfterTurn int       `json:"expiresAfterTurn,omitempty"` // 0 = no turn-based expiry
}

// DrawContext carries the turn context under which a card was drawn.
type DrawContext struct {
	TurnNumber int
}

// Engine is the rule-tracking collaborator. Implementations own rule
// activation and expiry; the session engine only reacts to results.
type Engine interface {
	InitializeSession(ctx context.Context, sessionID uuid.UUID) error
	HandleTurnProgression(ctx context.Context, sessionID uuid.UUID, turnNumber int) error
	HandleCardDrawn(ctx context.Context, sessionID, playerID uuid.UUID, card *models.Card, dc DrawContext) (*ActiveRule, error)
	GetActiveRules(ctx context.Context, sessionID uuid.UUID) ([]ActiveRule, error)
	GetEffectiveRulesForPlayer(ctx context.Context, sessionID, playerID uuid.UUID) ([]ActiveRule, error)
	HandleCardTransfer(ctx context.Context, sessionID, fromPlayerID, toPlayerID uuid.UUID, card *models.Card) error
	HandleGameEnd(ctx context.Context, sessionID uuid.UUID) error
}
