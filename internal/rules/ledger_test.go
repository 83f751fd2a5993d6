package rules

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playcallout/callout/internal/models"
)

func card(t models.CardType, text string) *models.Card {
	return &models.Card{
		ID:          uuid.New(),
		Type:        t,
		FrontRule:   text,
		CurrentSide: models.CardSideFront,
	}
}

func TestRuleCardBindsToPlayer(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	sessionID, playerID := uuid.New(), uuid.New()

	rule, err := l.HandleCardDrawn(ctx, sessionID, playerID, card(models.CardTypeRule, "no pointing"), DrawContext{TurnNumber: 2})
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, playerID, rule.PlayerID)
	assert.Equal(t, 2, rule.ActivatedTurn)
	assert.Zero(t, rule.ExpiresAfterTurn, "rule cards have no turn expiry")

	active, err := l.GetActiveRules(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "no pointing", active[0].RuleText)
}

func TestModifierCardIsSessionWideAndExpires(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	sessionID := uuid.New()

	rule, err := l.HandleCardDrawn(ctx, sessionID, uuid.New(), card(models.CardTypeModifier, "double stakes"), DrawContext{TurnNumber: 1})
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, uuid.Nil, rule.PlayerID, "modifiers bind to the session")
	assert.Equal(t, 1+ModifierTurnLifetime, rule.ExpiresAfterTurn)

	// Still active on the expiry turn itself.
	require.NoError(t, l.HandleTurnProgression(ctx, sessionID, rule.ExpiresAfterTurn))
	active, _ := l.GetActiveRules(ctx, sessionID)
	assert.Len(t, active, 1)

	// Retired once the expiry turn has passed.
	require.NoError(t, l.HandleTurnProgression(ctx, sessionID, rule.ExpiresAfterTurn+1))
	active, _ = l.GetActiveRules(ctx, sessionID)
	assert.Empty(t, active)
}

func TestNonRuleCardsActivateNothing(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	sessionID := uuid.New()

	for _, ct := range []models.CardType{models.CardTypePrompt, models.CardTypeAction, models.CardTypeClone, models.CardTypeFlip, models.CardTypeSwap} {
		rule, err := l.HandleCardDrawn(ctx, sessionID, uuid.New(), card(ct, "whatever"), DrawContext{TurnNumber: 1})
		require.NoError(t, err)
		assert.Nil(t, rule, "card type %s", ct)
	}
	rule, err := l.HandleCardDrawn(ctx, sessionID, uuid.New(), nil, DrawContext{})
	require.NoError(t, err)
	assert.Nil(t, rule)
}

func TestGetEffectiveRulesForPlayer(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	sessionID := uuid.New()
	alice, bob := uuid.New(), uuid.New()

	_, err := l.HandleCardDrawn(ctx, sessionID, alice, card(models.CardTypeRule, "alice whispers"), DrawContext{TurnNumber: 1})
	require.NoError(t, err)
	_, err = l.HandleCardDrawn(ctx, sessionID, bob, card(models.CardTypeRule, "bob rhymes"), DrawContext{TurnNumber: 1})
	require.NoError(t, err)
	_, err = l.HandleCardDrawn(ctx, sessionID, alice, card(models.CardTypeModifier, "everyone sings"), DrawContext{TurnNumber: 1})
	require.NoError(t, err)

	effective, err := l.GetEffectiveRulesForPlayer(ctx, sessionID, alice)
	require.NoError(t, err)
	require.Len(t, effective, 2)
	texts := []string{effective[0].RuleText, effective[1].RuleText}
	assert.Contains(t, texts, "alice whispers")
	assert.Contains(t, texts, "everyone sings")
}

func TestHandleCardTransferRebindsRule(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	sessionID := uuid.New()
	alice, bob := uuid.New(), uuid.New()

	c := card(models.CardTypeRule, "no names")
	_, err := l.HandleCardDrawn(ctx, sessionID, alice, c, DrawContext{TurnNumber: 1})
	require.NoError(t, err)

	require.NoError(t, l.HandleCardTransfer(ctx, sessionID, alice, bob, c))

	effective, err := l.GetEffectiveRulesForPlayer(ctx, sessionID, bob)
	require.NoError(t, err)
	require.Len(t, effective, 1)
	assert.Equal(t, "no names", effective[0].RuleText)

	effective, err = l.GetEffectiveRulesForPlayer(ctx, sessionID, alice)
	require.NoError(t, err)
	assert.Empty(t, effective)
}

func TestHandleGameEndClearsSession(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	sessionID := uuid.New()

	_, err := l.HandleCardDrawn(ctx, sessionID, uuid.New(), card(models.CardTypeRule, "no pointing"), DrawContext{TurnNumber: 1})
	require.NoError(t, err)

	require.NoError(t, l.HandleGameEnd(ctx, sessionID))
	active, err := l.GetActiveRules(ctx, sessionID)
	require.NoError(t, err)
	assert.Empty(t, active)
}
