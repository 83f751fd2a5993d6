package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playcallout/callout/internal/models"
)

func TestTransferCard(t *testing.T) {
	f := newFixture(t)
	sessionID, ids := f.setupSession(t, 2)

	card := ruleCard("no pointing")
	require.NoError(t, f.m.AssignPlayerHand(sessionID, ids[0], []*models.Card{card}))

	require.NoError(t, f.m.TransferCard(sessionID, ids[0], ids[1], card.ID))

	from, _ := f.m.GetPlayer(ids[0])
	to, _ := f.m.GetPlayer(ids[1])
	assert.Empty(t, from.Hand)
	require.Len(t, to.Hand, 1)
	assert.Equal(t, card.ID, to.Hand[0].ID)

	err := f.m.TransferCard(sessionID, ids[0], ids[1], card.ID)
	assert.Equal(t, CodeCardNotFound, CodeOf(err))

	err = f.m.TransferCard(sessionID, ids[1], uuid.New(), card.ID)
	assert.Equal(t, CodeTargetNotFound, CodeOf(err))
}

func TestSwapCards(t *testing.T) {
	f := newFixture(t)
	sessionID, ids := f.setupSession(t, 2)

	cardA := ruleCard("no pointing")
	cardB := ruleCard("no names")
	require.NoError(t, f.m.AssignPlayerHand(sessionID, ids[0], []*models.Card{cardA}))
	require.NoError(t, f.m.AssignPlayerHand(sessionID, ids[1], []*models.Card{cardB}))

	require.NoError(t, f.m.SwapCards(sessionID, ids[0], cardA.ID, ids[1], cardB.ID))

	a, _ := f.m.GetPlayer(ids[0])
	b, _ := f.m.GetPlayer(ids[1])
	require.Len(t, a.Hand, 1)
	require.Len(t, b.Hand, 1)
	assert.Equal(t, cardB.ID, a.Hand[0].ID)
	assert.Equal(t, cardA.ID, b.Hand[0].ID)
}

func TestCloneChainDepthLimit(t *testing.T) {
	f := newFixture(t)
	sessionID, ids := f.setupSession(t, 2)

	original := ruleCard("no pointing")
	require.NoError(t, f.m.AssignPlayerHand(sessionID, ids[0], []*models.Card{original}))

	// Depths 1 through 3 succeed; cloning a depth-3 card does not.
	c1, err := f.m.CloneCard(sessionID, ids[1], ids[0], original.ID)
	require.NoError(t, err)
	assert.True(t, c1.IsClone)
	require.NotNil(t, c1.CloneSource)
	assert.Equal(t, original.ID, c1.CloneSource.CardID)
	assert.NotEqual(t, original.ID, c1.ID, "a clone is a distinct card")

	c2, err := f.m.CloneCard(sessionID, ids[0], ids[1], c1.ID)
	require.NoError(t, err)
	c3, err := f.m.CloneCard(sessionID, ids[1], ids[0], c2.ID)
	require.NoError(t, err)

	_, err = f.m.CloneCard(sessionID, ids[0], ids[1], c3.ID)
	assert.Equal(t, CodeCloneChainLimit, CodeOf(err))

	// The original's depth is unchanged, so cloning it still works.
	_, err = f.m.CloneCard(sessionID, ids[1], ids[0], original.ID)
	require.NoError(t, err)
}

func TestFlipIndependence(t *testing.T) {
	f := newFixture(t)
	sessionID, ids := f.setupSession(t, 2)

	original := twoSidedCard("no pointing", "point at everything")
	require.NoError(t, f.m.AssignPlayerHand(sessionID, ids[0], []*models.Card{original}))

	clone, err := f.m.CloneCard(sessionID, ids[1], ids[0], original.ID)
	require.NoError(t, err)
	sibling, err := f.m.CloneCard(sessionID, ids[1], ids[0], original.ID)
	require.NoError(t, err)

	flipped, err := f.m.FlipCard(sessionID, ids[1], clone.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CardSideBack, flipped.CurrentSide)
	assert.True(t, flipped.IsFlipped)
	assert.Equal(t, "point at everything", flipped.ActiveRule())

	assert.Equal(t, models.CardSideFront, original.CurrentSide, "original untouched")
	assert.Equal(t, models.CardSideFront, sibling.CurrentSide, "sibling clone untouched")

	// Flipping the original leaves both clones where they are.
	_, err = f.m.FlipCard(sessionID, ids[0], original.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CardSideBack, original.CurrentSide)
	assert.Equal(t, models.CardSideBack, clone.CurrentSide)
	assert.Equal(t, models.CardSideFront, sibling.CurrentSide)
}

func TestFlipRejectsOneSidedAndPromptCards(t *testing.T) {
	f := newFixture(t)
	sessionID, ids := f.setupSession(t, 1)

	oneSided := ruleCard("no pointing")
	prompt := &models.Card{
		ID:          uuid.New(),
		Type:        models.CardTypePrompt,
		FrontRule:   "do ten jumping jacks",
		BackRule:    "unused",
		CurrentSide: models.CardSideFront,
	}
	require.NoError(t, f.m.AssignPlayerHand(sessionID, ids[0], []*models.Card{oneSided, prompt}))

	_, err := f.m.FlipCard(sessionID, ids[0], oneSided.ID)
	assert.Equal(t, CodeCardNotFlippable, CodeOf(err))
	_, err = f.m.FlipCard(sessionID, ids[0], prompt.ID)
	assert.Equal(t, CodeCardNotFlippable, CodeOf(err))
}

func TestActiveRuleKeywordsBlockActions(t *testing.T) {
	f := newFixture(t)
	sessionID, ids := f.setupSession(t, 2)

	cardA := twoSidedCard("no pointing", "point at everything")
	cardB := ruleCard("no names")
	require.NoError(t, f.m.AssignPlayerHand(sessionID, ids[0], []*models.Card{cardA}))
	require.NoError(t, f.m.AssignPlayerHand(sessionID, ids[1], []*models.Card{cardB}))

	// Keyword matching is a case-insensitive substring probe.
	_, err := f.m.HandleCardDrawn(sessionID, ids[0], ruleCard("You CANNOT Swap cards this round"))
	require.NoError(t, err)
	_, err = f.m.HandleCardDrawn(sessionID, ids[0], ruleCard("players cannot clone anything"))
	require.NoError(t, err)
	_, err = f.m.HandleCardDrawn(sessionID, ids[0], ruleCard("you cannot flip any card"))
	require.NoError(t, err)

	err = f.m.SwapCards(sessionID, ids[0], cardA.ID, ids[1], cardB.ID)
	assert.Equal(t, CodeSwapBlocked, CodeOf(err))
	_, err = f.m.CloneCard(sessionID, ids[1], ids[0], cardA.ID)
	assert.Equal(t, CodeCloneBlocked, CodeOf(err))
	_, err = f.m.FlipCard(sessionID, ids[0], cardA.ID)
	assert.Equal(t, CodeFlipBlocked, CodeOf(err))

	// Transfers are not keyword-gated.
	require.NoError(t, f.m.TransferCard(sessionID, ids[0], ids[1], cardA.ID))
}

func TestUnrelatedRuleTextDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	sessionID, ids := f.setupSession(t, 2)

	cardA := ruleCard("no pointing")
	require.NoError(t, f.m.AssignPlayerHand(sessionID, ids[0], []*models.Card{cardA}))

	_, err := f.m.HandleCardDrawn(sessionID, ids[0], ruleCard("you cannot speak above a whisper"))
	require.NoError(t, err)

	_, err = f.m.CloneCard(sessionID, ids[1], ids[0], cardA.ID)
	require.NoError(t, err)
}

func TestRemoveCardCascadesToClones(t *testing.T) {
	f := newFixture(t)
	sessionID, ids := f.setupSession(t, 2)

	original := ruleCard("no pointing")
	require.NoError(t, f.m.AssignPlayerHand(sessionID, ids[0], []*models.Card{original}))

	c1, err := f.m.CloneCard(sessionID, ids[1], ids[0], original.ID)
	require.NoError(t, err)
	c2, err := f.m.CloneCard(sessionID, ids[0], ids[1], c1.ID)
	require.NoError(t, err)

	require.NoError(t, f.m.RemoveCardFromPlayer(sessionID, ids[0], original.ID))

	p0, _ := f.m.GetPlayer(ids[0])
	p1, _ := f.m.GetPlayer(ids[1])
	for _, p := range []*models.Player{p0, p1} {
		for _, c := range p.Hand {
			assert.NotEqual(t, original.ID, c.ID)
			assert.NotEqual(t, c1.ID, c.ID)
			assert.NotEqual(t, c2.ID, c.ID)
		}
	}
}

func TestRemoveCardCascadesToTransferredClone(t *testing.T) {
	f := newFixture(t)
	sessionID, ids := f.setupSession(t, 3)

	original := ruleCard("no pointing")
	require.NoError(t, f.m.AssignPlayerHand(sessionID, ids[0], []*models.Card{original}))

	clone, err := f.m.CloneCard(sessionID, ids[1], ids[0], original.ID)
	require.NoError(t, err)
	require.NoError(t, f.m.TransferCard(sessionID, ids[1], ids[2], clone.ID))

	require.NoError(t, f.m.RemoveCardFromPlayer(sessionID, ids[0], original.ID))

	holder, _ := f.m.GetPlayer(ids[2])
	_, idx := holder.FindCard(clone.ID)
	assert.Equal(t, -1, idx, "registered clone must be cascade-removed even after a transfer")
}

func TestRemoveCardCascadesToSwappedClone(t *testing.T) {
	f := newFixture(t)
	sessionID, ids := f.setupSession(t, 2)

	original := ruleCard("no pointing")
	other := ruleCard("no names")
	require.NoError(t, f.m.AssignPlayerHand(sessionID, ids[0], []*models.Card{original, other}))

	clone, err := f.m.CloneCard(sessionID, ids[1], ids[0], original.ID)
	require.NoError(t, err)
	require.NoError(t, f.m.SwapCards(sessionID, ids[1], clone.ID, ids[0], other.ID))

	// The clone now sits in ids[0]'s hand alongside the original.
	require.NoError(t, f.m.RemoveCardFromPlayer(sessionID, ids[0], original.ID))

	p0, _ := f.m.GetPlayer(ids[0])
	_, idx := p0.FindCard(clone.ID)
	assert.Equal(t, -1, idx, "registered clone must be cascade-removed even after a swap")
	_, idx = p0.FindCard(original.ID)
	assert.Equal(t, -1, idx)
}

func TestRemoveCloneDetachesFromSource(t *testing.T) {
	f := newFixture(t)
	sessionID, ids := f.setupSession(t, 2)

	original := ruleCard("no pointing")
	require.NoError(t, f.m.AssignPlayerHand(sessionID, ids[0], []*models.Card{original}))

	clone, err := f.m.CloneCard(sessionID, ids[1], ids[0], original.ID)
	require.NoError(t, err)
	require.NoError(t, f.m.RemoveCardFromPlayer(sessionID, ids[1], clone.ID))

	// Removing the original afterwards must not trip over the detached
	// clone.
	require.NoError(t, f.m.RemoveCardFromPlayer(sessionID, ids[0], original.ID))

	p0, _ := f.m.GetPlayer(ids[0])
	assert.Empty(t, p0.Hand)
}

func TestHandleCardDrawnActivatesRule(t *testing.T) {
	f := newFixture(t)
	sessionID, ids := f.setupSession(t, 2)
	require.NoError(t, f.m.InitializeTurnOrder(sessionID, ids))

	drawn := ruleCard("speak only in questions")
	rule, err := f.m.HandleCardDrawn(sessionID, ids[0], drawn)
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "speak only in questions", rule.RuleText)
	assert.Equal(t, ids[0], rule.PlayerID)
	assert.Equal(t, 1, rule.ActivatedTurn)

	// Action cards activate nothing.
	none, err := f.m.HandleCardDrawn(sessionID, ids[0], &models.Card{
		ID:          uuid.New(),
		Type:        models.CardTypeAction,
		FrontRule:   "swap hands with anyone",
		CurrentSide: models.CardSideFront,
	})
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestHandleCardDrawnRequiresMembership(t *testing.T) {
	f := newFixture(t)
	sessionID, _ := f.setupSession(t, 1)

	_, err := f.m.HandleCardDrawn(sessionID, uuid.New(), ruleCard("no names"))
	assert.Equal(t, CodePlayerNotFound, CodeOf(err))
}
