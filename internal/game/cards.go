package game

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/playcallout/callout/internal/models"
	"github.com/playcallout/callout/internal/rules"
)

// CloneChainLimit is the maximum clone-of-clone depth. A card at depth
// CloneChainLimit cannot be cloned again.
const CloneChainLimit = 3

// Rule-text keywords that block the corresponding card action. The
// match is a case-insensitive substring probe, per contract.
const (
	keywordBlockClone = "cannot clone"
	keywordBlockFlip  = "cannot flip"
	keywordBlockSwap  = "cannot swap"
)

func containsFold(text, keyword string) bool {
	return strings.Contains(strings.ToLower(text), keyword)
}

// TransferCard atomically moves a card between two hands. Blocked while
// a callout is pending so nobody can shed evidence mid-dispute.
func (m *Manager) TransferCard(sessionID, fromID, toID, cardID uuid.UUID) error {
	gs, err := m.session(sessionID)
	if err != nil {
		return err
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.pendingCallout() != nil {
		return newError(CodeCalloutPending, "cards cannot move while a callout awaits a decision")
	}
	from, ferr := m.getPlayer(fromID)
	if ferr != nil {
		return ferr
	}
	to, terr := m.getPlayer(toID)
	if terr != nil {
		return newError(CodeTargetNotFound, "target player %s not found", toID)
	}

	card, idx := from.FindCard(cardID)
	if idx == -1 {
		return newError(CodeCardNotFound, "card %s is not in player %s's hand", cardID, fromID)
	}
	from.Hand = append(from.Hand[:idx], from.Hand[idx+1:]...)
	to.Hand = append(to.Hand, card)

	m.logAction(gs, fromID, "card_transferred", map[string]interface{}{
		"card": cardID.String(),
		"to":   toID.String(),
	})
	m.emitEffect(Effect{Type: EffectCardsMoved, SessionID: sessionID, PlayerID: fromID, TargetID: toID, CardID: cardID})
	m.notifyCardTransfer(gs.state.ID, fromID, toID, card)
	m.mirrorHands(sessionID, from, to)
	return nil
}

// SwapCards exchanges one card from each of two hands. Subject to the
// pending-callout block and to active "cannot swap" rules.
func (m *Manager) SwapCards(sessionID, playerAID, cardAID, playerBID, cardBID uuid.UUID) error {
	gs, err := m.session(sessionID)
	if err != nil {
		return err
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.pendingCallout() != nil {
		return newError(CodeCalloutPending, "cards cannot move while a callout awaits a decision")
	}
	if m.activeRuleBlocks(sessionID, keywordBlockSwap) {
		return newError(CodeSwapBlocked, "an active rule forbids swapping cards")
	}
	a, aerr := m.getPlayer(playerAID)
	if aerr != nil {
		return aerr
	}
	b, berr := m.getPlayer(playerBID)
	if berr != nil {
		return newError(CodeTargetNotFound, "target player %s not found", playerBID)
	}

	cardA, idxA := a.FindCard(cardAID)
	if idxA == -1 {
		return newError(CodeCardNotFound, "card %s is not in player %s's hand", cardAID, playerAID)
	}
	cardB, idxB := b.FindCard(cardBID)
	if idxB == -1 {
		return newError(CodeCardNotFound, "card %s is not in player %s's hand", cardBID, playerBID)
	}
	a.Hand[idxA], b.Hand[idxB] = cardB, cardA

	m.logAction(gs, playerAID, "cards_swapped", map[string]interface{}{
		"cardA": cardAID.String(),
		"cardB": cardBID.String(),
		"with":  playerBID.String(),
	})
	m.emitEffect(Effect{Type: EffectCardsMoved, SessionID: sessionID, PlayerID: playerAID, TargetID: playerBID, CardID: cardAID})
	m.notifyCardTransfer(gs.state.ID, playerAID, playerBID, cardA)
	m.notifyCardTransfer(gs.state.ID, playerBID, playerAID, cardB)
	m.mirrorHands(sessionID, a, b)
	return nil
}

// cloneDepthLocked walks cloneSource links from the card back toward its
// non-clone original. A dangling source ends the walk. Assumes the
// session lock is held.
func (m *Manager) cloneDepthLocked(gs *GameSession, card *models.Card) int {
	depth := 0
	cur := card
	for cur != nil && cur.IsClone && cur.CloneSource != nil {
		depth++
		if depth > CloneChainLimit {
			break
		}
		cur = m.findCardInSessionLocked(gs, cur.CloneSource.CardID)
	}
	return depth
}

// findCardInSessionLocked searches every member's hand for a card id.
func (m *Manager) findCardInSessionLocked(gs *GameSession, cardID uuid.UUID) *models.Card {
	for _, pid := range gs.state.Players {
		p, perr := m.getPlayer(pid)
		if perr != nil {
			continue
		}
		if c, idx := p.FindCard(cardID); idx != -1 {
			return c
		}
	}
	return nil
}

// holderOfCardLocked resolves which member currently holds a card.
// Clones change hands after registration, so removal paths must look
// the holder up instead of trusting the owner recorded at clone time.
func (m *Manager) holderOfCardLocked(gs *GameSession, cardID uuid.UUID) (uuid.UUID, bool) {
	for _, pid := range gs.state.Players {
		p, perr := m.getPlayer(pid)
		if perr != nil {
			continue
		}
		if _, idx := p.FindCard(cardID); idx != -1 {
			return pid, true
		}
	}
	return uuid.Nil, false
}

// CloneCard copies another player's card into the acting player's hand
// as a new entity registered in the clone map. Clone chains deeper than
// CloneChainLimit are rejected.
func (m *Manager) CloneCard(sessionID, playerID, targetPlayerID, targetCardID uuid.UUID) (*models.Card, error) {
	gs, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	if m.activeRuleBlocks(sessionID, keywordBlockClone) {
		return nil, newError(CodeCloneBlocked, "an active rule forbids cloning cards")
	}
	actor, perr := m.getPlayer(playerID)
	if perr != nil {
		return nil, perr
	}
	target, terr := m.getPlayer(targetPlayerID)
	if terr != nil {
		return nil, newError(CodeTargetNotFound, "target player %s not found", targetPlayerID)
	}

	original, idx := target.FindCard(targetCardID)
	if idx == -1 {
		return nil, newError(CodeCardNotFound, "card %s is not in player %s's hand", targetCardID, targetPlayerID)
	}
	if m.cloneDepthLocked(gs, original) >= CloneChainLimit {
		return nil, newError(CodeCloneChainLimit, "clone chains may not exceed depth %d", CloneChainLimit)
	}

	clone := &models.Card{
		ID:          uuid.New(),
		Type:        original.Type,
		FrontRule:   original.FrontRule,
		BackRule:    original.BackRule,
		CurrentSide: original.CurrentSide,
		IsFlipped:   original.IsFlipped,
		IsClone:     true,
		CloneSource: &models.CloneSource{
			CardID:  original.ID,
			OwnerID: targetPlayerID,
		},
	}
	actor.Hand = append(actor.Hand, clone)
	gs.cloneMap[original.ID] = append(gs.cloneMap[original.ID], cloneRef{OwnerID: playerID, CloneID: clone.ID})

	m.logAction(gs, playerID, "card_cloned", map[string]interface{}{
		"source": original.ID.String(),
		"clone":  clone.ID.String(),
		"owner":  targetPlayerID.String(),
	})
	m.emitEffect(Effect{Type: EffectCardsMoved, SessionID: sessionID, PlayerID: playerID, TargetID: targetPlayerID, CardID: clone.ID})
	m.mirrorHands(sessionID, actor)
	return clone, nil
}

// FlipCard toggles a card to its other side. Prompt cards and one-sided
// cards do not flip. Clones and originals flip independently: a flip
// never touches the flipped card's source, clones or siblings.
func (m *Manager) FlipCard(sessionID, playerID, cardID uuid.UUID) (*models.Card, error) {
	gs, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	if m.activeRuleBlocks(sessionID, keywordBlockFlip) {
		return nil, newError(CodeFlipBlocked, "an active rule forbids flipping cards")
	}
	p, perr := m.getPlayer(playerID)
	if perr != nil {
		return nil, perr
	}
	card, idx := p.FindCard(cardID)
	if idx == -1 {
		return nil, newError(CodeCardNotFound, "card %s is not in player %s's hand", cardID, playerID)
	}
	if card.Type == models.CardTypePrompt || !card.HasBackSide() {
		return nil, newError(CodeCardNotFlippable, "card %s has no alternate side to flip to", cardID)
	}

	if card.CurrentSide == models.CardSideFront {
		card.CurrentSide = models.CardSideBack
	} else {
		card.CurrentSide = models.CardSideFront
	}
	card.IsFlipped = !card.IsFlipped

	m.logAction(gs, playerID, "card_flipped", map[string]interface{}{
		"card": cardID.String(),
		"side": string(card.CurrentSide),
	})
	m.emitEffect(Effect{Type: EffectCardsMoved, SessionID: sessionID, PlayerID: playerID, CardID: cardID, Rule: string(card.CurrentSide)})
	m.mirrorHands(sessionID, p)
	return card, nil
}

// RemoveCardFromPlayer takes a card out of play. Removal cascades to all
// registered clones of the card; removing a clone detaches it from its
// source's clone list, garbage-collecting empty entries.
func (m *Manager) RemoveCardFromPlayer(sessionID, playerID, cardID uuid.UUID) error {
	gs, err := m.session(sessionID)
	if err != nil {
		return err
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()
	return m.removeCardLocked(gs, playerID, cardID)
}

func (m *Manager) removeCardLocked(gs *GameSession, playerID, cardID uuid.UUID) error {
	p, perr := m.getPlayer(playerID)
	if perr != nil {
		return perr
	}
	card, idx := p.FindCard(cardID)
	if idx == -1 {
		return newError(CodeCardNotFound, "card %s is not in player %s's hand", cardID, playerID)
	}
	p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)

	// Cascade to registered clones before clearing the entry.
	if clones, ok := gs.cloneMap[cardID]; ok {
		delete(gs.cloneMap, cardID)
		for _, ref := range clones {
			holderID, held := m.holderOfCardLocked(gs, ref.CloneID)
			if !held {
				m.log.WithFields(logrus.Fields{
					"session": gs.state.ID,
					"clone":   ref.CloneID,
				}).Warn("registered clone no longer held by any member")
				continue
			}
			if rerr := m.removeCardLocked(gs, holderID, ref.CloneID); rerr != nil {
				m.log.WithFields(logrus.Fields{
					"session": gs.state.ID,
					"clone":   ref.CloneID,
				}).WithError(rerr).Warn("clone cascade removal skipped")
			}
		}
	}

	// Detach a removed clone from its source's list.
	if card.IsClone && card.CloneSource != nil {
		srcID := card.CloneSource.CardID
		refs := gs.cloneMap[srcID]
		for i, ref := range refs {
			if ref.CloneID == cardID {
				refs = append(refs[:i], refs[i+1:]...)
				break
			}
		}
		if len(refs) == 0 {
			delete(gs.cloneMap, srcID)
		} else {
			gs.cloneMap[srcID] = refs
		}
	}

	m.logAction(gs, playerID, "card_removed", map[string]interface{}{"card": cardID.String()})
	m.emitEffect(Effect{Type: EffectCardsMoved, SessionID: gs.state.ID, PlayerID: playerID, CardID: cardID})
	m.mirrorHands(gs.state.ID, p)
	return nil
}

// HandleCardDrawn forwards a drawn card's consequence to the rule
// engine and surfaces the activated rule, if any. Rule-engine failures
// are logged and swallowed; the draw itself already happened.
func (m *Manager) HandleCardDrawn(sessionID, playerID uuid.UUID, card *models.Card) (*rules.ActiveRule, error) {
	gs, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	if !gs.state.HasPlayer(playerID) {
		return nil, newError(CodePlayerNotFound, "player %s is not in session %s", playerID, sessionID)
	}
	turnNumber := 0
	if gs.turn != nil {
		turnNumber = gs.turn.turnNumber
	}

	if m.rules == nil {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()
	rule, rerr := m.rules.HandleCardDrawn(ctx, sessionID, playerID, card, rules.DrawContext{TurnNumber: turnNumber})
	if rerr != nil {
		m.log.WithFields(logrus.Fields{
			"session": sessionID,
			"player":  playerID,
		}).WithError(rerr).Warn("rule engine rejected drawn card")
		return nil, nil
	}
	if rule != nil {
		m.logAction(gs, playerID, "rule_activated", map[string]interface{}{"rule": rule.RuleText})
		m.emitEffect(Effect{Type: EffectRuleActivated, SessionID: sessionID, PlayerID: playerID, CardID: card.ID, Rule: rule.RuleText})
	}
	return rule, nil
}

// notifyCardTransfer tells the rule engine a card changed hands.
// Best-effort.
func (m *Manager) notifyCardTransfer(sessionID, fromID, toID uuid.UUID, card *models.Card) {
	if m.rules == nil {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		if err := m.rules.HandleCardTransfer(ctx, sessionID, fromID, toID, card); err != nil {
			m.log.WithField("session", sessionID).WithError(err).Warn("rule engine transfer notification failed")
		}
	}()
}

// mirrorHands pushes updated hands to the persistence mirror.
func (m *Manager) mirrorHands(sessionID uuid.UUID, players ...*models.Player) {
	for _, p := range players {
		pid := p.ID
		hand := make([]*models.Card, len(p.Hand))
		copy(hand, p.Hand)
		m.mirrorWrite(sessionID, "update_player_hand", func(ctx context.Context) error {
			return m.mirror.UpdatePlayerHand(ctx, sessionID, pid, hand)
		})
	}
}
