package game

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/playcallout/callout/internal/models"
)

// AssignRefereeCard picks a referee uniformly at random from the active
// roster and hands them the referee card. The roster comes from the
// persistence mirror, not the local cache, so late-arriving joins are
// eligible. If no player is active the call returns (nil, nil) and
// mutates nothing. Exactly one random draw is consumed per call.
func (m *Manager) AssignRefereeCard(ctx context.Context, sessionID uuid.UUID, refereeCard *models.Card) (*models.Player, error) {
	gs, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}

	roster, rerr := m.mirror.GetPlayersInSession(ctx, sessionID)
	if rerr != nil {
		m.log.WithField("session", sessionID).WithError(rerr).Error("authoritative roster fetch failed")
		return nil, newError(CodeMirrorUnavailable, "could not fetch roster for session %s", sessionID)
	}
	var active []uuid.UUID
	for _, rec := range roster {
		if rec.Status == string(models.PlayerStatusActive) {
			active = append(active, rec.UID)
		}
	}
	if len(active) == 0 {
		return nil, nil
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	// One uniform draw selects the index.
	idx := int(m.Rand() * float64(len(active)))
	if idx >= len(active) {
		idx = len(active) - 1
	}
	selectedID := active[idx]

	selected, perr := m.getPlayer(selectedID)
	if perr != nil {
		return nil, perr
	}

	if prior := gs.state.RefereeID; prior != uuid.Nil && prior != selectedID {
		if p, pe := m.getPlayer(prior); pe == nil {
			p.HasRefereeCard = false
		}
	}

	selected.HasRefereeCard = true
	gs.state.RefereeID = selectedID
	gs.state.InitialRefereeCard = refereeCard
	if refereeCard != nil {
		if _, held := selected.FindCard(refereeCard.ID); held == -1 {
			selected.Hand = append(selected.Hand, refereeCard)
		}
	}

	m.log.WithFields(logrus.Fields{
		"session": sessionID,
		"referee": selectedID,
	}).Info("referee assigned")
	m.logAction(gs, selectedID, "referee_assigned", nil)
	m.emitEffect(Effect{Type: EffectRefereeChanged, SessionID: sessionID, PlayerID: selectedID})

	m.mirrorWrite(sessionID, "update_referee_card", func(wctx context.Context) error {
		return m.mirror.UpdateRefereeCard(wctx, sessionID, selectedID)
	})
	return selected, nil
}

// SwapRefereeRole hands the referee role from the current referee to
// another player. newRefereeID may be uuid.Nil to pick uniformly among
// the other active members. Rejected while a callout is pending so a
// referee cannot dodge a decision by handing off the role.
func (m *Manager) SwapRefereeRole(sessionID, currentRefereeID, newRefereeID uuid.UUID) (*models.Player, error) {
	gs, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.pendingCallout() != nil {
		return nil, newError(CodeCalloutPending, "cannot swap referee while a callout awaits a decision")
	}
	if gs.state.RefereeID != currentRefereeID {
		return nil, newError(CodeNotCurrentReferee, "player %s is not the current referee", currentRefereeID)
	}

	current, perr := m.getPlayer(currentRefereeID)
	if perr != nil {
		return nil, perr
	}

	if newRefereeID == uuid.Nil {
		var candidates []uuid.UUID
		for _, id := range gs.state.Players {
			if id == currentRefereeID {
				continue
			}
			if p, pe := m.getPlayer(id); pe == nil && p.Status == models.PlayerStatusActive {
				candidates = append(candidates, id)
			}
		}
		if len(candidates) == 0 {
			return nil, newError(CodeNoAvailablePlayers, "no active players available to take the referee role")
		}
		idx := int(m.Rand() * float64(len(candidates)))
		if idx >= len(candidates) {
			idx = len(candidates) - 1
		}
		newRefereeID = candidates[idx]
	} else if !gs.state.HasPlayer(newRefereeID) {
		return nil, newError(CodeTargetNotFound, "player %s is not in session %s", newRefereeID, sessionID)
	}

	next, perr := m.getPlayer(newRefereeID)
	if perr != nil {
		return nil, perr
	}

	current.HasRefereeCard = false
	next.HasRefereeCard = true
	gs.state.RefereeID = newRefereeID

	// Move the physical referee card between hands, if one was dealt.
	if rc := gs.state.InitialRefereeCard; rc != nil {
		if _, i := current.FindCard(rc.ID); i != -1 {
			current.Hand = append(current.Hand[:i], current.Hand[i+1:]...)
			next.Hand = append(next.Hand, rc)
		}
	}

	m.logAction(gs, currentRefereeID, "referee_swapped", map[string]interface{}{"to": newRefereeID.String()})
	m.emitEffect(Effect{Type: EffectRefereeChanged, SessionID: sessionID, PlayerID: newRefereeID, TargetID: currentRefereeID})

	m.mirrorWrite(sessionID, "update_referee_card", func(ctx context.Context) error {
		return m.mirror.UpdateRefereeCard(ctx, sessionID, newRefereeID)
	})
	return next, nil
}
