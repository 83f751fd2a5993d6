package game

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/playcallout/callout/internal/models"
)

// Callout throttling parameters. Cooldowns are wall-clock deltas checked
// lazily on the next relevant call, never scheduled callbacks.
const (
	// CalloutCooldown is the minimum gap between two callouts by the
	// same caller.
	CalloutCooldown = 30 * time.Second
	// CalloutRateWindow and CalloutRateMax bound callout volume: at most
	// CalloutRateMax callouts per caller inside any trailing window.
	CalloutRateWindow = 60 * time.Second
	CalloutRateMax    = 3
	// CalloutLedgerSize is how many recent callouts are retained per
	// caller for rate accounting.
	CalloutLedgerSize = 10
	// RefereeDecisionCooldown is the minimum gap between two decisions
	// by the same referee.
	RefereeDecisionCooldown = 5 * time.Second
)

// AdjudicationResult reports the outcome of a referee decision.
type AdjudicationResult struct {
	Callout           *models.Callout `json:"callout"`
	PointsTransferred int             `json:"pointsTransferred"`
	CallerPoints      int             `json:"callerPoints"`
	AccusedPoints     int             `json:"accusedPoints"`
}

// InitiateCallout validates and records an accusation. Validations run
// in a fixed order and the first failure wins with no partial effects;
// the ledger is only written on success.
func (m *Manager) InitiateCallout(sessionID, callerID, accusedID uuid.UUID, ruleViolated string) (*models.Callout, error) {
	gs, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	if !gs.state.HasPlayer(callerID) {
		return nil, newError(CodePlayerNotFound, "caller %s is not in session %s", callerID, sessionID)
	}
	if !gs.state.HasPlayer(accusedID) {
		return nil, newError(CodeTargetNotFound, "accused %s is not in session %s", accusedID, sessionID)
	}
	if callerID == accusedID {
		return nil, newError(CodeSelfCallout, "you cannot call out yourself")
	}
	if accusedID == gs.state.RefereeID {
		return nil, newError(CodeRefereeUntouchable, "the referee cannot be called out")
	}
	if callerID == gs.state.RefereeID {
		return nil, newError(CodeRefereeCannotCall, "the referee cannot initiate callouts")
	}
	if gs.state.RefereeID == uuid.Nil {
		return nil, newError(CodeNoReferee, "no referee is assigned, callouts are closed")
	}
	if gs.pendingCallout() != nil {
		return nil, newError(CodeCalloutPending, "another callout is already awaiting a decision")
	}

	now := m.Now()
	if last, ok := gs.lastCalloutAt[callerID]; ok {
		if elapsed := now.Sub(last); elapsed < CalloutCooldown {
			remaining := int(math.Ceil((CalloutCooldown - elapsed).Seconds()))
			return nil, newError(CodeCalloutCooldown, "you must wait %d seconds before calling out again", remaining)
		}
	}
	recent := 0
	for _, ts := range gs.recentCallouts[callerID] {
		if now.Sub(ts) < CalloutRateWindow {
			recent++
		}
	}
	if recent >= CalloutRateMax {
		return nil, newError(CodeCalloutRateLimited, "no more than %d callouts per %d seconds", CalloutRateMax, int(CalloutRateWindow.Seconds()))
	}

	// All validations passed; record the callout.
	gs.lastCalloutAt[callerID] = now
	ledger := append(gs.recentCallouts[callerID], now)
	if len(ledger) > CalloutLedgerSize {
		ledger = ledger[len(ledger)-CalloutLedgerSize:]
	}
	gs.recentCallouts[callerID] = ledger

	callout := &models.Callout{
		ID:           uuid.New(),
		CallerID:     callerID,
		AccusedID:    accusedID,
		Timestamp:    now,
		Status:       models.CalloutPending,
		RuleViolated: ruleViolated,
	}
	gs.state.CurrentCallout = callout
	gs.state.CalloutHistory = append(gs.state.CalloutHistory, callout)

	m.log.WithFields(logrus.Fields{
		"session": sessionID,
		"caller":  callerID,
		"accused": accusedID,
	}).Info("callout initiated")
	m.logAction(gs, callerID, "callout_initiated", map[string]interface{}{
		"accused": accusedID.String(),
		"rule":    ruleViolated,
	})
	m.emitEffect(Effect{Type: EffectCalloutInitiated, SessionID: sessionID, PlayerID: callerID, TargetID: accusedID, Rule: ruleViolated})
	return callout, nil
}

// AdjudicateCallout resolves the pending callout. Only the session's
// current referee may decide, at most once per RefereeDecisionCooldown.
// A valid callout transfers exactly one point from the accused to the
// caller, clamped so the accused never goes negative.
func (m *Manager) AdjudicateCallout(sessionID, refereeID uuid.UUID, isValid bool) (*AdjudicationResult, error) {
	gs, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	if refereeID != gs.state.RefereeID {
		return nil, newError(CodeNotReferee, "player %s is not the session referee", refereeID)
	}
	now := m.Now()
	if last, ok := gs.lastDecisionAt[refereeID]; ok {
		if elapsed := now.Sub(last); elapsed < RefereeDecisionCooldown {
			remaining := int(math.Ceil((RefereeDecisionCooldown - elapsed).Seconds()))
			return nil, newError(CodeRefereeCooldown, "wait %d seconds before the next decision", remaining)
		}
	}
	callout := gs.pendingCallout()
	if callout == nil {
		return nil, newError(CodeNoPendingCallout, "no callout is awaiting a decision")
	}

	caller, cerr := m.getPlayer(callout.CallerID)
	if cerr != nil {
		return nil, cerr
	}
	accused, aerr := m.getPlayer(callout.AccusedID)
	if aerr != nil {
		return nil, aerr
	}

	transferred := 0
	if isValid {
		callout.Status = models.CalloutValid
		if accused.Points > 0 {
			accused.Points--
			caller.Points++
			transferred = 1
		}
	} else {
		callout.Status = models.CalloutInvalid
	}
	callout.Decision = &models.RefereeDecision{
		RefereeID: refereeID,
		Valid:     isValid,
		Timestamp: now,
	}
	gs.lastDecisionAt[refereeID] = now
	gs.state.CurrentCallout = nil

	m.logAction(gs, refereeID, "callout_adjudicated", map[string]interface{}{
		"callout": callout.ID.String(),
		"valid":   isValid,
	})
	m.emitEffect(Effect{Type: EffectCalloutResolved, SessionID: sessionID, PlayerID: callout.CallerID, TargetID: callout.AccusedID, Rule: string(callout.Status)})
	if transferred > 0 {
		m.emitEffect(Effect{Type: EffectPointsChanged, SessionID: sessionID, PlayerID: callout.CallerID, Delta: transferred})
		m.emitEffect(Effect{Type: EffectPointsChanged, SessionID: sessionID, PlayerID: callout.AccusedID, Delta: -transferred})
	}

	return &AdjudicationResult{
		Callout:           callout,
		PointsTransferred: transferred,
		CallerPoints:      caller.Points,
		AccusedPoints:     accused.Points,
	}, nil
}
