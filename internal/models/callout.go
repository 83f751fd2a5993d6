package models

import (
	"time"

	"github.com/google/uuid"
)

// CalloutStatus is the state of an accusation. A callout is created
// pending and resolves to exactly one of valid or invalid.
type CalloutStatus string

const (
	CalloutPending CalloutStatus = "pending_referee_decision"
	CalloutValid   CalloutStatus = "valid"
	CalloutInvalid CalloutStatus = "invalid"
)

// RefereeDecision records who adjudicated a callout and how.
type RefereeDecision struct {
	RefereeID uuid.UUID `json:"refereeId"`
	Valid     bool      `json:"valid"`
	Timestamp time.Time `json:"timestamp"`
}

// Callout is one player's accusation that another violated an active rule.
type Callout struct {
	ID           uuid.UUID        `json:"id"`
	CallerID     uuid.UUID        `json:"callerId"`
	AccusedID    uuid.UUID        `json:"accusedPlayerId"`
	Timestamp    time.Time        `json:"timestamp"`
	Status       CalloutStatus    `json:"status"`
	RuleViolated string           `json:"ruleViolated,omitempty"`
	Decision     *RefereeDecision `json:"refereeDecision,omitempty"`
}

// Resolved reports whether the callout has received a referee decision.
func (c *Callout) Resolved() bool {
	return c.Status == CalloutValid || c.Status == CalloutInvalid
}
