package models

import "github.com/google/uuid"

// CardType categorizes what a drawn card does when it enters play.
type CardType string

const (
	CardTypeRule     CardType = "rule"
	CardTypeModifier CardType = "modifier"
	CardTypePrompt   CardType = "prompt"
	CardTypeClone    CardType = "clone"
	CardTypeFlip     CardType = "flip"
	CardTypeSwap     CardType = "swap"
	CardTypeAction   CardType = "action"
)

// CardSide identifies which face of a two-sided card is up.
type CardSide string

const (
	CardSideFront CardSide = "front"
	CardSideBack  CardSide = "back"
)

// CloneSource points a clone back at the card it was copied from.
// A clone is a distinct card with its own identity; this reference is
// only used for chain-depth checks and cascade removal.
type CloneSource struct {
	CardID  uuid.UUID `json:"cardId"`
	OwnerID uuid.UUID `json:"ownerId"`
}

// Card is a single rule card in a player's hand. Rule text lives on two
// sides; only the current side is in effect.
type Card struct {
	ID          uuid.UUID    `json:"id"`
	Type        CardType     `json:"type"`
	FrontRule   string       `json:"frontRule"`
	BackRule    string       `json:"backRule,omitempty"`
	CurrentSide CardSide     `json:"currentSide"`
	IsFlipped   bool         `json:"isFlipped"`
	IsClone     bool         `json:"isClone,omitempty"`
	CloneSource *CloneSource `json:"cloneSource,omitempty"`
}

// ActiveRule returns the rule text of the side currently facing up.
func (c *Card) ActiveRule() string {
	if c.CurrentSide == CardSideBack {
		return c.BackRule
	}
	return c.FrontRule
}

// HasBackSide reports whether the card carries alternate rule text.
func (c *Card) HasBackSide() bool {
	return c.BackRule != ""
}
