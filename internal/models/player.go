package models

import "github.com/google/uuid"

// PlayerStatus tracks a player's connection to their session.
type PlayerStatus string

const (
	PlayerStatusActive       PlayerStatus = "active"
	PlayerStatusDisconnected PlayerStatus = "disconnected"
	PlayerStatusLeft         PlayerStatus = "left"
)

// Player is one participant's local record. Session membership is
// tracked on the Session, not here.
type Player struct {
	ID             uuid.UUID    `json:"id"`
	DisplayName    string       `json:"displayName"`
	Points         int          `json:"points"`
	Status         PlayerStatus `json:"status"`
	HasRefereeCard bool         `json:"hasRefereeCard"`
	Hand           []*Card      `json:"hand"`
}

// FindCard returns the card with the given id and its hand index, or
// (nil, -1) if the player does not hold it.
func (p *Player) FindCard(cardID uuid.UUID) (*Card, int) {
	for i, c := range p.Hand {
		if c.ID == cardID {
			return c, i
		}
	}
	return nil, -1
}
