package models

import "github.com/google/uuid"

// SessionStatus is the lifecycle phase of a session.
type SessionStatus string

const (
	SessionLobby      SessionStatus = "lobby"
	SessionInProgress SessionStatus = "in-progress"
	SessionCompleted  SessionStatus = "completed"
)

// Session is one instance of a running game. Players holds the ordered
// membership list and is the single source of truth for who is in the
// session; the referee card slot and callout state live here because
// exactly one session owns them at a time.
type Session struct {
	ID                 uuid.UUID     `json:"id"`
	HostID             uuid.UUID     `json:"hostId"`
	Players            []uuid.UUID   `json:"players"`
	Status             SessionStatus `json:"status"`
	RefereeID          uuid.UUID     `json:"referee"` // uuid.Nil when unassigned
	InitialRefereeCard *Card         `json:"initialRefereeCard,omitempty"`
	CurrentCallout     *Callout      `json:"currentCallout,omitempty"`
	CalloutHistory     []*Callout    `json:"calloutHistory"`
}

// HasPlayer reports whether the given player is a member of the session.
func (s *Session) HasPlayer(playerID uuid.UUID) bool {
	for _, id := range s.Players {
		if id == playerID {
			return true
		}
	}
	return false
}
