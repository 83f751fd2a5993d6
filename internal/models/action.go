package models

// GameAction is the wire payload a client sends over the transport.
// The payload shape depends on the action type and is validated by the
// engine entry points, not here.
type GameAction struct {
	ActionType string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}
