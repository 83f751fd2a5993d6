package ws

import (
	"github.com/google/uuid"

	"github.com/playcallout/callout/internal/models"
)

// codeBadPayload is the transport-level code for requests missing a
// required payload field or carrying one of the wrong shape.
const codeBadPayload = "BAD_PAYLOAD"

func badPayload(field string) response {
	return response{
		Success:   false,
		Error:     "missing or invalid payload field " + field,
		ErrorCode: codeBadPayload,
	}
}

func payloadString(payload map[string]interface{}, key string) (string, bool) {
	v, ok := payload[key].(string)
	return v, ok
}

func payloadBool(payload map[string]interface{}, key string) (bool, bool) {
	v, ok := payload[key].(bool)
	return v, ok
}

func payloadUUID(payload map[string]interface{}, key string) (uuid.UUID, bool) {
	raw, ok := payload[key].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func payloadUUIDList(payload map[string]interface{}, key string) ([]uuid.UUID, bool) {
	raw, ok := payload[key].([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]uuid.UUID, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, false
		}
		out = append(out, id)
	}
	return out, true
}

// payloadCard decodes an inline card object. Only the fields the engine
// consumes are read; unknown fields are ignored.
func payloadCard(payload map[string]interface{}, key string) (*models.Card, bool) {
	raw, ok := payload[key].(map[string]interface{})
	if !ok {
		return nil, false
	}
	card := &models.Card{CurrentSide: models.CardSideFront}
	if s, ok := raw["id"].(string); ok {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, false
		}
		card.ID = id
	} else {
		card.ID = uuid.New()
	}
	if s, ok := raw["type"].(string); ok {
		card.Type = models.CardType(s)
	}
	if s, ok := raw["frontRule"].(string); ok {
		card.FrontRule = s
	}
	if s, ok := raw["backRule"].(string); ok {
		card.BackRule = s
	}
	return card, true
}
