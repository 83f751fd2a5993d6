// Package ws is the thin websocket transport in front of the session
// engine. It authenticates a player token, decodes game actions and
// writes back the engine's declarative result objects. No game state
// lives here.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/playcallout/callout/internal/auth"
	"github.com/playcallout/callout/internal/game"
	"github.com/playcallout/callout/internal/models"
)

// Server upgrades connections and pumps actions into the engine.
type Server struct {
	manager *game.Manager
	secret  []byte
	log     *logrus.Logger
}

// NewServer creates the websocket front end.
func NewServer(manager *game.Manager, secret []byte, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{manager: manager, secret: secret, log: log}
}

// codeUnknownAction is the transport-level code for action types the
// dispatcher does not recognize. Engine failures carry engine codes.
const codeUnknownAction = "UNKNOWN_ACTION"

// response is the declarative result object written back for every
// action; the client renders it, the engine never cares.
type response struct {
	Success   bool        `json:"success"`
	Error     string      `json:"error,omitempty"`
	ErrorCode string      `json:"errorCode,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

func okResponse(data interface{}) response {
	return response{Success: true, Data: data}
}

func errResponse(err error) response {
	return response{
		Success:   false,
		Error:     err.Error(),
		ErrorCode: string(game.CodeOf(err)),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket accept failed")
		return
	}

	playerID, err := auth.VerifyToken(s.secret, r.URL.Query().Get("token"))
	if err != nil {
		s.log.WithError(err).Info("rejecting unauthenticated connection")
		conn.Close(websocket.StatusPolicyViolation, "invalid token")
		return
	}

	s.log.WithField("player", playerID).Info("player connected")
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	ctx := r.Context()
	for {
		var action models.GameAction
		if err := wsjson.Read(ctx, conn, &action); err != nil {
			s.log.WithField("player", playerID).Debug("connection closed")
			return
		}
		resp := s.dispatch(ctx, playerID, action)
		writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := wsjson.Write(writeCtx, conn, resp)
		cancel()
		if err != nil {
			s.log.WithField("player", playerID).WithError(err).Warn("response write failed")
			return
		}
	}
}

// dispatch routes one decoded action into the engine.
func (s *Server) dispatch(ctx context.Context, playerID uuid.UUID, action models.GameAction) response {
	switch action.ActionType {
	case "create_session":
		name, _ := payloadString(action.Payload, "displayName")
		session, err := s.manager.CreateSession(playerID, name)
		if err != nil {
			return errResponse(err)
		}
		return okResponse(session)

	case "join_session":
		sessionID, ok := payloadUUID(action.Payload, "sessionId")
		if !ok {
			return badPayload("sessionId")
		}
		name, _ := payloadString(action.Payload, "displayName")
		if _, err := s.manager.InitializePlayer(sessionID, playerID, name); err != nil {
			return errResponse(err)
		}
		if err := s.manager.JoinSession(sessionID, playerID); err != nil {
			return errResponse(err)
		}
		return okResponse(nil)

	case "initialize_turn_order":
		sessionID, ok := payloadUUID(action.Payload, "sessionId")
		if !ok {
			return badPayload("sessionId")
		}
		order, ok := payloadUUIDList(action.Payload, "players")
		if !ok {
			return badPayload("players")
		}
		if err := s.manager.InitializeTurnOrder(sessionID, order); err != nil {
			return errResponse(err)
		}
		return okResponse(nil)

	case "record_spin":
		sessionID, ok := payloadUUID(action.Payload, "sessionId")
		if !ok {
			return badPayload("sessionId")
		}
		return okResponse(map[string]bool{"recorded": s.manager.RecordPlayerSpin(sessionID, playerID)})

	case "next_turn":
		sessionID, ok := payloadUUID(action.Payload, "sessionId")
		if !ok {
			return badPayload("sessionId")
		}
		snap, err := s.manager.NextTurn(sessionID)
		if err != nil {
			return errResponse(err)
		}
		return okResponse(snap)

	case "card_drawn":
		sessionID, ok := payloadUUID(action.Payload, "sessionId")
		if !ok {
			return badPayload("sessionId")
		}
		card, ok := payloadCard(action.Payload, "card")
		if !ok {
			return badPayload("card")
		}
		rule, err := s.manager.HandleCardDrawn(sessionID, playerID, card)
		if err != nil {
			return errResponse(err)
		}
		return okResponse(rule)

	case "initiate_callout":
		sessionID, ok := payloadUUID(action.Payload, "sessionId")
		if !ok {
			return badPayload("sessionId")
		}
		accusedID, ok := payloadUUID(action.Payload, "accusedId")
		if !ok {
			return badPayload("accusedId")
		}
		reason, _ := payloadString(action.Payload, "rule")
		callout, err := s.manager.InitiateCallout(sessionID, playerID, accusedID, reason)
		if err != nil {
			return errResponse(err)
		}
		return okResponse(callout)

	case "adjudicate_callout":
		sessionID, ok := payloadUUID(action.Payload, "sessionId")
		if !ok {
			return badPayload("sessionId")
		}
		isValid, ok := payloadBool(action.Payload, "isValid")
		if !ok {
			return badPayload("isValid")
		}
		result, err := s.manager.AdjudicateCallout(sessionID, playerID, isValid)
		if err != nil {
			return errResponse(err)
		}
		return okResponse(result)

	case "transfer_card":
		sessionID, ok := payloadUUID(action.Payload, "sessionId")
		if !ok {
			return badPayload("sessionId")
		}
		toID, ok := payloadUUID(action.Payload, "toId")
		if !ok {
			return badPayload("toId")
		}
		cardID, ok := payloadUUID(action.Payload, "cardId")
		if !ok {
			return badPayload("cardId")
		}
		if err := s.manager.TransferCard(sessionID, playerID, toID, cardID); err != nil {
			return errResponse(err)
		}
		return okResponse(nil)

	case "swap_cards":
		sessionID, ok := payloadUUID(action.Payload, "sessionId")
		if !ok {
			return badPayload("sessionId")
		}
		cardID, ok := payloadUUID(action.Payload, "cardId")
		if !ok {
			return badPayload("cardId")
		}
		targetID, ok := payloadUUID(action.Payload, "targetId")
		if !ok {
			return badPayload("targetId")
		}
		targetCardID, ok := payloadUUID(action.Payload, "targetCardId")
		if !ok {
			return badPayload("targetCardId")
		}
		if err := s.manager.SwapCards(sessionID, playerID, cardID, targetID, targetCardID); err != nil {
			return errResponse(err)
		}
		return okResponse(nil)

	case "clone_card":
		sessionID, ok := payloadUUID(action.Payload, "sessionId")
		if !ok {
			return badPayload("sessionId")
		}
		targetID, ok := payloadUUID(action.Payload, "targetId")
		if !ok {
			return badPayload("targetId")
		}
		targetCardID, ok := payloadUUID(action.Payload, "targetCardId")
		if !ok {
			return badPayload("targetCardId")
		}
		clone, err := s.manager.CloneCard(sessionID, playerID, targetID, targetCardID)
		if err != nil {
			return errResponse(err)
		}
		return okResponse(clone)

	case "flip_card":
		sessionID, ok := payloadUUID(action.Payload, "sessionId")
		if !ok {
			return badPayload("sessionId")
		}
		cardID, ok := payloadUUID(action.Payload, "cardId")
		if !ok {
			return badPayload("cardId")
		}
		card, err := s.manager.FlipCard(sessionID, playerID, cardID)
		if err != nil {
			return errResponse(err)
		}
		return okResponse(card)

	case "assign_referee":
		sessionID, ok := payloadUUID(action.Payload, "sessionId")
		if !ok {
			return badPayload("sessionId")
		}
		card, _ := payloadCard(action.Payload, "card")
		referee, err := s.manager.AssignRefereeCard(ctx, sessionID, card)
		if err != nil {
			return errResponse(err)
		}
		return okResponse(referee)

	case "swap_referee":
		sessionID, ok := payloadUUID(action.Payload, "sessionId")
		if !ok {
			return badPayload("sessionId")
		}
		newRefereeID, _ := payloadUUID(action.Payload, "newRefereeId")
		referee, err := s.manager.SwapRefereeRole(sessionID, playerID, newRefereeID)
		if err != nil {
			return errResponse(err)
		}
		return okResponse(referee)

	case "leave_session":
		sessionID, ok := payloadUUID(action.Payload, "sessionId")
		if !ok {
			return badPayload("sessionId")
		}
		if err := s.manager.TrackPlayerStatus(sessionID, playerID, models.PlayerStatusLeft); err != nil {
			return errResponse(err)
		}
		s.manager.CleanupEmptySession(sessionID)
		return okResponse(nil)

	case "disconnect":
		sessionID, ok := payloadUUID(action.Payload, "sessionId")
		if !ok {
			return badPayload("sessionId")
		}
		if err := s.manager.HandlePlayerDisconnect(sessionID, playerID); err != nil {
			return errResponse(err)
		}
		return okResponse(nil)

	case "end_game":
		sessionID, ok := payloadUUID(action.Payload, "sessionId")
		if !ok {
			return badPayload("sessionId")
		}
		if err := s.manager.EndGame(sessionID); err != nil {
			return errResponse(err)
		}
		return okResponse(nil)

	default:
		return response{
			Success:   false,
			Error:     "unknown action type " + action.ActionType,
			ErrorCode: codeUnknownAction,
		}
	}
}
