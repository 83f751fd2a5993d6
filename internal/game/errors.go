package game

import (
	"errors"
	"fmt"
)

// ErrorCode classifies engine failures for the presentation layer.
// Callers branch on the code, not the message.
type ErrorCode string

const (
	// Not-found.
	CodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	CodePlayerNotFound  ErrorCode = "PLAYER_NOT_FOUND"
	CodeCardNotFound    ErrorCode = "CARD_NOT_FOUND"
	CodeTargetNotFound  ErrorCode = "TARGET_NOT_FOUND"

	// Precondition.
	CodePlayerInactive     ErrorCode = "PLAYER_INACTIVE"
	CodeNotPlayerTurn      ErrorCode = "NOT_PLAYER_TURN"
	CodeTurnNotInitialized ErrorCode = "TURN_NOT_INITIALIZED"
	CodeDuplicateAction    ErrorCode = "DUPLICATE_ACTION"
	CodeGameNotActive      ErrorCode = "GAME_NOT_ACTIVE"

	// Policy / abuse.
	CodeSelfCallout            ErrorCode = "SELF_CALLOUT"
	CodeRefereeUntouchable     ErrorCode = "REFEREE_UNTOUCHABLE"
	CodeRefereeCannotCall      ErrorCode = "REFEREE_CANNOT_CALL"
	CodeNoReferee              ErrorCode = "NO_REFEREE"
	CodeCalloutPending         ErrorCode = "CALLOUT_PENDING"
	CodeCalloutCooldown        ErrorCode = "CALLOUT_COOLDOWN"
	CodeCalloutRateLimited     ErrorCode = "CALLOUT_RATE_LIMITED"
	CodeCloneChainLimit        ErrorCode = "CLONE_CHAIN_LIMIT_EXCEEDED"
	CodeCloneBlocked           ErrorCode = "CLONE_BLOCKED"
	CodeFlipBlocked            ErrorCode = "FLIP_BLOCKED"
	CodeSwapBlocked            ErrorCode = "SWAP_BLOCKED"
	CodeCardNotFlippable       ErrorCode = "CARD_NOT_FLIPPABLE"

	// Role.
	CodeNotReferee         ErrorCode = "NOT_REFEREE"
	CodeNotCurrentReferee  ErrorCode = "NOT_CURRENT_REFEREE"
	CodeNoAvailablePlayers ErrorCode = "NO_AVAILABLE_PLAYERS"

	// Integrity.
	CodeNoPendingCallout  ErrorCode = "NO_PENDING_CALLOUT"
	CodeRefereeCooldown   ErrorCode = "REFEREE_COOLDOWN"
	CodeMirrorUnavailable ErrorCode = "MIRROR_UNAVAILABLE"
)

// Error is the structured failure every public operation returns.
// It never wraps a panic; engine failures are always declarative.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the ErrorCode from an engine error, or "" for nil and
// foreign errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
