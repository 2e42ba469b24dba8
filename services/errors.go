package services

import "errors"

// Error taxonomy for the dispatch boundary. Handlers and the hub classify
// with errors.Is; validation failures never mutate state and are reported
// only to the acting participant.
var (
	ErrNotFound               = errors.New("not found")
	ErrForbidden              = errors.New("not a participant of this game")
	ErrInvalidTurn            = errors.New("not your turn")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInsufficientFunds      = errors.New("not enough coins")
	ErrInvalidStateTransition = errors.New("action not allowed in current game status")
	ErrGameFinished           = errors.New("game already finished")
)
