package game

import "errors"

// Engine rejections. All of them are recoverable: a rejected action
// leaves the game state untouched and is reported only to the caller.
// The engine has no fatal error class.
var (
	ErrGameNotFound        = errors.New("game_not_found")
	ErrPlayerNotFound      = errors.New("player_not_found")
	ErrNotYourTurn         = errors.New("not_your_turn")
	ErrInvalidPhase        = errors.New("invalid_phase")
	ErrCardNotInHand       = errors.New("card_not_in_hand")
	ErrInsufficientPlayers = errors.New("insufficient_players")
	ErrCoalitionBlocked    = errors.New("coalition_blocked")
	ErrAlreadyInCoalition  = errors.New("already_in_coalition")
	ErrNoPendingProposal   = errors.New("no_pending_proposal")
	ErrInvalidTarget       = errors.New("invalid_target")
	ErrGameFull            = errors.New("game_full")
	ErrAlreadyJoined       = errors.New("already_joined")
	ErrGameFinished        = errors.New("game_finished")
	ErrUnknownAction       = errors.New("unknown_action")
)

// RejectCode maps an engine rejection to the wire-level error code sent
// back to the originating client. Unrecognized errors map to
// "internal_error" so data bugs (e.g. an unknown card id reaching the
// engine) are distinguishable from rule rejections.
func RejectCode(err error) string {
	for _, sentinel := range []error{
		ErrGameNotFound, ErrPlayerNotFound, ErrNotYourTurn, ErrInvalidPhase,
		ErrCardNotInHand, ErrInsufficientPlayers, ErrCoalitionBlocked,
		ErrAlreadyInCoalition, ErrNoPendingProposal, ErrInvalidTarget, ErrGameFull,
		ErrAlreadyJoined, ErrGameFinished, ErrUnknownAction,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal_error"
}
