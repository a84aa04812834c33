package session

import "github.com/park285/cheese-lichess-bot/internal/domain"

type State int

const (
	AwaitingColor State = iota
	Active
	Ended
)

func (s State) String() string {
	switch s {
	case AwaitingColor:
		return "awaiting_color"
	case Active:
		return "active"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// game is the local state of one Run.
type game struct {
	id    string
	runID string
	state State

	color      domain.Color
	opponent   string
	initialFEN string
	moves      string
	status     domain.GameStatus

	submitted int
	greeted   bool
}
