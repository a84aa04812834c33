package lichess

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/park285/cheese-lichess-bot/internal/domain"
)

var ErrInvalidEvent = errors.New("invalid lichess event")

const (
	TypeChallenge = "challenge"
	TypeGameStart = "gameStart"
	TypeGameFull  = "gameFull"
	TypeGameState = "gameState"
)

// Event is one decoded stream line. The concrete types are Challenge,
// GameStart, GameFull and GameState.
type Event interface {
	EventType() string
}

type Player struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Title   string `json:"title,omitempty"`
	AILevel int    `json:"aiLevel,omitempty"`
}

type Challenge struct {
	ID         string
	Challenger Player
	Variant    string
	Speed      string
	Rated      bool
}

type GameStart struct {
	GameID string
	Color  domain.Color
}

type GameState struct {
	Moves  string
	Status domain.GameStatus
	Winner string
}

type GameFull struct {
	ID         string
	White      Player
	Black      Player
	InitialFEN string
	State      GameState
}

func (Challenge) EventType() string { return TypeChallenge }
func (GameStart) EventType() string { return TypeGameStart }
func (GameFull) EventType() string  { return TypeGameFull }
func (GameState) EventType() string { return TypeGameState }

type wireEvent struct {
	Type      string         `json:"type"`
	Challenge *wireChallenge `json:"challenge"`
	Game      *wireGame      `json:"game"`
	ID        string         `json:"id"`
	White     Player         `json:"white"`
	Black     Player         `json:"black"`
	Initial   string         `json:"initialFen"`
	State     *wireGameState `json:"state"`
	Moves     string         `json:"moves"`
	Status    string         `json:"status"`
	Winner    string         `json:"winner"`
}

type wireChallenge struct {
	ID         string `json:"id"`
	Challenger Player `json:"challenger"`
	Variant    struct {
		Key string `json:"key"`
	} `json:"variant"`
	Speed string `json:"speed"`
	Rated bool   `json:"rated"`
}

type wireGame struct {
	ID     string `json:"id"`
	GameID string `json:"gameId"`
	Color  string `json:"color"`
}

type wireGameState struct {
	Moves  string `json:"moves"`
	Status string `json:"status"`
	Winner string `json:"winner"`
}

// DecodeEvent parses one ndjson line. Unknown types return (nil, nil).
func DecodeEvent(line []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(line, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	switch w.Type {
	case TypeChallenge:
		if w.Challenge == nil || strings.TrimSpace(w.Challenge.ID) == "" {
			return nil, fmt.Errorf("%w: challenge without id", ErrInvalidEvent)
		}
		return Challenge{
			ID:         w.Challenge.ID,
			Challenger: w.Challenge.Challenger,
			Variant:    w.Challenge.Variant.Key,
			Speed:      w.Challenge.Speed,
			Rated:      w.Challenge.Rated,
		}, nil
	case TypeGameStart:
		if w.Game == nil {
			return nil, fmt.Errorf("%w: gameStart without game", ErrInvalidEvent)
		}
		id := strings.TrimSpace(w.Game.GameID)
		if id == "" {
			id = strings.TrimSpace(w.Game.ID)
		}
		if id == "" {
			return nil, fmt.Errorf("%w: gameStart without id", ErrInvalidEvent)
		}
		return GameStart{GameID: id, Color: domain.Color(w.Game.Color)}, nil
	case TypeGameFull:
		if w.State == nil {
			return nil, fmt.Errorf("%w: gameFull without state", ErrInvalidEvent)
		}
		return GameFull{
			ID:         w.ID,
			White:      w.White,
			Black:      w.Black,
			InitialFEN: w.Initial,
			State:      stateFromWire(*w.State),
		}, nil
	case TypeGameState:
		return stateFromWire(wireGameState{Moves: w.Moves, Status: w.Status, Winner: w.Winner}), nil
	default:
		return nil, nil
	}
}

func stateFromWire(w wireGameState) GameState {
	return GameState{
		Moves:  strings.TrimSpace(w.Moves),
		Status: domain.GameStatus(strings.TrimSpace(w.Status)),
		Winner: w.Winner,
	}
}
