package domain

import "strings"

// Color is the side the bot plays in a game.
type Color string

const (
	NoColor Color = ""
	White   Color = "white"
	Black   Color = "black"
)

// GameStatus mirrors the lichess game status token.
type GameStatus string

const (
	StatusCreated       GameStatus = "created"
	StatusStarted       GameStatus = "started"
	StatusAborted       GameStatus = "aborted"
	StatusMate          GameStatus = "mate"
	StatusResign        GameStatus = "resign"
	StatusStalemate     GameStatus = "stalemate"
	StatusTimeout       GameStatus = "timeout"
	StatusDraw          GameStatus = "draw"
	StatusOutOfTime     GameStatus = "outoftime"
	StatusCheat         GameStatus = "cheat"
	StatusNoStart       GameStatus = "noStart"
	StatusUnknownFinish GameStatus = "unknownFinish"
	StatusVariantEnd    GameStatus = "variantEnd"
)

var terminalStatuses = map[GameStatus]struct{}{
	StatusAborted:       {},
	StatusMate:          {},
	StatusResign:        {},
	StatusStalemate:     {},
	StatusTimeout:       {},
	StatusDraw:          {},
	StatusOutOfTime:     {},
	StatusCheat:         {},
	StatusNoStart:       {},
	StatusUnknownFinish: {},
	StatusVariantEnd:    {},
}

// IsTerminal reports whether the status ends the game.
func (s GameStatus) IsTerminal() bool {
	_, ok := terminalStatuses[GameStatus(strings.TrimSpace(string(s)))]
	return ok
}

// Identity is the bot account resolved once at startup.
type Identity struct {
	ID       string
	Username string
}

// Matches reports whether a player (id, name) pair refers to this account.
// lichess usernames are case-insensitive; ids are lowercase.
func (i Identity) Matches(id, name string) bool {
	if n := strings.TrimSpace(name); n != "" && strings.EqualFold(n, strings.TrimSpace(i.Username)) {
		return true
	}
	if v := strings.TrimSpace(id); v != "" && strings.EqualFold(v, strings.TrimSpace(i.ID)) {
		return true
	}
	return false
}
