package chess

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	corechess "github.com/corentings/chess/v2"
)

// ErrIllegalMove is returned by Apply for tokens that are not legal in the current position.
var ErrIllegalMove = errors.New("illegal move")

// Board is a position with an apply/undo stack. Push and Pop must be paired;
// after a balanced sequence the board is back to its exact prior state.
type Board struct {
	stack []*corechess.Position
	// fullMoves[i] is the full-move counter of stack[i].
	fullMoves []int
}

// NewBoard builds a board from FEN. "" and "startpos" mean the standard start.
func NewBoard(fen string) (*Board, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		return newBoard(corechess.NewGame().Position()), nil
	}
	option, err := corechess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen %q: %w", fen, err)
	}
	return newBoard(corechess.NewGame(option).Position()), nil
}

func newBoard(root *corechess.Position) *Board {
	return &Board{
		stack:     []*corechess.Position{root},
		fullMoves: []int{parseFullMove(root.String())},
	}
}

// Replay builds a board from fen and applies the space separated UCI tokens in
// order, stopping silently at the first token that is not legal.
func Replay(fen, moves string) (*Board, int, error) {
	b, err := NewBoard(fen)
	if err != nil {
		return nil, 0, err
	}
	applied := 0
	for _, tok := range strings.Fields(moves) {
		if err := b.Apply(tok); err != nil {
			break
		}
		applied++
	}
	return b, applied, nil
}

func (b *Board) pos() *corechess.Position { return b.stack[len(b.stack)-1] }

// Position exposes the current library position.
func (b *Board) Position() *corechess.Position { return b.pos() }

// Push applies a legal move.
func (b *Board) Push(m corechess.Move) {
	next := b.FullMoveNumber()
	if b.Turn() == corechess.Black {
		next++
	}
	b.stack = append(b.stack, b.pos().Update(&m))
	b.fullMoves = append(b.fullMoves, next)
}

// Pop undoes the last Push. The root position is never popped.
func (b *Board) Pop() {
	n := len(b.stack)
	if n <= 1 {
		return
	}
	b.stack[n-1] = nil
	b.stack = b.stack[:n-1]
	b.fullMoves = b.fullMoves[:n-1]
}

// Plies is the number of moves pushed on top of the root position.
func (b *Board) Plies() int { return len(b.stack) - 1 }

// Apply plays a move given in UCI coordinate notation.
func (b *Board) Apply(uci string) error {
	m, ok := b.FindMove(uci)
	if !ok {
		return fmt.Errorf("%w: %q", ErrIllegalMove, uci)
	}
	b.Push(m)
	return nil
}

// FindMove returns the legal move matching a UCI token.
func (b *Board) FindMove(uci string) (corechess.Move, bool) {
	want := strings.ToLower(strings.TrimSpace(uci))
	if want == "" {
		return corechess.Move{}, false
	}
	for _, m := range b.LegalMoves() {
		if m.String() == want {
			return m, true
		}
	}
	return corechess.Move{}, false
}

// IsLegal reports whether m is in the current legal move set.
func (b *Board) IsLegal(m corechess.Move) bool {
	_, ok := b.FindMove(m.String())
	return ok
}

func (b *Board) LegalMoves() []corechess.Move { return b.pos().ValidMoves() }

func (b *Board) Turn() corechess.Color { return b.pos().Turn() }

// FEN serialises the current position.
func (b *Board) FEN() string { return b.pos().String() }

func (b *Board) PieceAt(sq corechess.Square) corechess.Piece {
	return b.pos().Board().Piece(sq)
}

// FullMoveNumber is the FEN full-move counter of the current position.
func (b *Board) FullMoveNumber() int { return b.fullMoves[len(b.fullMoves)-1] }

func parseFullMove(fen string) int {
	fields := strings.Fields(fen)
	if len(fields) < 6 {
		return 1
	}
	n, err := strconv.Atoi(fields[5])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// KingSquare returns the king square of c, or NoSquare when absent.
func (b *Board) KingSquare(c corechess.Color) corechess.Square {
	board := b.pos().Board()
	for sq := corechess.A1; sq <= corechess.H8; sq++ {
		p := board.Piece(sq)
		if p.Type() == corechess.King && p.Color() == c {
			return sq
		}
	}
	return corechess.NoSquare
}

// HasPiece reports whether c still has a piece of type pt.
func (b *Board) HasPiece(c corechess.Color, pt corechess.PieceType) bool {
	board := b.pos().Board()
	for sq := corechess.A1; sq <= corechess.H8; sq++ {
		p := board.Piece(sq)
		if p.Type() == pt && p.Color() == c {
			return true
		}
	}
	return false
}

// InCheck reports whether the side to move is in check.
func (b *Board) InCheck() bool {
	turn := b.Turn()
	king := b.KingSquare(turn)
	if king == corechess.NoSquare {
		return false
	}
	return b.attacked(king, turn.Other())
}

func (b *Board) IsCheckmate() bool { return len(b.LegalMoves()) == 0 && b.InCheck() }

func (b *Board) IsStalemate() bool { return len(b.LegalMoves()) == 0 && !b.InCheck() }

// IsTerminal covers checkmate, stalemate and insufficient material.
func (b *Board) IsTerminal() bool {
	return len(b.LegalMoves()) == 0 || b.InsufficientMaterial()
}

// InsufficientMaterial reports K v K, K+minor v K and K+B v K+B with bishops
// on the same square colour.
func (b *Board) InsufficientMaterial() bool {
	board := b.pos().Board()
	var minors []corechess.Square
	var minorTypes []corechess.PieceType
	for sq := corechess.A1; sq <= corechess.H8; sq++ {
		p := board.Piece(sq)
		switch p.Type() {
		case corechess.NoPieceType, corechess.King:
			continue
		case corechess.Knight, corechess.Bishop:
			minors = append(minors, sq)
			minorTypes = append(minorTypes, p.Type())
		default:
			return false
		}
	}
	switch len(minors) {
	case 0, 1:
		return true
	case 2:
		if minorTypes[0] != corechess.Bishop || minorTypes[1] != corechess.Bishop {
			return false
		}
		if board.Piece(minors[0]).Color() == board.Piece(minors[1]).Color() {
			return false
		}
		return squareShade(minors[0]) == squareShade(minors[1])
	default:
		return false
	}
}

// IsCapture reports whether m removes an opponent piece, en passant included.
func (b *Board) IsCapture(m corechess.Move) bool {
	return b.CapturedPiece(m) != corechess.NoPieceType
}

// CapturedPiece returns the type of the piece m captures.
func (b *Board) CapturedPiece(m corechess.Move) corechess.PieceType {
	target := b.PieceAt(m.S2())
	if target != corechess.NoPiece {
		return target.Type()
	}
	mover := b.PieceAt(m.S1())
	if mover.Type() == corechess.Pawn && m.S1().File() != m.S2().File() {
		return corechess.Pawn
	}
	return corechess.NoPieceType
}

func IsPromotion(m corechess.Move) bool { return m.Promo() != corechess.NoPieceType }

func squareShade(sq corechess.Square) int {
	return (int(sq.File()) + int(sq.Rank())) % 2
}

var (
	knightSteps = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps   = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	rookDirs    = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	bishopDirs  = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

func squareAt(file, rank int) (corechess.Square, bool) {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return corechess.NoSquare, false
	}
	return corechess.NewSquare(corechess.File(file), corechess.Rank(rank)), true
}

// attacked reports whether sq is attacked by a piece of colour by.
func (b *Board) attacked(sq corechess.Square, by corechess.Color) bool {
	board := b.pos().Board()
	f, r := int(sq.File()), int(sq.Rank())

	is := func(s corechess.Square, types ...corechess.PieceType) bool {
		p := board.Piece(s)
		if p == corechess.NoPiece || p.Color() != by {
			return false
		}
		for _, t := range types {
			if p.Type() == t {
				return true
			}
		}
		return false
	}

	pawnRank := r - 1
	if by == corechess.Black {
		pawnRank = r + 1
	}
	for _, df := range [2]int{-1, 1} {
		if s, ok := squareAt(f+df, pawnRank); ok && is(s, corechess.Pawn) {
			return true
		}
	}
	for _, st := range knightSteps {
		if s, ok := squareAt(f+st[0], r+st[1]); ok && is(s, corechess.Knight) {
			return true
		}
	}
	for _, st := range kingSteps {
		if s, ok := squareAt(f+st[0], r+st[1]); ok && is(s, corechess.King) {
			return true
		}
	}
	slide := func(dirs [4][2]int, types ...corechess.PieceType) bool {
		for _, d := range dirs {
			for i := 1; i < 8; i++ {
				s, ok := squareAt(f+d[0]*i, r+d[1]*i)
				if !ok {
					break
				}
				if board.Piece(s) == corechess.NoPiece {
					continue
				}
				if is(s, types...) {
					return true
				}
				break
			}
		}
		return false
	}
	return slide(rookDirs, corechess.Rook, corechess.Queen) ||
		slide(bishopDirs, corechess.Bishop, corechess.Queen)
}
