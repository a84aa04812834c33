package chess

import (
	corechess "github.com/corentings/chess/v2"
)

// MateScore is the magnitude returned for a mated side.
const MateScore = 999999

const (
	centerBonus        = 15
	checkPenalty       = 30
	queenEarlyPenalty  = 30
	queenEarlyBefore   = 9
	kingCastledBonus   = 20
	kingCentralPenalty = 25
	kingSafetyBefore   = 21
	kingSafetyQueenMul = 2
)

var centerSquares = [4]corechess.Square{corechess.D4, corechess.E4, corechess.D5, corechess.E5}

var (
	castledSquares = map[corechess.Color][]corechess.Square{
		corechess.White: {corechess.B1, corechess.C1, corechess.G1, corechess.H1},
		corechess.Black: {corechess.B8, corechess.C8, corechess.G8, corechess.H8},
	}
	uncastledSquares = map[corechess.Color][]corechess.Square{
		corechess.White: {corechess.D1, corechess.E1, corechess.F1},
		corechess.Black: {corechess.D8, corechess.E8, corechess.F8},
	}
	queenHome = map[corechess.Color]corechess.Square{
		corechess.White: corechess.D1,
		corechess.Black: corechess.D8,
	}
)

// PieceValue is the material value of a piece type in centipawns.
func PieceValue(pt corechess.PieceType) int {
	switch pt {
	case corechess.Pawn:
		return 100
	case corechess.Knight:
		return 320
	case corechess.Bishop:
		return 330
	case corechess.Rook:
		return 500
	case corechess.Queen:
		return 900
	default:
		return 0
	}
}

// Evaluate scores the position from White's point of view. It does not modify b.
func Evaluate(b *Board) int {
	if len(b.LegalMoves()) == 0 {
		if b.InCheck() {
			if b.Turn() == corechess.White {
				return -MateScore
			}
			return MateScore
		}
		return 0
	}
	if b.InsufficientMaterial() {
		return 0
	}

	board := b.Position().Board()
	score := 0
	for sq := corechess.A1; sq <= corechess.H8; sq++ {
		p := board.Piece(sq)
		if p == corechess.NoPiece {
			continue
		}
		score += sign(p.Color()) * PieceValue(p.Type())
	}

	for _, sq := range centerSquares {
		if p := board.Piece(sq); p != corechess.NoPiece {
			score += sign(p.Color()) * centerBonus
		}
	}

	if b.InCheck() {
		score -= sign(b.Turn()) * checkPenalty
	}

	fullMove := b.FullMoveNumber()
	if fullMove < queenEarlyBefore {
		for _, c := range [2]corechess.Color{corechess.White, corechess.Black} {
			if queenDeveloped(b, c) {
				score -= sign(c) * queenEarlyPenalty
			}
		}
	}

	if fullMove < kingSafetyBefore {
		mul := 1
		if b.HasPiece(corechess.White, corechess.Queen) && b.HasPiece(corechess.Black, corechess.Queen) {
			mul = kingSafetyQueenMul
		}
		for _, c := range [2]corechess.Color{corechess.White, corechess.Black} {
			score += sign(c) * kingSafety(b, c) * mul
		}
	}

	return score
}

// Relative returns Evaluate from the side to move's point of view.
func Relative(b *Board) int {
	return sign(b.Turn()) * Evaluate(b)
}

func sign(c corechess.Color) int {
	if c == corechess.Black {
		return -1
	}
	return 1
}

// queenDeveloped reports a queen that has left its home square.
func queenDeveloped(b *Board, c corechess.Color) bool {
	home := b.PieceAt(queenHome[c])
	if home.Type() == corechess.Queen && home.Color() == c {
		return false
	}
	return b.HasPiece(c, corechess.Queen)
}

func kingSafety(b *Board, c corechess.Color) int {
	king := b.KingSquare(c)
	for _, sq := range castledSquares[c] {
		if sq == king {
			return kingCastledBonus
		}
	}
	for _, sq := range uncastledSquares[c] {
		if sq == king {
			return -kingCentralPenalty
		}
	}
	return 0
}
