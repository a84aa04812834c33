package chess

import (
	"sort"

	corechess "github.com/corentings/chess/v2"
)

const (
	captureBase   = 10000
	promotionBase = 9000
	checkBonus    = 2000
	centerMove    = 50
)

// MovePriority is the ordering key for m in b: MVV-LVA for captures, then
// promotions, checks and centralisation. Components add up.
func MovePriority(b *Board, m corechess.Move) int {
	score := 0
	if victim := b.CapturedPiece(m); victim != corechess.NoPieceType {
		attacker := b.PieceAt(m.S1()).Type()
		score += captureBase + PieceValue(victim) - PieceValue(attacker)/10
	}
	if IsPromotion(m) {
		score += promotionBase + PieceValue(m.Promo())
	}

	b.Push(m)
	gives := b.InCheck()
	b.Pop()
	if gives {
		score += checkBonus
	}

	to := m.S2()
	for _, sq := range centerSquares {
		if sq == to {
			score += centerMove
			break
		}
	}
	return score
}

// OrderMoves sorts moves by descending priority. Equal priorities keep
// generation order.
func OrderMoves(b *Board, moves []corechess.Move) []corechess.Move {
	type scored struct {
		move  corechess.Move
		score int
	}
	list := make([]scored, len(moves))
	for i, m := range moves {
		list[i] = scored{move: m, score: MovePriority(b, m)}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].score > list[j].score })

	out := make([]corechess.Move, len(list))
	for i, s := range list {
		out[i] = s.move
	}
	return out
}

// noisyMoves keeps captures and promotions.
func noisyMoves(b *Board, moves []corechess.Move) []corechess.Move {
	out := make([]corechess.Move, 0, len(moves))
	for _, m := range moves {
		if IsPromotion(m) || b.IsCapture(m) {
			out = append(out, m)
		}
	}
	return out
}
