package chess

import (
	"errors"

	corechess "github.com/corentings/chess/v2"
)

var (
	ErrNoLegalMoves = errors.New("no legal moves in position")
	ErrInvalidDepth = errors.New("search depth must be at least 1")
)

const infinity = 1_000_000_000

// SearchResult is the outcome of a root search.
type SearchResult struct {
	Move  corechess.Move
	Score int // side to move's point of view, blunder penalty applied
	Nodes int
}

// Searcher runs fixed-depth negamax with alpha-beta, quiescence at the
// horizon and a one-ply blunder filter at the root. A Searcher is not safe
// for concurrent use; it only carries counters.
type Searcher struct {
	nodes int
}

func NewSearcher() *Searcher { return &Searcher{} }

// Search picks a move for the side to move. b is restored before returning.
func (s *Searcher) Search(b *Board, depth int) (SearchResult, error) {
	if depth < 1 {
		return SearchResult{}, ErrInvalidDepth
	}
	legal := b.LegalMoves()
	if len(legal) == 0 {
		return SearchResult{}, ErrNoLegalMoves
	}
	s.nodes = 0

	var (
		best      corechess.Move
		found     bool
		bestScore = -infinity
		alpha     = -infinity
		beta      = infinity
	)
	for _, m := range OrderMoves(b, legal) {
		b.Push(m)
		score := -s.negamax(b, depth-1, -beta, -alpha)
		score -= BlunderPenalty(b)
		b.Pop()

		if score > bestScore {
			bestScore = score
			best = m
			found = true
		}
		if bestScore > alpha {
			alpha = bestScore
		}
	}

	if !found {
		return SearchResult{Move: legal[0], Score: bestScore, Nodes: s.nodes}, nil
	}
	return SearchResult{Move: best, Score: bestScore, Nodes: s.nodes}, nil
}

func (s *Searcher) negamax(b *Board, depth, alpha, beta int) int {
	s.nodes++
	if depth <= 0 || b.IsTerminal() {
		return s.quiescence(b, alpha, beta)
	}

	best := -infinity
	for _, m := range OrderMoves(b, b.LegalMoves()) {
		b.Push(m)
		val := -s.negamax(b, depth-1, -beta, -alpha)
		b.Pop()

		if val > best {
			best = val
		}
		if best > alpha {
			alpha = best
		}
		if alpha >= beta {
			break
		}
	}
	return best
}

func (s *Searcher) quiescence(b *Board, alpha, beta int) int {
	s.nodes++
	standPat := Relative(b)
	if standPat >= beta {
		return beta
	}
	if standPat > alpha {
		alpha = standPat
	}

	for _, m := range OrderMoves(b, noisyMoves(b, b.LegalMoves())) {
		b.Push(m)
		val := -s.quiescence(b, -beta, -alpha)
		b.Pop()

		if val >= beta {
			return beta
		}
		if val > alpha {
			alpha = val
		}
	}
	return alpha
}

// BlunderPenalty looks at the position after a candidate move: the side to
// move is the opponent, and the most valuable piece it can capture sets the
// penalty charged to the candidate.
func BlunderPenalty(b *Board) int {
	worst := 0
	for _, reply := range b.LegalMoves() {
		if v := PieceValue(b.CapturedPiece(reply)); v > worst {
			worst = v
		}
	}
	return penaltyFor(worst)
}

func penaltyFor(captured int) int {
	switch {
	case captured >= 900:
		return 2500
	case captured >= 500:
		return 1600
	case captured >= 330:
		return 1000
	case captured >= 320:
		return 900
	case captured >= 100:
		return 200
	default:
		return 0
	}
}
