package chess

import (
	"strings"
	"testing"

	corechess "github.com/corentings/chess/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const startPlacement = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -"

func mustReplay(t *testing.T, fen, moves string) *Board {
	t.Helper()
	b, _, err := Replay(fen, moves)
	require.NoError(t, err, "Replay(%q, %q)", fen, moves)
	return b
}

func TestReplay_EmptyIsStartPosition(t *testing.T) {
	b, applied, err := Replay("startpos", "")
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
	assert.Equal(t, 0, b.Plies())
	assert.True(t, strings.HasPrefix(b.FEN(), startPlacement), "unexpected fen %q", b.FEN())
	assert.Equal(t, 1, b.FullMoveNumber())
}

func TestReplay_AppliesMovesInOrder(t *testing.T) {
	b, applied, err := Replay("", "e2e4 e7e5 g1f3")
	require.NoError(t, err)
	assert.Equal(t, 3, applied)
	assert.Equal(t, 3, b.Plies())
	assert.Equal(t, corechess.Black, b.Turn())

	knight := b.PieceAt(corechess.F3)
	assert.Equal(t, corechess.Knight, knight.Type())
	assert.Equal(t, corechess.White, knight.Color())
	assert.Equal(t, 2, b.FullMoveNumber())
}

func TestReplay_StopsAtFirstIllegalToken(t *testing.T) {
	b, applied, err := Replay("", "e2e4 e2e4 e7e5")
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assert.Equal(t, 1, b.Plies())
	assert.Equal(t, corechess.Black, b.Turn())
}

func TestReplay_BadFEN(t *testing.T) {
	_, _, err := Replay("not a fen", "")
	assert.Error(t, err)
}

func TestApply_IllegalMove(t *testing.T) {
	b := mustReplay(t, "", "")
	err := b.Apply("e2e5")
	assert.ErrorIs(t, err, ErrIllegalMove)
	assert.Equal(t, 0, b.Plies(), "illegal move changed the board")
}

func TestPushPop_RestoresPosition(t *testing.T) {
	b := mustReplay(t, "", "e2e4 d7d5")
	before := b.FEN()
	for _, m := range b.LegalMoves() {
		b.Push(m)
		b.Pop()
		require.Equal(t, before, b.FEN(), "push/pop of %s", m.String())
	}
	b.Pop()
	b.Pop()
	b.Pop()
	assert.Equal(t, 0, b.Plies(), "Pop past root")
}

func TestFullMoveNumber_TracksPushPop(t *testing.T) {
	b := mustReplay(t, "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 7", "")
	require.Equal(t, 7, b.FullMoveNumber())

	for _, tok := range []string{"f1c4", "g8f6", "d2d3", "f8c5"} {
		require.NoError(t, b.Apply(tok))
		assert.Equal(t, parseFullMove(b.FEN()), b.FullMoveNumber(), "after %s", tok)
	}
	assert.Equal(t, 9, b.FullMoveNumber())

	b.Pop()
	assert.Equal(t, 8, b.FullMoveNumber())
	b.Pop()
	b.Pop()
	b.Pop()
	assert.Equal(t, 7, b.FullMoveNumber())
}

func TestInCheckAndTerminal(t *testing.T) {
	check := mustReplay(t, "4k3/8/8/8/8/8/8/4R2K b - - 0 1", "")
	assert.True(t, check.InCheck(), "black king on e8 should be in check from e1 rook")
	assert.False(t, check.IsTerminal(), "check with escapes is not terminal")

	mate := mustReplay(t, "", "f2f3 e7e5 g2g4 d8h4")
	assert.True(t, mate.IsCheckmate())
	assert.True(t, mate.IsTerminal())

	stale := mustReplay(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", "")
	assert.True(t, stale.IsStalemate())
	assert.False(t, stale.IsCheckmate())

	bare := mustReplay(t, "8/8/8/4k3/8/8/8/4K3 w - - 0 1", "")
	assert.True(t, bare.InsufficientMaterial(), "K v K")
	assert.True(t, bare.IsTerminal())

	rook := mustReplay(t, "8/8/8/4k3/8/8/8/R3K3 w - - 0 1", "")
	assert.False(t, rook.InsufficientMaterial(), "K+R v K")
}

func TestCapturedPiece_EnPassant(t *testing.T) {
	b := mustReplay(t, "", "e2e4 a7a6 e4e5 d7d5")
	m, ok := b.FindMove("e5d6")
	require.True(t, ok, "en passant e5d6 should be legal")
	assert.Equal(t, corechess.Pawn, b.CapturedPiece(m))

	quiet, ok := b.FindMove("g1f3")
	require.True(t, ok)
	assert.False(t, b.IsCapture(quiet))
}
