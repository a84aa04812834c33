package openingbook

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	chesslib "github.com/corentings/chess/v2"
	"go.uber.org/zap"
)

// EnvBookPath overrides the configured book location.
const EnvBookPath = "CHESS_POLYGLOT_BOOK_PATH"

type Result struct {
	Move   string
	Weight uint16
}

// Book is a lazily loaded polyglot book. Every failure degrades to "no book
// move"; Lookup never returns an error.
type Book struct {
	path   string
	logger *zap.Logger

	once sync.Once
	book *chesslib.PolyglotBook
	err  error
}

// New returns a Book reading from path unless EnvBookPath is set.
func New(path string, logger *zap.Logger) *Book {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Book{path: ResolveBookPath(path), logger: logger}
}

func (b *Book) Path() string { return b.path }

// Lookup picks a weighted random entry for the position given as FEN.
func (b *Book) Lookup(fen string, r *rand.Rand) (Result, bool) {
	entries, err := b.Entries(fen)
	if err != nil {
		b.logger.Debug("book_lookup_failed", zap.String("path", b.path), zap.Error(err))
		return Result{}, false
	}
	if len(entries) == 0 {
		return Result{}, false
	}
	picked := selectWeighted(entries, r)
	return picked, picked.Move != ""
}

// Entries lists the book moves for a position, heaviest first.
func (b *Book) Entries(fen string) ([]Result, error) {
	book, err := b.load()
	if err != nil {
		return nil, err
	}

	hasher := chesslib.NewZobristHasher()
	hashStr, err := hasher.HashPosition(fen)
	if err != nil {
		return nil, fmt.Errorf("compute polyglot hash: %w", err)
	}
	found := book.FindMoves(chesslib.ZobristHashToUint64(hashStr))
	if len(found) == 0 {
		return nil, nil
	}

	out := make([]Result, 0, len(found))
	for _, entry := range found {
		move := chesslib.DecodeMove(entry.Move).ToMove()
		uci := normalizeCastling(fen, move.String())
		if uci == "" {
			continue
		}
		out = append(out, Result{Move: uci, Weight: entry.Weight})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	return out, nil
}

func (b *Book) load() (*chesslib.PolyglotBook, error) {
	b.once.Do(func() {
		if strings.TrimSpace(b.path) == "" {
			b.err = fmt.Errorf("polyglot book path not configured")
			return
		}
		b.book, b.err = LoadFromPath(b.path)
		if b.err != nil {
			b.logger.Warn("book_unavailable", zap.String("path", b.path), zap.Error(b.err))
			return
		}
		b.logger.Info("book_loaded", zap.String("path", b.path))
	})
	if b.err != nil {
		return nil, b.err
	}
	if b.book == nil {
		return nil, fmt.Errorf("polyglot book not loaded")
	}
	return b.book, nil
}

// ResolveBookPath prefers EnvBookPath over the configured path.
func ResolveBookPath(configured string) string {
	if envPath := strings.TrimSpace(os.Getenv(EnvBookPath)); envPath != "" {
		return envPath
	}
	if strings.TrimSpace(configured) != "" {
		return configured
	}
	return filepath.Join("data", "opening.bin")
}

func LoadFromPath(bookPath string) (*chesslib.PolyglotBook, error) {
	if strings.TrimSpace(bookPath) == "" {
		return nil, fmt.Errorf("polyglot book path required")
	}
	file, err := os.Open(bookPath)
	if err != nil {
		return nil, fmt.Errorf("open polyglot book %q: %w", bookPath, err)
	}
	defer file.Close()

	book, err := chesslib.LoadFromReader(file)
	if err != nil {
		return nil, fmt.Errorf("load polyglot book %q: %w", bookPath, err)
	}
	return book, nil
}

func selectWeighted(candidates []Result, r *rand.Rand) Result {
	if len(candidates) == 0 {
		return Result{}
	}
	if r == nil {
		return candidates[0]
	}
	total := 0
	for _, cand := range candidates {
		total += int(cand.Weight)
	}
	if total <= 0 {
		return candidates[0]
	}
	roll := r.Intn(total)
	cumulative := 0
	for _, cand := range candidates {
		cumulative += int(cand.Weight)
		if roll < cumulative {
			return cand
		}
	}
	return candidates[len(candidates)-1]
}

// polyglot encodes castling as king-takes-own-rook.
var castleRewrites = map[string]string{
	"e1h1": "e1g1",
	"e1a1": "e1c1",
	"e8h8": "e8g8",
	"e8a8": "e8c8",
}

func normalizeCastling(fen, uci string) string {
	uci = strings.ToLower(strings.TrimSpace(uci))
	rewrite, ok := castleRewrites[uci]
	if !ok {
		return uci
	}
	option, err := chesslib.FEN(fen)
	if err != nil {
		return uci
	}
	from := chesslib.E1
	if strings.HasPrefix(uci, "e8") {
		from = chesslib.E8
	}
	piece := chesslib.NewGame(option).Position().Board().Piece(from)
	if piece.Type() == chesslib.King {
		return rewrite
	}
	return uci
}
