// botcheck verifies a deployment: token, account and opening book.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/cheese-lichess-bot/internal/chess"
	"github.com/park285/cheese-lichess-bot/internal/chess/openingbook"
	"github.com/park285/cheese-lichess-bot/internal/lichess"
)

func main() {
	fen := flag.String("fen", "startpos", "position to probe in the opening book")
	depth := flag.Int("depth", 3, "search depth for the sample move")
	skipAPI := flag.Bool("offline", false, "skip the lichess account check")
	flag.Parse()

	if !*skipAPI {
		token := strings.TrimSpace(os.Getenv("LICHESS_TOKEN"))
		if token == "" {
			log.Fatal("LICHESS_TOKEN is required")
		}
		baseURL := os.Getenv("LICHESS_BASE_URL")
		if baseURL == "" {
			baseURL = "https://lichess.org"
		}
		client := lichess.NewClient(baseURL, token, lichess.WithTimeout(8*time.Second), lichess.WithRetry(1))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		id, err := client.GetAccount(ctx)
		if err != nil {
			log.Printf("/api/account error: %v", err)
		} else {
			log.Printf("/api/account ok: id=%s username=%s", id.ID, id.Username)
		}
	}

	board, err := chess.NewBoard(*fen)
	if err != nil {
		log.Fatalf("fen error: %v", err)
	}

	book := openingbook.New(os.Getenv("BOOK_PATH"), nil)
	entries, err := book.Entries(board.FEN())
	if err != nil {
		log.Printf("book %s unavailable: %v", book.Path(), err)
	} else {
		log.Printf("book %s: %d entries", book.Path(), len(entries))
		for _, e := range entries {
			fmt.Printf("  %-6s weight=%d\n", e.Move, e.Weight)
		}
	}

	engine := chess.NewEngine(book, chess.Options{SearchDepth: *depth}, nil)
	choice, err := engine.ChooseMove(context.Background(), board)
	if err != nil {
		log.Fatalf("choose move: %v", err)
	}
	log.Printf("sample move: %s source=%s score=%d nodes=%d took=%s",
		choice.UCI, choice.Source, choice.Score, choice.Nodes, choice.Duration)
}
