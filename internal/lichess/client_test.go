package lichess

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"testing"

	"github.com/park285/cheese-lichess-bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func newTestClient(t *testing.T, handler fasthttp.RequestHandler) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })
	return NewClient("http://lichess.test/", "secret-token",
		WithDial(func(addr string) (net.Conn, error) { return ln.Dial() }),
	)
}

func TestGetAccount(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != "/api/account" {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			return
		}
		if string(ctx.Request.Header.Peek("Authorization")) != "Bearer secret-token" {
			ctx.SetStatusCode(fasthttp.StatusUnauthorized)
			return
		}
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"id":"cheesebot","username":"CheeseBot","title":"BOT"}`)
	})

	id, err := c.GetAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Identity{ID: "cheesebot", Username: "CheeseBot"}, id)
}

func TestGetAccount_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		if calls.Add(1) == 1 {
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			return
		}
		ctx.SetBodyString(`{"id":"cheesebot","username":"CheeseBot"}`)
	})

	id, err := c.GetAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cheesebot", id.ID)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAcceptChallengeAndMakeMove(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		paths = append(paths, string(ctx.Method())+" "+string(ctx.Path()))
		ctx.SetBodyString(`{"ok":true}`)
	})

	require.NoError(t, c.AcceptChallenge(context.Background(), "ch1"))
	require.NoError(t, c.MakeMove(context.Background(), "g1", "e2e4"))
	assert.Equal(t, []string{
		"POST /api/challenge/ch1/accept",
		"POST /api/bot/game/g1/move/e2e4",
	}, paths)
}

func TestMakeMove_APIError(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetBodyString(`{"error":"Not your turn, or game already over"}`)
	})

	err := c.MakeMove(context.Background(), "g1", "e2e4")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "err=%v", err)
	assert.Equal(t, fasthttp.StatusBadRequest, apiErr.Status)
	assert.Contains(t, apiErr.Body, "Not your turn")
	assert.Equal(t, int32(1), calls.Load(), "moves are never retried")
}

func TestPostChat(t *testing.T) {
	var room, text string
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		room = string(ctx.PostArgs().Peek("room"))
		text = string(ctx.PostArgs().Peek("text"))
		ctx.SetBodyString(`{"ok":true}`)
	})

	require.NoError(t, c.PostChat(context.Background(), "g1", "player", "good luck & have fun"))
	assert.Equal(t, "player", room)
	assert.Equal(t, "good luck & have fun", text)
}

func TestStreamEvents(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != "/api/stream/event" {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			return
		}
		ctx.SetContentType("application/x-ndjson")
		ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
			fmt.Fprintln(w, `{"type":"challenge","challenge":{"id":"ch1","challenger":{"name":"bob"}}}`)
			fmt.Fprintln(w)
			_ = w.Flush()
			fmt.Fprintln(w, `{"type":"challengeCanceled","challenge":{"id":"ch0"}}`)
			fmt.Fprintln(w, `{"type":"gameStart","game":{"gameId":"g1","color":"white"}}`)
			_ = w.Flush()
		})
	})

	stream, err := c.StreamEvents(context.Background())
	require.NoError(t, err)
	defer stream.Close()

	ev, err := stream.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ch1", ev.(Challenge).ID)

	ev, err = stream.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, GameStart{GameID: "g1", Color: domain.White}, ev)

	_, err = stream.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamGame_InvalidLineKeepsStreamUsable(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
			fmt.Fprintln(w, `{"type":"gameStart"}`)
			fmt.Fprintln(w, `{"type":"gameState","moves":"e2e4","status":"started"}`)
			_ = w.Flush()
		})
	})

	stream, err := c.StreamGame(context.Background(), "g1")
	require.NoError(t, err)
	defer stream.Close()

	_, err = stream.Next(context.Background())
	assert.ErrorIs(t, err, ErrInvalidEvent)

	ev, err := stream.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "e2e4", ev.(GameState).Moves)
}

func TestStreamGame_HTTPError(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetBodyString(`{"error":"No such game"}`)
	})

	_, err := c.StreamGame(context.Background(), "missing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "err=%v", err)
	assert.Equal(t, fasthttp.StatusNotFound, apiErr.Status)
}

func TestStream_CancelledContext(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString("\n")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.StreamEvents(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
