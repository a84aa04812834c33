package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/cheese-lichess-bot/internal/lease"
	"github.com/park285/cheese-lichess-bot/internal/lichess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	items []any
}

func (s *fakeStream) Next(ctx context.Context) (lichess.Event, error) {
	if len(s.items) == 0 {
		return nil, io.EOF
	}
	item := s.items[0]
	s.items = s.items[1:]
	if err, ok := item.(error); ok {
		return nil, err
	}
	return item.(lichess.Event), nil
}

func (s *fakeStream) Close() error { return nil }

type fakeAPI struct {
	stream    *fakeStream
	streamErr error
	acceptErr error
	accepted  []string
}

func (a *fakeAPI) StreamEvents(ctx context.Context) (lichess.EventStream, error) {
	if a.streamErr != nil {
		return nil, a.streamErr
	}
	return a.stream, nil
}

func (a *fakeAPI) AcceptChallenge(ctx context.Context, id string) error {
	a.accepted = append(a.accepted, id)
	return a.acceptErr
}

type recordingRunner struct {
	mu    sync.Mutex
	games []string
	err   error
}

func (r *recordingRunner) Run(ctx context.Context, gameID, runID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games = append(r.games, gameID)
	return r.err
}

func (r *recordingRunner) started() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.games...)
	sort.Strings(out)
	return out
}

func TestRun_AcceptsChallengesAndStartsGames(t *testing.T) {
	api := &fakeAPI{stream: &fakeStream{items: []any{
		lichess.Challenge{ID: "ch1"},
		lichess.GameStart{GameID: "g1"},
		lichess.ErrInvalidEvent,
		lichess.Challenge{ID: "ch2"},
		lichess.GameStart{GameID: "g2"},
	}}}
	runner := &recordingRunner{err: errors.New("session failed")}
	d := New(api, runner, nil, nil)

	require.NoError(t, d.Run(context.Background()))
	d.Wait()

	assert.Equal(t, []string{"ch1", "ch2"}, api.accepted)
	assert.Equal(t, []string{"g1", "g2"}, runner.started())
}

func TestRun_AcceptFailureDoesNotStop(t *testing.T) {
	api := &fakeAPI{
		stream:    &fakeStream{items: []any{lichess.Challenge{ID: "ch1"}, lichess.GameStart{GameID: "g1"}}},
		acceptErr: errors.New("challenge gone"),
	}
	runner := &recordingRunner{}
	d := New(api, runner, nil, nil)

	require.NoError(t, d.Run(context.Background()))
	d.Wait()
	assert.Equal(t, []string{"g1"}, runner.started())
}

func TestRun_StreamFailures(t *testing.T) {
	openErr := errors.New("401")
	d := New(&fakeAPI{streamErr: openErr}, &recordingRunner{}, nil, nil)
	assert.ErrorIs(t, d.Run(context.Background()), openErr)

	readErr := errors.New("connection reset")
	d = New(&fakeAPI{stream: &fakeStream{items: []any{readErr}}}, &recordingRunner{}, nil, nil)
	assert.ErrorIs(t, d.Run(context.Background()), readErr)
}

func TestRun_LeaseSkipsDuplicateGameStart(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	store, err := lease.NewRedis(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	api := &fakeAPI{stream: &fakeStream{items: []any{
		lichess.GameStart{GameID: "g1"},
		lichess.GameStart{GameID: "g1"},
		lichess.GameStart{GameID: "g2"},
	}}}
	runner := &recordingRunner{}
	d := New(api, runner, store, nil)
	n := 0
	d.newRunID = func() string { n++; return fmt.Sprintf("run-%d", n) }

	require.NoError(t, d.Run(context.Background()))
	d.Wait()

	assert.Equal(t, []string{"g1", "g2"}, runner.started())
}
