package session

import (
	"context"

	"github.com/park285/cheese-lichess-bot/internal/domain"
	"github.com/park285/cheese-lichess-bot/internal/msgcat"
	"go.uber.org/zap"
)

const (
	roomPlayer    = "player"
	roomSpectator = "spectator"
)

func (d *Driver) chatEnabled() bool {
	return d.opts.ChatEnabled && d.messages != nil
}

func (d *Driver) chatData(g *game) map[string]string {
	return map[string]string{
		"Bot":      d.identity.Username,
		"Opponent": g.opponent,
		"Color":    string(g.color),
	}
}

func (d *Driver) greet(ctx context.Context, g *game, logger *zap.Logger) {
	if !d.chatEnabled() || g.greeted {
		return
	}
	g.greeted = true
	d.say(ctx, g, roomPlayer, msgcat.KeyGreeting, logger)
	d.say(ctx, g, roomSpectator, msgcat.KeyGreetingSpectator, logger)
}

func (d *Driver) farewell(ctx context.Context, g *game, logger *zap.Logger) {
	if !d.chatEnabled() || g.color == domain.NoColor {
		return
	}
	key := msgcat.KeyFarewell
	if g.status == domain.StatusAborted {
		key = msgcat.KeyFarewellAborted
	}
	d.say(ctx, g, roomPlayer, key, logger)
}

// say never fails the session; chat is best effort.
func (d *Driver) say(ctx context.Context, g *game, room, key string, logger *zap.Logger) {
	text, err := d.messages.Render(key, d.chatData(g))
	if err != nil {
		logger.Debug("chat_render_failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := d.api.PostChat(ctx, g.id, room, text); err != nil {
		logger.Debug("chat_post_failed", zap.String("room", room), zap.Error(err))
	}
}
