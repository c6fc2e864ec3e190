package helpers

import (
	"context"

	"github.com/m3rciful/copperbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const contextKey = "logger_ctx"

// StoreContext attaches ctx to c for downstream helpers.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(contextKey, ctx)
}

// ContextFrom returns the context stored by StoreContext.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(contextKey).(context.Context)
	return ctx, ok && ctx != nil
}

// ChatID returns the id of the chat the update belongs to. Callback presses on
// inline keyboards resolve through their message.
func ChatID(c tele.Context) (int64, bool) {
	if c == nil {
		return 0, false
	}
	if chat := c.Chat(); chat != nil {
		return chat.ID, true
	}
	if cb := c.Callback(); cb != nil && cb.Message != nil && cb.Message.Chat != nil {
		return cb.Message.Chat.ID, true
	}
	return 0, false
}

// BuildContext returns the update's context, creating it with rid and
// update/user/chat ids on first use.
func BuildContext(c tele.Context) context.Context {
	if cached, ok := ContextFrom(c); ok {
		return cached
	}
	if c == nil {
		return context.Background()
	}

	var userID int64
	if user := c.Sender(); user != nil {
		userID = user.ID
	}
	chatID, _ := ChatID(c)
	updateID := c.Update().ID

	rid, _ := c.Get("rid").(string)
	if rid == "" {
		rid = logger.BuildRID(updateID, chatID, userID)
	}

	ctx := logger.WithRID(context.Background(), rid)
	ctx = logger.WithUpdateMeta(ctx, updateID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.Component(logger.CompTG))
	StoreContext(c, ctx)
	return ctx
}

// WithHandler records the handler name in the stored context.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	StoreContext(c, ctx)
	return ctx
}
