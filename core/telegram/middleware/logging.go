package middleware

import (
	"log/slog"
	"time"

	"github.com/m3rciful/copperbot/core/logger"
	"github.com/m3rciful/copperbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/copperbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Update kinds used by rate limit exclusions and metrics labels.
const (
	KindMessage  = "message"
	KindCallback = "callback"
	KindOther    = "other"
)

// UpdateKind classifies the update behind c.
func UpdateKind(c tele.Context) string {
	upd := c.Update()
	switch {
	case upd.Callback != nil:
		return KindCallback
	case upd.Message != nil:
		return KindMessage
	default:
		return KindOther
	}
}

// LoggerMiddleware sets the rid for the update and logs its receipt at debug.
// Message text may carry OTP codes, so only its length is logged.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		var userID int64
		if user := c.Sender(); user != nil {
			userID = user.ID
		}
		chatID, _ := tghelpers.ChatID(c)

		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set("rid", rid)
		c.Set("update_start", time.Now())
		ctx := tghelpers.BuildContext(c)

		if logger.ShouldSampleDebug() {
			attrs := []slog.Attr{
				slog.String("status", "ok"),
				slog.String("kind", UpdateKind(c)),
			}
			if chat := c.Chat(); chat != nil {
				attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
			}
			if user := c.Sender(); user != nil {
				if user.Username != "" {
					attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
				}
				if user.LanguageCode != "" {
					attrs = append(attrs, slog.String("lang", user.LanguageCode))
				}
			}
			switch {
			case upd.Callback != nil:
				key, payload := callbacks.ParseCallbackData(upd.Callback)
				attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
				if payload != "" {
					attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 128)))
				}
			case upd.Message != nil:
				attrs = append(attrs, slog.Int("text_len", len(c.Text())))
			}
			logger.Debug(ctx, logger.CompTG, "update.received", attrs...)
		}

		return next(c)
	}
}
