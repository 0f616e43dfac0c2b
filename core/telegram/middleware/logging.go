package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/eldersbot/core/logger"
	"github.com/m3rciful/eldersbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/eldersbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const ridKey = "rid"

// LoggerMiddleware assigns the update its rid and request context and logs
// one sampled receipt line. The chain may wrap a handler twice; only the
// outermost pass does the work.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if _, seen := c.Get(ridKey).(string); seen {
			return next(c)
		}

		upd := c.Update()
		var userID, chatID int64
		if u := c.Sender(); u != nil {
			userID = u.ID
		}
		if ch := c.Chat(); ch != nil {
			chatID = ch.ID
		}
		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set(ridKey, rid)
		c.Set("update_start", time.Now())

		ctx := logger.WithUpdateMeta(logger.WithRID(context.Background(), rid), upd.ID, userID, chatID)
		tghelpers.StoreContext(c, ctx)

		if logger.ShouldSampleDebug() {
			logger.Debug(ctx, "tg", "update.received", receiptAttrs(c, upd)...)
		}
		return next(c)
	}
}

func receiptAttrs(c tele.Context, upd tele.Update) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok")}
	if ch := c.Chat(); ch != nil {
		attrs = append(attrs, slog.String("chat_type", string(ch.Type)))
	}
	if u := c.Sender(); u != nil {
		if u.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
		}
		if u.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", u.LanguageCode))
		}
	}

	var payload string
	switch {
	case upd.Callback != nil:
		var key string
		key, payload = callbacks.ParseCallbackData(upd.Callback)
		if key != "" {
			attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
		}
	case upd.Message != nil:
		payload = c.Text()
	}
	if payload != "" {
		attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
	}
	return attrs
}
