package middleware

import (
	"log/slog"

	"github.com/m3rciful/eldersbot/core/logger"
	tghelpers "github.com/m3rciful/eldersbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOptions configures AdminOnlyMiddleware.
type AdminOptions struct {
	AdminID  int64
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware passes only the configured admin. AdminID 0 rejects
// everyone.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	isAdmin := func(u *tele.User) bool {
		return opts.AdminID != 0 && u != nil && u.ID == opts.AdminID
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if isAdmin(c.Sender()) {
				return next(c)
			}
			var uid int64
			if u := c.Sender(); u != nil {
				uid = u.ID
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "access.denied",
				slog.String("status", "skip"),
				slog.Int64("user_id", uid),
			)
			if opts.OnReject == nil {
				return nil
			}
			return opts.OnReject(c)
		}
	}
}
