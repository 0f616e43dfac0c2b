package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/eldersbot/core/logger"
	tghelpers "github.com/m3rciful/eldersbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures RateLimitMiddleware. Exclude holds update kinds
// as returned by UpdateKind.
type RateLimitOptions struct {
	Interval  time.Duration
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

// UpdateKind names the update for rate limit exclusions.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	case upd.Query != nil:
		return "inline_query"
	}
	return "other"
}

// lastSeen remembers when each user was last let through.
type lastSeen struct {
	mu       sync.Mutex
	interval time.Duration
	seen     map[int64]time.Time
}

// sweepAt bounds the map; entries older than the interval are dropped once it
// grows past this size.
const sweepAt = 4096

func (l *lastSeen) allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if last, ok := l.seen[userID]; ok && now.Sub(last) < l.interval {
		return false
	}
	l.seen[userID] = now
	if len(l.seen) > sweepAt {
		for id, ts := range l.seen {
			if now.Sub(ts) >= l.interval {
				delete(l.seen, id)
			}
		}
	}
	return true
}

// RateLimitMiddleware drops updates that arrive sooner than Interval after
// the same user's previous one.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	limit := &lastSeen{interval: opts.Interval, seen: make(map[int64]time.Time)}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := UpdateKind(c.Update())
			if _, skip := opts.Exclude[kind]; skip || limit.allow(user.ID, time.Now()) {
				return next(c)
			}

			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit",
				slog.String("status", "rate_limited"),
				slog.String("kind", kind),
				slog.Int64("user_id", user.ID),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
