package logger

import "context"

// requestMeta identifies the Telegram update a log line belongs to.
type requestMeta struct {
	rid      string
	handler  string
	updateID int
	userID   int64
	chatID   int64
}

type metaKey struct{}

func metaOf(ctx context.Context) requestMeta {
	if ctx == nil {
		return requestMeta{}
	}
	m, _ := ctx.Value(metaKey{}).(requestMeta)
	return m
}

func withMeta(ctx context.Context, fn func(*requestMeta)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	m := metaOf(ctx)
	fn(&m)
	return context.WithValue(ctx, metaKey{}, m)
}

// fill copies the metadata into rec without overriding explicit attributes.
func (m requestMeta) fill(rec record) {
	rec.setDefault("rid", m.rid, m.rid != "")
	rec.setDefault("update_id", m.updateID, m.updateID != 0)
	rec.setDefault("user_id", m.userID, m.userID != 0)
	rec.setDefault("chat_id", m.chatID, m.chatID != 0)
	rec.setDefault("handler", m.handler, m.handler != "")
}

// WithRID attaches the request correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return withMeta(ctx, func(m *requestMeta) { m.rid = rid })
}

// RIDFrom returns the correlation id, if any.
func RIDFrom(ctx context.Context) string { return metaOf(ctx).rid }

// WithUpdateMeta attaches the update, user and chat identifiers.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return withMeta(ctx, func(m *requestMeta) {
		m.updateID = updateID
		m.userID = userID
		m.chatID = chatID
	})
}

// WithHandler records which handler is serving the update.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withMeta(ctx, func(m *requestMeta) { m.handler = handler })
}

// HandlerFrom returns the handler name, if any.
func HandlerFrom(ctx context.Context) string { return metaOf(ctx).handler }

// UserIDFrom returns the Telegram user id, or 0.
func UserIDFrom(ctx context.Context) int64 { return metaOf(ctx).userID }

// ChatIDFrom returns the chat id, or 0.
func ChatIDFrom(ctx context.Context) int64 { return metaOf(ctx).chatID }

// UpdateIDFrom returns the update id, or 0.
func UpdateIDFrom(ctx context.Context) int { return metaOf(ctx).updateID }
