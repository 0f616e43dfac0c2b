package state

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/m3rciful/eldersbot/core/logger"
	"github.com/redis/go-redis/v9"
)

const (
	defaultSessionTTL   = 24 * time.Hour
	defaultRedisTimeout = 2 * time.Second
	defaultKeyPrefix    = "fsm"
)

// RedisOptions configures NewRedisManager.
type RedisOptions struct {
	Prefix  string
	TTL     time.Duration
	Timeout time.Duration
}

type redisBackend struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

// NewRedisManager stores sessions as JSON documents under <prefix>:<user id>.
// Every write refreshes the TTL, so abandoned prompts expire on their own.
// Redis failures are logged and the user is treated as idle.
func NewRedisManager(client *redis.Client, opts RedisOptions) Manager {
	b := &redisBackend{
		client:  client,
		prefix:  cmp.Or(opts.Prefix, defaultKeyPrefix),
		ttl:     opts.TTL,
		timeout: opts.Timeout,
	}
	if b.ttl <= 0 {
		b.ttl = defaultSessionTTL
	}
	if b.timeout <= 0 {
		b.timeout = defaultRedisTimeout
	}
	return manager{b: b}
}

func (b *redisBackend) key(userID int64) string {
	return b.prefix + ":" + strconv.FormatInt(userID, 10)
}

func (b *redisBackend) read(ctx context.Context, userID int64) (*Session, error) {
	raw, err := b.client.Get(ctx, b.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return newSession(), nil
	}
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	sess := newSession()
	if err := dec.Decode(sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if sess.TempData == nil {
		sess.TempData = make(map[string]any)
	}
	return sess, nil
}

func (b *redisBackend) write(ctx context.Context, userID int64, sess *Session) error {
	if sess.idle() {
		return b.client.Del(ctx, b.key(userID)).Err()
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return b.client.Set(ctx, b.key(userID), data, b.ttl).Err()
}

func (b *redisBackend) load(userID int64) *Session {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	sess, err := b.read(ctx, userID)
	if err != nil {
		b.warn(ctx, "session.load", userID, err)
		return newSession()
	}
	return sess
}

// update is a read-modify-write without WATCH; one user only ever has one
// update in flight.
func (b *redisBackend) update(userID int64, fn func(*Session)) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	sess, err := b.read(ctx, userID)
	if err != nil {
		b.warn(ctx, "session.load", userID, err)
		sess = newSession()
	}
	fn(sess)
	if err := b.write(ctx, userID, sess); err != nil {
		b.warn(ctx, "session.save", userID, err)
	}
}

func (b *redisBackend) clear(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	if err := b.client.Del(ctx, b.key(userID)).Err(); err != nil {
		b.warn(ctx, "session.clear", userID, err)
	}
}

func (b *redisBackend) warn(ctx context.Context, event string, userID int64, err error) {
	logger.Warn(ctx, "tg.state", event,
		slog.String("status", "fail"),
		slog.Int64("user_id", userID),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
}
