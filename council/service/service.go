// Package service implements the question lifecycle: submission, moderation,
// voting, answering and the listing views. Every mutation is one store
// transaction; events are published only after it commits.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m3rciful/eldersbot/core/logger"
	"github.com/m3rciful/eldersbot/council/domain"
	"github.com/m3rciful/eldersbot/council/events"
	"github.com/m3rciful/eldersbot/council/similarity"
	"github.com/m3rciful/eldersbot/council/store"
)

const (
	componentQuestions  = "service.questions"
	componentModeration = "service.moderation"
	componentVotes      = "service.votes"
	componentAnswers    = "service.answers"
	componentListing    = "service.listing"
	componentActors     = "service.actors"
)

// ContentFilter decides whether text carries prohibited terms.
type ContentFilter interface {
	Violates(ctx context.Context, text string) bool
}

// Options wires a Council.
type Options struct {
	Store  store.Store
	Filter ContentFilter
	Gate   similarity.Gate
	Events events.Publisher
	Now    func() time.Time
}

// Council exposes the core operations to the transport.
type Council struct {
	store  store.Store
	filter ContentFilter
	gate   similarity.Gate
	events events.Publisher
	now    func() time.Time
}

// New builds a Council. A nil Filter allows everything and a nil Events
// publisher drops notifications.
func New(opts Options) *Council {
	c := &Council{
		store:  opts.Store,
		filter: opts.Filter,
		gate:   similarity.NewGate(opts.Gate.Threshold),
		events: opts.Events,
		now:    opts.Now,
	}
	if c.events == nil {
		c.events = events.Discard
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

func (c *Council) clock() time.Time {
	return c.now().UTC()
}

func (c *Council) publish(ctx context.Context, payload any) {
	env := events.New(payload)
	logger.Debug(ctx, "notify", "event.publish",
		slog.String("event_id", env.ID.String()),
		slog.String("event_type", string(env.Type)),
	)
	c.events.Publish(ctx, env)
}

// fail logs err at a level matching its kind and returns it classified.
func fail(ctx context.Context, component, event string, err error, attrs ...slog.Attr) error {
	err = domain.Storage(err)
	code := ""
	var de *domain.Error
	if errors.As(err, &de) {
		code = de.Code()
	}
	attrs = append(attrs,
		slog.String("status", "fail"),
		slog.String("err_code", code),
	)
	if domain.KindOf(err) == domain.KindStorage {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
		logger.Error(ctx, component, event, attrs...)
		return err
	}
	logger.Warn(ctx, component, event, attrs...)
	return err
}
