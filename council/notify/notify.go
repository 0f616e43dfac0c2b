// Package notify turns lifecycle events into chat messages and delivers
// them. Delivery failures are logged per recipient and never surface to the
// operation that produced the event.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/eldersbot/core/logger"
	"github.com/m3rciful/eldersbot/council/domain"
	"github.com/m3rciful/eldersbot/council/events"
)

// Sender delivers one text message to one recipient.
type Sender interface {
	Send(ctx context.Context, recipientID int64, text string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, recipientID int64, text string) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, recipientID int64, text string) error {
	return f(ctx, recipientID, text)
}

// Directory resolves broadcast audiences.
type Directory interface {
	Moderators(ctx context.Context) ([]int64, error)
}

// Router implements events.Publisher.
type Router struct {
	dir   Directory
	limit int

	mu     sync.RWMutex
	sender Sender
}

var _ events.Publisher = (*Router)(nil)

// NewRouter builds a router. The sender may be attached later with SetSender;
// until then events are dropped with a debug line.
func NewRouter(dir Directory, sender Sender) *Router {
	return &Router{dir: dir, sender: sender, limit: 8}
}

// SetSender swaps the delivery channel.
func (r *Router) SetSender(s Sender) {
	r.mu.Lock()
	r.sender = s
	r.mu.Unlock()
}

func (r *Router) currentSender() Sender {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sender
}

// Publish resolves recipients for env and sends the rendered text to each.
func (r *Router) Publish(ctx context.Context, env events.Envelope) {
	attrs := []slog.Attr{
		slog.String("event_id", env.ID.String()),
		slog.String("event_type", string(env.Type)),
	}
	s := r.currentSender()
	if s == nil {
		logger.Debug(ctx, "notify", "notify.skip", append(attrs, slog.String("status", "skip"))...)
		return
	}
	text, ok := Render(env)
	if !ok {
		logger.Warn(ctx, "notify", "notify.render", append(attrs, slog.String("status", "skip"))...)
		return
	}
	recipients, err := r.Recipients(ctx, env)
	if err != nil {
		logger.Error(ctx, "notify", "notify.recipients",
			append(attrs, slog.String("status", "fail"), slog.String("err", err.Error()))...)
		return
	}

	var (
		mu     sync.Mutex
		failed int
		g      errgroup.Group
	)
	g.SetLimit(r.limit)
	for _, id := range recipients {
		g.Go(func() error {
			if err := s.Send(ctx, id, text); err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				logger.Warn(ctx, "notify", "notify.deliver",
					append(attrs,
						slog.String("status", "fail"),
						slog.Int64("recipient_id", id),
						slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
					)...,
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	status := "ok"
	if failed > 0 {
		status = "fail"
	}
	logger.Info(ctx, "notify", "notify.deliver",
		append(attrs,
			slog.String("status", status),
			slog.Int("recipients", len(recipients)),
			slog.Int("failed", failed),
		)...,
	)
}

// Recipients lists who should receive env.
func (r *Router) Recipients(ctx context.Context, env events.Envelope) ([]int64, error) {
	switch p := env.Payload.(type) {
	case events.NewPendingQuestion, *events.NewPendingQuestion:
		if r.dir == nil {
			return nil, nil
		}
		ids, err := r.dir.Moderators(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve moderators: %w", err)
		}
		return ids, nil
	case events.QuestionAnswered:
		return []int64{p.AuthorID}, nil
	case *events.QuestionAnswered:
		return []int64{p.AuthorID}, nil
	case events.QuestionModerated:
		return []int64{p.AuthorID}, nil
	case *events.QuestionModerated:
		return []int64{p.AuthorID}, nil
	}
	return nil, nil
}

// Render produces the message text for env.
func Render(env events.Envelope) (string, bool) {
	switch p := env.Payload.(type) {
	case events.NewPendingQuestion:
		return renderPending(p), true
	case *events.NewPendingQuestion:
		return renderPending(*p), true
	case events.QuestionAnswered:
		return renderAnswered(p), true
	case *events.QuestionAnswered:
		return renderAnswered(*p), true
	case events.QuestionModerated:
		return renderModerated(p), true
	case *events.QuestionModerated:
		return renderModerated(*p), true
	}
	return "", false
}

func renderPending(p events.NewPendingQuestion) string {
	return fmt.Sprintf("New question #%d awaits moderation:\n\n%s\n\nUse /pending to review.", p.QuestionID, p.Text)
}

func renderAnswered(p events.QuestionAnswered) string {
	name := p.AnswererName
	if name == "" {
		name = "An expert"
	}
	return fmt.Sprintf("%s answered your question #%d:\n\n%s", name, p.QuestionID, p.AnswerText)
}

func renderModerated(p events.QuestionModerated) string {
	if p.Decision == domain.DecisionApprove {
		return fmt.Sprintf("Your question #%d was approved and is now public:\n\n%s", p.QuestionID, p.Text)
	}
	return fmt.Sprintf("Your question #%d was rejected by a moderator:\n\n%s", p.QuestionID, p.Text)
}
