package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/eldersbot/core/logger"
	"github.com/m3rciful/eldersbot/council/domain"
	"github.com/m3rciful/eldersbot/council/events"
	"github.com/m3rciful/eldersbot/council/store"
)

// Submit validates text and stores it as a pending question together with
// its moderation queue entry. Moderators are notified after commit.
func (c *Council) Submit(ctx context.Context, authorID int64, text string) (int64, error) {
	attrs := []slog.Attr{slog.Int64("actor_id", authorID)}
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fail(ctx, componentQuestions, "question.submit", domain.ErrEmptyText, attrs...)
	}
	if c.filter != nil && c.filter.Violates(ctx, text) {
		return 0, fail(ctx, componentQuestions, "question.submit", domain.ErrProhibitedContent, attrs...)
	}

	var q domain.Question
	err := c.store.InTx(ctx, func(tx store.Tx) error {
		if _, ok, err := tx.GetActor(ctx, authorID); err != nil {
			return err
		} else if !ok {
			return domain.ErrUnknownActor
		}
		// held until commit so a concurrent approval cannot slip a twin past the gate
		if err := tx.LockCorpus(ctx); err != nil {
			return err
		}
		corpus, err := tx.ApprovedTexts(ctx)
		if err != nil {
			return err
		}
		if idx, dup := c.gate.Match(text, corpus); dup {
			attrs = append(attrs, slog.Int("corpus_index", idx))
			return domain.ErrDuplicateQuestion
		}
		now := c.clock()
		q, err = tx.InsertQuestion(ctx, authorID, text, now)
		if err != nil {
			return err
		}
		return tx.Enqueue(ctx, q.ID, now)
	})
	if err != nil {
		return 0, fail(ctx, componentQuestions, "question.submit", err, attrs...)
	}

	logger.Info(ctx, componentQuestions, "question.submit",
		slog.String("status", "ok"),
		slog.Int64("actor_id", authorID),
		slog.Int64("question_id", q.ID),
		slog.Int("text_len", len([]rune(text))),
	)
	c.publish(ctx, events.NewPendingQuestion{QuestionID: q.ID, Text: q.Text})
	return q.ID, nil
}
