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

// Answer attaches an answer from an expert or moderator to an approved
// question and marks it answered. The question author is notified after
// commit.
func (c *Council) Answer(ctx context.Context, questionID, authorID int64, text string) error {
	attrs := []slog.Attr{
		slog.Int64("actor_id", authorID),
		slog.Int64("question_id", questionID),
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fail(ctx, componentAnswers, "answer.create", domain.ErrEmptyText, attrs...)
	}

	var (
		q        domain.Question
		answerer domain.Actor
	)
	err := c.store.InTx(ctx, func(tx store.Tx) error {
		var (
			ok  bool
			err error
		)
		answerer, ok, err = tx.GetActor(ctx, authorID)
		if err != nil {
			return err
		}
		if !ok || !answerer.Role.CanAnswer() {
			return domain.ErrForbidden
		}
		q, ok, err = tx.LockQuestion(ctx, questionID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}
		if q.State != domain.StateApproved {
			return domain.ErrQuestionNotApproved
		}
		if _, err := tx.InsertAnswer(ctx, domain.Answer{
			QuestionID: questionID,
			AuthorID:   authorID,
			Text:       text,
			CreatedAt:  c.clock(),
		}); err != nil {
			return err
		}
		q.Answered = true
		return tx.MarkAnswered(ctx, questionID)
	})
	if err != nil {
		return fail(ctx, componentAnswers, "answer.create", err, attrs...)
	}

	logger.Info(ctx, componentAnswers, "answer.create",
		append(attrs,
			slog.String("status", "ok"),
			slog.String("role", string(answerer.Role)),
		)...,
	)
	c.publish(ctx, events.QuestionAnswered{
		QuestionID:   questionID,
		AuthorID:     q.AuthorID,
		AnswerText:   text,
		AnswererName: answerer.DisplayName,
	})
	return nil
}
