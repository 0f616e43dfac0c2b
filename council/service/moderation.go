package service

import (
	"context"
	"log/slog"

	"github.com/m3rciful/eldersbot/core/logger"
	"github.com/m3rciful/eldersbot/council/domain"
	"github.com/m3rciful/eldersbot/council/events"
	"github.com/m3rciful/eldersbot/council/store"
)

// Decide resolves a pending question. Approval publishes it; rejection is
// terminal and purges its votes. The returned question reflects the new state
// and carries the author id for notification.
func (c *Council) Decide(ctx context.Context, questionID int64, decision domain.Decision) (domain.Question, error) {
	attrs := []slog.Attr{
		slog.Int64("question_id", questionID),
		slog.String("decision", string(decision)),
	}
	if !decision.Valid() {
		return domain.Question{}, fail(ctx, componentModeration, "question.decide", domain.ErrInvalidDecision, attrs...)
	}

	var q domain.Question
	err := c.store.InTx(ctx, func(tx store.Tx) error {
		var (
			ok  bool
			err error
		)
		q, ok, err = tx.LockQuestion(ctx, questionID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}
		if q.State != domain.StatePending {
			return domain.ErrNotPending
		}
		switch decision {
		case domain.DecisionApprove:
			if err := tx.LockCorpus(ctx); err != nil {
				return err
			}
			q.State = domain.StateApproved
		case domain.DecisionReject:
			if err := tx.DeleteVotes(ctx, questionID); err != nil {
				return err
			}
			q.State = domain.StateRejected
			q.NetScore = 0
			if err := tx.SetNetScore(ctx, questionID, 0); err != nil {
				return err
			}
		}
		if err := tx.SetQuestionState(ctx, questionID, q.State); err != nil {
			return err
		}
		return tx.Dequeue(ctx, questionID)
	})
	if err != nil {
		return domain.Question{}, fail(ctx, componentModeration, "question.decide", err, attrs...)
	}

	logger.Info(ctx, componentModeration, "question.decide",
		append(attrs,
			slog.String("status", "ok"),
			slog.Int64("actor_id", q.AuthorID),
		)...,
	)
	c.publish(ctx, events.QuestionModerated{
		QuestionID: q.ID,
		AuthorID:   q.AuthorID,
		Text:       q.Text,
		Decision:   decision,
	})
	return q, nil
}
