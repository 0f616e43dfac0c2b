package service

import (
	"context"
	"log/slog"

	"github.com/m3rciful/eldersbot/core/logger"
	"github.com/m3rciful/eldersbot/council/domain"
	"github.com/m3rciful/eldersbot/council/store"
)

// VoteOutcome reports the state after CastVote.
type VoteOutcome struct {
	NetScore int64
	// Choice is the actor's vote after the call; empty when withdrawn.
	Choice    domain.VoteChoice
	Withdrawn bool
}

// CastVote toggles the actor's vote on an approved question: repeating the
// current choice withdraws it, any other choice replaces it. The net score is
// recounted from the ledger in the same transaction.
func (c *Council) CastVote(ctx context.Context, actorID, questionID int64, choice domain.VoteChoice) (VoteOutcome, error) {
	attrs := []slog.Attr{
		slog.Int64("actor_id", actorID),
		slog.Int64("question_id", questionID),
		slog.String("choice", string(choice)),
	}
	if !choice.Valid() {
		return VoteOutcome{}, fail(ctx, componentVotes, "vote.cast", domain.ErrInvalidChoice, attrs...)
	}

	var out VoteOutcome
	err := c.store.InTx(ctx, func(tx store.Tx) error {
		out = VoteOutcome{}
		if _, ok, err := tx.GetActor(ctx, actorID); err != nil {
			return err
		} else if !ok {
			return domain.ErrUnknownActor
		}
		// row lock serializes concurrent voters on the same question
		q, ok, err := tx.LockQuestion(ctx, questionID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}
		if q.State != domain.StateApproved {
			return domain.ErrQuestionNotApproved
		}

		prev, had, err := tx.GetVote(ctx, actorID, questionID)
		if err != nil {
			return err
		}
		if had && prev.Choice == choice {
			if err := tx.DeleteVote(ctx, actorID, questionID); err != nil {
				return err
			}
			out.Withdrawn = true
		} else {
			v := domain.Vote{ActorID: actorID, QuestionID: questionID, Choice: choice, CastAt: c.clock()}
			if err := tx.PutVote(ctx, v); err != nil {
				return err
			}
			out.Choice = choice
		}

		up, down, err := tx.TallyVotes(ctx, questionID)
		if err != nil {
			return err
		}
		out.NetScore = up - down
		return tx.SetNetScore(ctx, questionID, out.NetScore)
	})
	if err != nil {
		return VoteOutcome{}, fail(ctx, componentVotes, "vote.cast", err, attrs...)
	}

	logger.Info(ctx, componentVotes, "vote.cast",
		append(attrs,
			slog.String("status", "ok"),
			slog.Bool("withdrawn", out.Withdrawn),
			slog.Int64("net_score", out.NetScore),
		)...,
	)
	return out, nil
}
