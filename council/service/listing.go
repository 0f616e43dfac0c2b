package service

import (
	"context"
	"log/slog"

	"github.com/m3rciful/eldersbot/core/logger"
	"github.com/m3rciful/eldersbot/council/domain"
	"github.com/m3rciful/eldersbot/council/store"
)

// PageResult is one page of approved questions, newest first.
type PageResult struct {
	Items      []domain.Question
	Page       int
	PageSize   int
	TotalPages int
	Total      int
}

// QuestionView is an approved question with its answers and the viewer's vote.
type QuestionView struct {
	Question domain.Question
	Answers  []domain.AnswerView
	// MyVote is empty when the viewer has no vote.
	MyVote domain.VoteChoice
}

// TopN returns up to n approved questions by net score, ties by id.
func (c *Council) TopN(ctx context.Context, n int) ([]domain.Question, error) {
	if n <= 0 {
		return []domain.Question{}, nil
	}
	var out []domain.Question
	err := c.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListApprovedByScore(ctx, n)
		return err
	})
	if err != nil {
		return nil, fail(ctx, componentListing, "listing.top", err, slog.Int("limit", n))
	}
	if out == nil {
		out = []domain.Question{}
	}
	logger.Debug(ctx, componentListing, "listing.top",
		slog.String("status", "ok"),
		slog.Int("limit", n),
		slog.Int("count", len(out)),
	)
	return out, nil
}

// Page returns the 1-based page of approved questions. TotalPages is at least
// one; pages outside [1, TotalPages] come back empty.
func (c *Council) Page(ctx context.Context, page, size int) (PageResult, error) {
	attrs := []slog.Attr{slog.Int("page", page), slog.Int("page_size", size)}
	if size <= 0 {
		return PageResult{}, fail(ctx, componentListing, "listing.page", domain.ErrInvalidPage, attrs...)
	}

	res := PageResult{Page: page, PageSize: size, Items: []domain.Question{}}
	err := c.store.View(ctx, func(tx store.Tx) error {
		total, err := tx.CountApproved(ctx)
		if err != nil {
			return err
		}
		res.Total = total
		res.TotalPages = TotalPages(total, size)
		if page < 1 || page > res.TotalPages {
			return nil
		}
		items, err := tx.ListApprovedByCreated(ctx, size, (page-1)*size)
		if err != nil {
			return err
		}
		if items != nil {
			res.Items = items
		}
		return nil
	})
	if err != nil {
		return PageResult{}, fail(ctx, componentListing, "listing.page", err, attrs...)
	}
	logger.Debug(ctx, componentListing, "listing.page",
		append(attrs,
			slog.String("status", "ok"),
			slog.Int("count", len(res.Items)),
			slog.Int("total_pages", res.TotalPages),
		)...,
	)
	return res, nil
}

// TotalPages is ceil(total/size) clamped to at least one.
func TotalPages(total, size int) int {
	if size <= 0 || total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// View loads an approved question for display. Pending, rejected and unknown
// questions are all reported as not found.
func (c *Council) View(ctx context.Context, questionID, viewerID int64) (QuestionView, error) {
	attrs := []slog.Attr{slog.Int64("question_id", questionID), slog.Int64("actor_id", viewerID)}
	var out QuestionView
	err := c.store.View(ctx, func(tx store.Tx) error {
		q, ok, err := tx.GetQuestion(ctx, questionID)
		if err != nil {
			return err
		}
		if !ok || q.State != domain.StateApproved {
			return domain.ErrNotFound
		}
		out.Question = q
		if out.Answers, err = tx.ListAnswers(ctx, questionID); err != nil {
			return err
		}
		v, had, err := tx.GetVote(ctx, viewerID, questionID)
		if err != nil {
			return err
		}
		if had {
			out.MyVote = v.Choice
		}
		return nil
	})
	if err != nil {
		return QuestionView{}, fail(ctx, componentListing, "question.view", err, attrs...)
	}
	return out, nil
}

// Pending lists questions awaiting a decision, oldest first.
func (c *Council) Pending(ctx context.Context) ([]domain.Question, error) {
	var out []domain.Question
	err := c.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListPending(ctx)
		return err
	})
	if err != nil {
		return nil, fail(ctx, componentModeration, "queue.list", err)
	}
	return out, nil
}
