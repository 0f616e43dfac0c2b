package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m3rciful/eldersbot/council/domain"
	"github.com/m3rciful/eldersbot/council/store"
)

func TestInTxRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx store.Tx) error {
		q, err := tx.InsertQuestion(ctx, 1, "half written", time.Now())
		if err != nil {
			return err
		}
		if err := tx.Enqueue(ctx, q.ID, time.Now()); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx err = %v, want boom", err)
	}

	err = s.View(ctx, func(tx store.Tx) error {
		if _, ok, _ := tx.GetQuestion(ctx, 1); ok {
			t.Fatal("rolled back question is visible")
		}
		pending, _ := tx.ListPending(ctx)
		if len(pending) != 0 {
			t.Fatalf("pending = %d, want 0", len(pending))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestViewIsReadOnly(t *testing.T) {
	s := New()
	ctx := context.Background()
	err := s.View(ctx, func(tx store.Tx) error {
		_, err := tx.InsertQuestion(ctx, 1, "q", time.Now())
		return err
	})
	if !errors.Is(err, ErrReadOnly) {
		t.Fatalf("err = %v, want ErrReadOnly", err)
	}
}

func TestUpsertActorKeepsRole(t *testing.T) {
	s := New()
	ctx := context.Background()
	err := s.InTx(ctx, func(tx store.Tx) error {
		if err := tx.SetActorRole(ctx, 7, domain.RoleExpert); err != nil {
			return err
		}
		a, err := tx.UpsertActor(ctx, domain.Actor{ID: 7, DisplayName: "Ann"})
		if err != nil {
			return err
		}
		if a.Role != domain.RoleExpert || a.DisplayName != "Ann" {
			t.Fatalf("actor = %+v", a)
		}
		b, err := tx.UpsertActor(ctx, domain.Actor{ID: 8, DisplayName: "Bob"})
		if err != nil {
			return err
		}
		if b.Role != domain.RoleAsker {
			t.Fatalf("new actor role = %s, want asker", b.Role)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
}

func TestListingOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	err := s.InTx(ctx, func(tx store.Tx) error {
		scores := []int64{1, 5, 5, -2}
		for i, sc := range scores {
			q, err := tx.InsertQuestion(ctx, 1, "q", base.Add(time.Duration(i)*time.Minute))
			if err != nil {
				return err
			}
			if err := tx.SetQuestionState(ctx, q.ID, domain.StateApproved); err != nil {
				return err
			}
			if err := tx.SetNetScore(ctx, q.ID, sc); err != nil {
				return err
			}
		}
		// same timestamp as question 4; id breaks the tie
		q, err := tx.InsertQuestion(ctx, 1, "q", base.Add(3*time.Minute))
		if err != nil {
			return err
		}
		return tx.SetQuestionState(ctx, q.ID, domain.StateApproved)
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	_ = s.View(ctx, func(tx store.Tx) error {
		top, _ := tx.ListApprovedByScore(ctx, 3)
		if got := ids(top); !equal(got, []int64{2, 3, 1}) {
			t.Fatalf("top = %v", got)
		}
		page, _ := tx.ListApprovedByCreated(ctx, 2, 0)
		if got := ids(page); !equal(got, []int64{5, 4}) {
			t.Fatalf("page = %v", got)
		}
		tail, _ := tx.ListApprovedByCreated(ctx, 2, 4)
		if got := ids(tail); !equal(got, []int64{1}) {
			t.Fatalf("tail = %v", got)
		}
		past, _ := tx.ListApprovedByCreated(ctx, 2, 10)
		if past == nil || len(past) != 0 {
			t.Fatalf("past end = %v, want empty slice", past)
		}
		return nil
	})
}

func TestQueueAndVotes(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()
	err := s.InTx(ctx, func(tx store.Tx) error {
		q1, _ := tx.InsertQuestion(ctx, 1, "a", now)
		q2, _ := tx.InsertQuestion(ctx, 1, "b", now)
		_ = tx.Enqueue(ctx, q2.ID, now)
		_ = tx.Enqueue(ctx, q1.ID, now.Add(time.Second))
		_ = tx.Enqueue(ctx, q1.ID, now.Add(time.Hour))

		pending, _ := tx.ListPending(ctx)
		if got := ids(pending); !equal(got, []int64{q2.ID, q1.ID}) {
			t.Fatalf("pending = %v", got)
		}
		_ = tx.Dequeue(ctx, q2.ID)
		pending, _ = tx.ListPending(ctx)
		if got := ids(pending); !equal(got, []int64{q1.ID}) {
			t.Fatalf("pending after dequeue = %v", got)
		}

		_ = tx.PutVote(ctx, domain.Vote{ActorID: 1, QuestionID: q1.ID, Choice: domain.VoteUp})
		_ = tx.PutVote(ctx, domain.Vote{ActorID: 2, QuestionID: q1.ID, Choice: domain.VoteDown})
		_ = tx.PutVote(ctx, domain.Vote{ActorID: 3, QuestionID: q1.ID, Choice: domain.VoteUp})
		_ = tx.PutVote(ctx, domain.Vote{ActorID: 3, QuestionID: q2.ID, Choice: domain.VoteUp})
		up, down, _ := tx.TallyVotes(ctx, q1.ID)
		if up != 2 || down != 1 {
			t.Fatalf("tally = %d/%d", up, down)
		}
		_ = tx.DeleteVotes(ctx, q1.ID)
		up, down, _ = tx.TallyVotes(ctx, q1.ID)
		if up != 0 || down != 0 {
			t.Fatalf("tally after purge = %d/%d", up, down)
		}
		if _, ok, _ := tx.GetVote(ctx, 3, q2.ID); !ok {
			t.Fatal("vote on other question was purged")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
}

func ids(qs []domain.Question) []int64 {
	out := make([]int64, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.ID)
	}
	return out
}

func equal(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
