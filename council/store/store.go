// Package store declares the transactional persistence contract used by the
// council services. Every multi-step mutation runs inside one InTx call and
// either commits as a whole or leaves no trace.
package store

import (
	"context"
	"time"

	"github.com/m3rciful/eldersbot/council/domain"
)

// Store opens units of work.
type Store interface {
	// InTx runs fn in a read-write transaction. A non-nil error from fn rolls
	// back and is returned as is.
	InTx(ctx context.Context, fn func(Tx) error) error
	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(Tx) error) error
	Close() error
}

// Tx is the set of primitives available inside a unit of work. Lookups
// report absence through the bool result rather than an error.
type Tx interface {
	ActorTx
	QuestionTx
	QueueTx
	VoteTx
	AnswerTx
}

// ActorTx manages participants.
type ActorTx interface {
	// UpsertActor creates the actor or refreshes its names. The stored role is
	// kept for existing actors; a zero Role on insert becomes asker.
	UpsertActor(ctx context.Context, a domain.Actor) (domain.Actor, error)
	GetActor(ctx context.Context, id int64) (domain.Actor, bool, error)
	// SetActorRole creates a nameless actor when id is unknown.
	SetActorRole(ctx context.Context, id int64, role domain.Role) error
	ListActorIDsByRole(ctx context.Context, role domain.Role) ([]int64, error)
}

// QuestionTx manages questions.
type QuestionTx interface {
	// LockCorpus serializes duplicate checks against approvals until the
	// transaction ends.
	LockCorpus(ctx context.Context) error
	ApprovedTexts(ctx context.Context) ([]string, error)
	InsertQuestion(ctx context.Context, authorID int64, text string, createdAt time.Time) (domain.Question, error)
	GetQuestion(ctx context.Context, id int64) (domain.Question, bool, error)
	// LockQuestion reads the row and holds it until the transaction ends.
	LockQuestion(ctx context.Context, id int64) (domain.Question, bool, error)
	SetQuestionState(ctx context.Context, id int64, state domain.State) error
	MarkAnswered(ctx context.Context, id int64) error
	SetNetScore(ctx context.Context, id int64, score int64) error

	CountApproved(ctx context.Context) (int, error)
	// ListApprovedByCreated orders by created_at desc, id desc.
	ListApprovedByCreated(ctx context.Context, limit, offset int) ([]domain.Question, error)
	// ListApprovedByScore orders by net_score desc, id asc.
	ListApprovedByScore(ctx context.Context, limit int) ([]domain.Question, error)
}

// QueueTx manages moderation queue markers.
type QueueTx interface {
	Enqueue(ctx context.Context, questionID int64, at time.Time) error
	Dequeue(ctx context.Context, questionID int64) error
	// ListPending returns queued questions, oldest entry first.
	ListPending(ctx context.Context) ([]domain.Question, error)
}

// VoteTx manages the vote ledger.
type VoteTx interface {
	GetVote(ctx context.Context, actorID, questionID int64) (domain.Vote, bool, error)
	PutVote(ctx context.Context, v domain.Vote) error
	DeleteVote(ctx context.Context, actorID, questionID int64) error
	DeleteVotes(ctx context.Context, questionID int64) error
	TallyVotes(ctx context.Context, questionID int64) (up, down int64, err error)
}

// AnswerTx manages answers.
type AnswerTx interface {
	InsertAnswer(ctx context.Context, a domain.Answer) (domain.Answer, error)
	// ListAnswers orders by created_at asc, id asc.
	ListAnswers(ctx context.Context, questionID int64) ([]domain.AnswerView, error)
}
