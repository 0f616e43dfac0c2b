// Package events defines the notifications produced by the question
// lifecycle. Delivery is best effort and never affects stored state.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/eldersbot/council/domain"
)

// Type identifies an event payload.
type Type string

const (
	TypeNewPendingQuestion Type = "new_pending_question"
	TypeQuestionAnswered   Type = "question_answered"
	TypeQuestionModerated  Type = "question_moderated"
)

// Envelope carries one payload with a unique id.
type Envelope struct {
	ID         uuid.UUID
	Type       Type
	OccurredAt time.Time
	Payload    any
}

// NewPendingQuestion goes to every moderator.
type NewPendingQuestion struct {
	QuestionID int64
	Text       string
}

// QuestionAnswered goes to the question author.
type QuestionAnswered struct {
	QuestionID   int64
	AuthorID     int64
	AnswerText   string
	AnswererName string
}

// QuestionModerated goes to the question author after a decision.
type QuestionModerated struct {
	QuestionID int64
	AuthorID   int64
	Text       string
	Decision   domain.Decision
}

// New wraps payload in an envelope stamped with a fresh id.
func New(payload any) Envelope {
	env := Envelope{
		ID:         uuid.New(),
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	switch payload.(type) {
	case NewPendingQuestion, *NewPendingQuestion:
		env.Type = TypeNewPendingQuestion
	case QuestionAnswered, *QuestionAnswered:
		env.Type = TypeQuestionAnswered
	case QuestionModerated, *QuestionModerated:
		env.Type = TypeQuestionModerated
	}
	return env
}

// Publisher receives events after the producing transaction committed.
type Publisher interface {
	Publish(ctx context.Context, env Envelope)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, env Envelope)

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, env Envelope) {
	f(ctx, env)
}

// Discard drops every event.
var Discard Publisher = PublisherFunc(func(context.Context, Envelope) {})

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Envelope
}

// Publish stores env.
func (r *Recorder) Publish(_ context.Context, env Envelope) {
	r.mu.Lock()
	r.events = append(r.events, env)
	r.mu.Unlock()
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Envelope, len(r.events))
	copy(out, r.events)
	return out
}

// OfType filters recorded events by type.
func (r *Recorder) OfType(t Type) []Envelope {
	var out []Envelope
	for _, env := range r.Events() {
		if env.Type == t {
			out = append(out, env)
		}
	}
	return out
}

// Reset clears the recorder.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
