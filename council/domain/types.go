// Package domain holds the question lifecycle model shared by the store,
// the services and the transport.
package domain

import (
	"strings"
	"time"
)

// Role is the privilege label attached to an actor.
type Role string

const (
	RoleAsker     Role = "asker"
	RoleExpert    Role = "expert"
	RoleModerator Role = "moderator"
)

// ParseRole accepts the canonical role names plus a few aliases used by operators.
func ParseRole(raw string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "asker", "user":
		return RoleAsker, true
	case "expert":
		return RoleExpert, true
	case "moderator", "moder", "mod":
		return RoleModerator, true
	}
	return "", false
}

// CanAnswer reports whether the role may attach answers to questions.
func (r Role) CanAnswer() bool {
	return r == RoleExpert || r == RoleModerator
}

// Actor is any identified participant.
type Actor struct {
	ID          int64
	DisplayName string
	Username    string
	Role        Role
	CreatedAt   time.Time
}

// State is the moderation state of a question.
type State string

const (
	StatePending  State = "pending"
	StateApproved State = "approved"
	StateRejected State = "rejected"
)

// Question is immutable except for State, Answered and NetScore.
type Question struct {
	ID        int64
	AuthorID  int64
	Text      string
	State     State
	Answered  bool
	NetScore  int64
	CreatedAt time.Time
}

// Answer belongs to an approved question.
type Answer struct {
	ID         int64
	QuestionID int64
	AuthorID   int64
	Text       string
	CreatedAt  time.Time
}

// AnswerView is an answer joined with its author for display.
type AnswerView struct {
	Answer
	AuthorName string
	AuthorRole Role
}

// VoteChoice is one of the two stored vote values. Neutral is the absence
// of a vote row and has no VoteChoice.
type VoteChoice string

const (
	VoteUp   VoteChoice = "up"
	VoteDown VoteChoice = "down"
)

// Valid reports whether c is a storable choice.
func (c VoteChoice) Valid() bool {
	return c == VoteUp || c == VoteDown
}

// Vote is keyed by (ActorID, QuestionID).
type Vote struct {
	ActorID    int64
	QuestionID int64
	Choice     VoteChoice
	CastAt     time.Time
}

// Decision is a moderator verdict on a pending question.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject
}
