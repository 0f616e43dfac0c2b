// Package memstore is an in-process Store. Transactions run one at a time on
// a private copy of the data that replaces the live copy on commit.
package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/m3rciful/eldersbot/council/domain"
	"github.com/m3rciful/eldersbot/council/store"
)

// ErrReadOnly is returned by mutations attempted inside View.
var ErrReadOnly = errors.New("memstore: read-only transaction")

type voteKey struct {
	actorID    int64
	questionID int64
}

type queueEntry struct {
	questionID int64
	at         time.Time
}

type data struct {
	actors    map[int64]domain.Actor
	questions map[int64]domain.Question
	queue     []queueEntry
	votes     map[voteKey]domain.Vote
	answers   []domain.Answer

	nextQuestionID int64
	nextAnswerID   int64
}

func newData() *data {
	return &data{
		actors:         make(map[int64]domain.Actor),
		questions:      make(map[int64]domain.Question),
		votes:          make(map[voteKey]domain.Vote),
		nextQuestionID: 1,
		nextAnswerID:   1,
	}
}

func (d *data) clone() *data {
	c := &data{
		actors:         make(map[int64]domain.Actor, len(d.actors)),
		questions:      make(map[int64]domain.Question, len(d.questions)),
		queue:          append([]queueEntry(nil), d.queue...),
		votes:          make(map[voteKey]domain.Vote, len(d.votes)),
		answers:        append([]domain.Answer(nil), d.answers...),
		nextQuestionID: d.nextQuestionID,
		nextAnswerID:   d.nextAnswerID,
	}
	for k, v := range d.actors {
		c.actors[k] = v
	}
	for k, v := range d.questions {
		c.questions[k] = v
	}
	for k, v := range d.votes {
		c.votes[k] = v
	}
	return c
}

// Store keeps everything in memory.
type Store struct {
	mu  sync.RWMutex
	cur *data
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{cur: newData(), now: time.Now}
}

// InTx runs fn against a copy and publishes the copy only when fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.cur.clone()
	if err := fn(&tx{d: work, now: s.now}); err != nil {
		return err
	}
	s.cur = work
	return nil
}

// View runs fn against the live data; mutations fail with ErrReadOnly.
func (s *Store) View(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&tx{d: s.cur, now: s.now, readOnly: true})
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

type tx struct {
	d        *data
	now      func() time.Time
	readOnly bool
}

func (t *tx) writable() error {
	if t.readOnly {
		return ErrReadOnly
	}
	return nil
}

func (t *tx) UpsertActor(_ context.Context, a domain.Actor) (domain.Actor, error) {
	if err := t.writable(); err != nil {
		return domain.Actor{}, err
	}
	if existing, ok := t.d.actors[a.ID]; ok {
		existing.DisplayName = a.DisplayName
		existing.Username = a.Username
		t.d.actors[a.ID] = existing
		return existing, nil
	}
	if a.Role == "" {
		a.Role = domain.RoleAsker
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = t.now().UTC()
	}
	t.d.actors[a.ID] = a
	return a, nil
}

func (t *tx) GetActor(_ context.Context, id int64) (domain.Actor, bool, error) {
	a, ok := t.d.actors[id]
	return a, ok, nil
}

func (t *tx) SetActorRole(_ context.Context, id int64, role domain.Role) error {
	if err := t.writable(); err != nil {
		return err
	}
	a, ok := t.d.actors[id]
	if !ok {
		a = domain.Actor{ID: id, CreatedAt: t.now().UTC()}
	}
	a.Role = role
	t.d.actors[id] = a
	return nil
}

func (t *tx) ListActorIDsByRole(_ context.Context, role domain.Role) ([]int64, error) {
	var ids []int64
	for id, a := range t.d.actors {
		if a.Role == role {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// LockCorpus is implied by the store-wide lock.
func (t *tx) LockCorpus(context.Context) error { return nil }

func (t *tx) ApprovedTexts(context.Context) ([]string, error) {
	qs := t.approved()
	sort.Slice(qs, func(i, j int) bool { return qs[i].ID < qs[j].ID })
	out := make([]string, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.Text)
	}
	return out, nil
}

func (t *tx) InsertQuestion(_ context.Context, authorID int64, text string, createdAt time.Time) (domain.Question, error) {
	if err := t.writable(); err != nil {
		return domain.Question{}, err
	}
	q := domain.Question{
		ID:        t.d.nextQuestionID,
		AuthorID:  authorID,
		Text:      text,
		State:     domain.StatePending,
		CreatedAt: createdAt,
	}
	t.d.nextQuestionID++
	t.d.questions[q.ID] = q
	return q, nil
}

func (t *tx) GetQuestion(_ context.Context, id int64) (domain.Question, bool, error) {
	q, ok := t.d.questions[id]
	return q, ok, nil
}

func (t *tx) LockQuestion(ctx context.Context, id int64) (domain.Question, bool, error) {
	return t.GetQuestion(ctx, id)
}

func (t *tx) update(id int64, fn func(*domain.Question)) error {
	if err := t.writable(); err != nil {
		return err
	}
	q, ok := t.d.questions[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(&q)
	t.d.questions[id] = q
	return nil
}

func (t *tx) SetQuestionState(_ context.Context, id int64, state domain.State) error {
	return t.update(id, func(q *domain.Question) { q.State = state })
}

func (t *tx) MarkAnswered(_ context.Context, id int64) error {
	return t.update(id, func(q *domain.Question) { q.Answered = true })
}

func (t *tx) SetNetScore(_ context.Context, id int64, score int64) error {
	return t.update(id, func(q *domain.Question) { q.NetScore = score })
}

func (t *tx) approved() []domain.Question {
	var out []domain.Question
	for _, q := range t.d.questions {
		if q.State == domain.StateApproved {
			out = append(out, q)
		}
	}
	return out
}

func (t *tx) CountApproved(context.Context) (int, error) {
	return len(t.approved()), nil
}

func (t *tx) ListApprovedByCreated(_ context.Context, limit, offset int) ([]domain.Question, error) {
	qs := t.approved()
	sort.Slice(qs, func(i, j int) bool {
		if !qs[i].CreatedAt.Equal(qs[j].CreatedAt) {
			return qs[i].CreatedAt.After(qs[j].CreatedAt)
		}
		return qs[i].ID > qs[j].ID
	})
	return window(qs, limit, offset), nil
}

func (t *tx) ListApprovedByScore(_ context.Context, limit int) ([]domain.Question, error) {
	qs := t.approved()
	sort.Slice(qs, func(i, j int) bool {
		if qs[i].NetScore != qs[j].NetScore {
			return qs[i].NetScore > qs[j].NetScore
		}
		return qs[i].ID < qs[j].ID
	})
	return window(qs, limit, 0), nil
}

func window(qs []domain.Question, limit, offset int) []domain.Question {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(qs) || limit <= 0 {
		return []domain.Question{}
	}
	end := offset + limit
	if end > len(qs) {
		end = len(qs)
	}
	return append([]domain.Question(nil), qs[offset:end]...)
}

func (t *tx) Enqueue(_ context.Context, questionID int64, at time.Time) error {
	if err := t.writable(); err != nil {
		return err
	}
	for _, e := range t.d.queue {
		if e.questionID == questionID {
			return nil
		}
	}
	t.d.queue = append(t.d.queue, queueEntry{questionID: questionID, at: at})
	return nil
}

func (t *tx) Dequeue(_ context.Context, questionID int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	kept := t.d.queue[:0]
	for _, e := range t.d.queue {
		if e.questionID != questionID {
			kept = append(kept, e)
		}
	}
	t.d.queue = kept
	return nil
}

func (t *tx) ListPending(context.Context) ([]domain.Question, error) {
	entries := append([]queueEntry(nil), t.d.queue...)
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].at.Equal(entries[j].at) {
			return entries[i].at.Before(entries[j].at)
		}
		return entries[i].questionID < entries[j].questionID
	})
	out := make([]domain.Question, 0, len(entries))
	for _, e := range entries {
		if q, ok := t.d.questions[e.questionID]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (t *tx) GetVote(_ context.Context, actorID, questionID int64) (domain.Vote, bool, error) {
	v, ok := t.d.votes[voteKey{actorID, questionID}]
	return v, ok, nil
}

func (t *tx) PutVote(_ context.Context, v domain.Vote) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.d.questions[v.QuestionID]; !ok {
		return domain.ErrNotFound
	}
	if v.CastAt.IsZero() {
		v.CastAt = t.now().UTC()
	}
	t.d.votes[voteKey{v.ActorID, v.QuestionID}] = v
	return nil
}

func (t *tx) DeleteVote(_ context.Context, actorID, questionID int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	delete(t.d.votes, voteKey{actorID, questionID})
	return nil
}

func (t *tx) DeleteVotes(_ context.Context, questionID int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	for k := range t.d.votes {
		if k.questionID == questionID {
			delete(t.d.votes, k)
		}
	}
	return nil
}

func (t *tx) TallyVotes(_ context.Context, questionID int64) (int64, int64, error) {
	var up, down int64
	for k, v := range t.d.votes {
		if k.questionID != questionID {
			continue
		}
		switch v.Choice {
		case domain.VoteUp:
			up++
		case domain.VoteDown:
			down++
		}
	}
	return up, down, nil
}

func (t *tx) InsertAnswer(_ context.Context, a domain.Answer) (domain.Answer, error) {
	if err := t.writable(); err != nil {
		return domain.Answer{}, err
	}
	if _, ok := t.d.questions[a.QuestionID]; !ok {
		return domain.Answer{}, domain.ErrNotFound
	}
	a.ID = t.d.nextAnswerID
	t.d.nextAnswerID++
	if a.CreatedAt.IsZero() {
		a.CreatedAt = t.now().UTC()
	}
	t.d.answers = append(t.d.answers, a)
	return a, nil
}

func (t *tx) ListAnswers(_ context.Context, questionID int64) ([]domain.AnswerView, error) {
	var out []domain.AnswerView
	for _, a := range t.d.answers {
		if a.QuestionID != questionID {
			continue
		}
		view := domain.AnswerView{Answer: a}
		if actor, ok := t.d.actors[a.AuthorID]; ok {
			view.AuthorName = actor.DisplayName
			view.AuthorRole = actor.Role
		}
		out = append(out, view)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
