// Package pgstore implements store.Store on PostgreSQL through sqlx.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	coredatabase "github.com/m3rciful/eldersbot/core/database"
	"github.com/m3rciful/eldersbot/council/domain"
	"github.com/m3rciful/eldersbot/council/store"
)

// corpusLockKey names the advisory lock taken around duplicate checks and approvals.
const corpusLockKey int64 = 0x656c646572

// Store wraps a pooled connection.
type Store struct {
	db *sqlx.DB
}

var _ store.Store = (*Store)(nil)

// New returns a Store using db. The caller owns migrations.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// InTx runs fn at read committed; row locks and the corpus lock provide the
// ordering the services need.
func (s *Store) InTx(ctx context.Context, fn func(store.Tx) error) error {
	return coredatabase.WithTx(ctx, s.db, coredatabase.TxOptions{Isolation: sql.LevelReadCommitted},
		func(tx *sqlx.Tx) error {
			return fn(&pgTx{tx: tx})
		})
}

// View runs fn in a read-only transaction.
func (s *Store) View(ctx context.Context, fn func(store.Tx) error) error {
	return coredatabase.WithTx(ctx, s.db, coredatabase.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true},
		func(tx *sqlx.Tx) error {
			return fn(&pgTx{tx: tx})
		})
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

type pgTx struct {
	tx *sqlx.Tx
}

type actorRow struct {
	ID          int64     `db:"id"`
	DisplayName string    `db:"display_name"`
	Username    string    `db:"username"`
	Role        string    `db:"role"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r actorRow) domain() domain.Actor {
	return domain.Actor{
		ID:          r.ID,
		DisplayName: r.DisplayName,
		Username:    r.Username,
		Role:        domain.Role(r.Role),
		CreatedAt:   r.CreatedAt,
	}
}

type questionRow struct {
	ID        int64     `db:"id"`
	AuthorID  int64     `db:"author_id"`
	Text      string    `db:"text"`
	State     string    `db:"state"`
	Answered  bool      `db:"answered"`
	NetScore  int64     `db:"net_score"`
	CreatedAt time.Time `db:"created_at"`
}

func (r questionRow) domain() domain.Question {
	return domain.Question{
		ID:        r.ID,
		AuthorID:  r.AuthorID,
		Text:      r.Text,
		State:     domain.State(r.State),
		Answered:  r.Answered,
		NetScore:  r.NetScore,
		CreatedAt: r.CreatedAt,
	}
}

func questions(rows []questionRow) []domain.Question {
	out := make([]domain.Question, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.domain())
	}
	return out
}

const questionCols = `q.id, q.author_id, q.text, q.state, q.answered, q.net_score, q.created_at`

// mapErr translates constraint violations into domain errors.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if coredatabase.SQLState(err) == coredatabase.CodeForeignKeyViolation {
		return fmt.Errorf("%s: %w", op, domain.ErrUnknownActor)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (t *pgTx) UpsertActor(ctx context.Context, a domain.Actor) (domain.Actor, error) {
	role := a.Role
	if role == "" {
		role = domain.RoleAsker
	}
	var row actorRow
	err := t.tx.GetContext(ctx, &row, `
		INSERT INTO actors (id, display_name, username, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET display_name = EXCLUDED.display_name, username = EXCLUDED.username
		RETURNING id, display_name, username, role, created_at
	`, a.ID, a.DisplayName, a.Username, string(role))
	if err != nil {
		return domain.Actor{}, fmt.Errorf("upsert actor: %w", err)
	}
	return row.domain(), nil
}

func (t *pgTx) GetActor(ctx context.Context, id int64) (domain.Actor, bool, error) {
	var row actorRow
	err := t.tx.GetContext(ctx, &row,
		`SELECT id, display_name, username, role, created_at FROM actors WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Actor{}, false, nil
	}
	if err != nil {
		return domain.Actor{}, false, fmt.Errorf("get actor: %w", err)
	}
	return row.domain(), true, nil
}

func (t *pgTx) SetActorRole(ctx context.Context, id int64, role domain.Role) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO actors (id, role) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET role = EXCLUDED.role
	`, id, string(role))
	if err != nil {
		return fmt.Errorf("set actor role: %w", err)
	}
	return nil
}

func (t *pgTx) ListActorIDsByRole(ctx context.Context, role domain.Role) ([]int64, error) {
	var ids []int64
	if err := t.tx.SelectContext(ctx, &ids,
		`SELECT id FROM actors WHERE role = $1 ORDER BY id`, string(role)); err != nil {
		return nil, fmt.Errorf("list actors by role: %w", err)
	}
	return ids, nil
}

func (t *pgTx) LockCorpus(ctx context.Context) error {
	if _, err := t.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, corpusLockKey); err != nil {
		return fmt.Errorf("lock corpus: %w", err)
	}
	return nil
}

func (t *pgTx) ApprovedTexts(ctx context.Context) ([]string, error) {
	var texts []string
	if err := t.tx.SelectContext(ctx, &texts,
		`SELECT text FROM questions WHERE state = 'approved' ORDER BY id`); err != nil {
		return nil, fmt.Errorf("approved texts: %w", err)
	}
	return texts, nil
}

func (t *pgTx) InsertQuestion(ctx context.Context, authorID int64, text string, createdAt time.Time) (domain.Question, error) {
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var row questionRow
	err := t.tx.GetContext(ctx, &row, `
		INSERT INTO questions AS q (author_id, text, state, created_at)
		VALUES ($1, $2, 'pending', $3)
		RETURNING `+questionCols, authorID, text, createdAt)
	if err != nil {
		return domain.Question{}, mapErr("insert question", err)
	}
	return row.domain(), nil
}

func (t *pgTx) getQuestion(ctx context.Context, query string, id int64) (domain.Question, bool, error) {
	var row questionRow
	err := t.tx.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Question{}, false, nil
	}
	if err != nil {
		return domain.Question{}, false, fmt.Errorf("get question: %w", err)
	}
	return row.domain(), true, nil
}

func (t *pgTx) GetQuestion(ctx context.Context, id int64) (domain.Question, bool, error) {
	return t.getQuestion(ctx, `SELECT `+questionCols+` FROM questions q WHERE q.id = $1`, id)
}

func (t *pgTx) LockQuestion(ctx context.Context, id int64) (domain.Question, bool, error) {
	return t.getQuestion(ctx, `SELECT `+questionCols+` FROM questions q WHERE q.id = $1 FOR UPDATE`, id)
}

func (t *pgTx) updateQuestion(ctx context.Context, op, query string, args ...any) error {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *pgTx) SetQuestionState(ctx context.Context, id int64, state domain.State) error {
	return t.updateQuestion(ctx, "set question state",
		`UPDATE questions SET state = $2 WHERE id = $1`, id, string(state))
}

func (t *pgTx) MarkAnswered(ctx context.Context, id int64) error {
	return t.updateQuestion(ctx, "mark answered",
		`UPDATE questions SET answered = TRUE WHERE id = $1`, id)
}

func (t *pgTx) SetNetScore(ctx context.Context, id int64, score int64) error {
	return t.updateQuestion(ctx, "set net score",
		`UPDATE questions SET net_score = $2 WHERE id = $1`, id, score)
}

func (t *pgTx) CountApproved(ctx context.Context) (int, error) {
	var n int
	if err := t.tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM questions WHERE state = 'approved'`); err != nil {
		return 0, fmt.Errorf("count approved: %w", err)
	}
	return n, nil
}

func (t *pgTx) ListApprovedByCreated(ctx context.Context, limit, offset int) ([]domain.Question, error) {
	var rows []questionRow
	err := t.tx.SelectContext(ctx, &rows, `
		SELECT `+questionCols+` FROM questions q
		WHERE q.state = 'approved'
		ORDER BY q.created_at DESC, q.id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list approved: %w", err)
	}
	return questions(rows), nil
}

func (t *pgTx) ListApprovedByScore(ctx context.Context, limit int) ([]domain.Question, error) {
	var rows []questionRow
	err := t.tx.SelectContext(ctx, &rows, `
		SELECT `+questionCols+` FROM questions q
		WHERE q.state = 'approved'
		ORDER BY q.net_score DESC, q.id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list top: %w", err)
	}
	return questions(rows), nil
}

func (t *pgTx) Enqueue(ctx context.Context, questionID int64, at time.Time) error {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO moderation_queue (question_id, enqueued_at) VALUES ($1, $2)
		ON CONFLICT (question_id) DO NOTHING
	`, questionID, at)
	if err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	return nil
}

func (t *pgTx) Dequeue(ctx context.Context, questionID int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM moderation_queue WHERE question_id = $1`, questionID); err != nil {
		return fmt.Errorf("dequeue: %w", err)
	}
	return nil
}

func (t *pgTx) ListPending(ctx context.Context) ([]domain.Question, error) {
	var rows []questionRow
	err := t.tx.SelectContext(ctx, &rows, `
		SELECT `+questionCols+` FROM moderation_queue m
		JOIN questions q ON q.id = m.question_id
		ORDER BY m.enqueued_at ASC, q.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	return questions(rows), nil
}

type voteRow struct {
	ActorID    int64     `db:"actor_id"`
	QuestionID int64     `db:"question_id"`
	Choice     string    `db:"choice"`
	CastAt     time.Time `db:"cast_at"`
}

func (t *pgTx) GetVote(ctx context.Context, actorID, questionID int64) (domain.Vote, bool, error) {
	var row voteRow
	err := t.tx.GetContext(ctx, &row, `
		SELECT actor_id, question_id, choice, cast_at FROM votes
		WHERE actor_id = $1 AND question_id = $2
	`, actorID, questionID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Vote{}, false, nil
	}
	if err != nil {
		return domain.Vote{}, false, fmt.Errorf("get vote: %w", err)
	}
	return domain.Vote{
		ActorID:    row.ActorID,
		QuestionID: row.QuestionID,
		Choice:     domain.VoteChoice(row.Choice),
		CastAt:     row.CastAt,
	}, true, nil
}

func (t *pgTx) PutVote(ctx context.Context, v domain.Vote) error {
	if v.CastAt.IsZero() {
		v.CastAt = time.Now().UTC()
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO votes (actor_id, question_id, choice, cast_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (actor_id, question_id) DO UPDATE
		SET choice = EXCLUDED.choice, cast_at = EXCLUDED.cast_at
	`, v.ActorID, v.QuestionID, string(v.Choice), v.CastAt)
	return mapErr("put vote", err)
}

func (t *pgTx) DeleteVote(ctx context.Context, actorID, questionID int64) error {
	_, err := t.tx.ExecContext(ctx,
		`DELETE FROM votes WHERE actor_id = $1 AND question_id = $2`, actorID, questionID)
	if err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}
	return nil
}

func (t *pgTx) DeleteVotes(ctx context.Context, questionID int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM votes WHERE question_id = $1`, questionID); err != nil {
		return fmt.Errorf("delete votes: %w", err)
	}
	return nil
}

func (t *pgTx) TallyVotes(ctx context.Context, questionID int64) (int64, int64, error) {
	var tally struct {
		Up   int64 `db:"up"`
		Down int64 `db:"down"`
	}
	err := t.tx.GetContext(ctx, &tally, `
		SELECT
			COUNT(*) FILTER (WHERE choice = 'up')   AS up,
			COUNT(*) FILTER (WHERE choice = 'down') AS down
		FROM votes WHERE question_id = $1
	`, questionID)
	if err != nil {
		return 0, 0, fmt.Errorf("tally votes: %w", err)
	}
	return tally.Up, tally.Down, nil
}

type answerRow struct {
	ID         int64     `db:"id"`
	QuestionID int64     `db:"question_id"`
	AuthorID   int64     `db:"author_id"`
	Text       string    `db:"text"`
	CreatedAt  time.Time `db:"created_at"`
	AuthorName string    `db:"author_name"`
	AuthorRole string    `db:"author_role"`
}

func (r answerRow) answer() domain.Answer {
	return domain.Answer{
		ID:         r.ID,
		QuestionID: r.QuestionID,
		AuthorID:   r.AuthorID,
		Text:       r.Text,
		CreatedAt:  r.CreatedAt,
	}
}

func (t *pgTx) InsertAnswer(ctx context.Context, a domain.Answer) (domain.Answer, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	var row answerRow
	err := t.tx.GetContext(ctx, &row, `
		INSERT INTO answers (question_id, author_id, text, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, question_id, author_id, text, created_at
	`, a.QuestionID, a.AuthorID, a.Text, a.CreatedAt)
	if err != nil {
		return domain.Answer{}, mapErr("insert answer", err)
	}
	return row.answer(), nil
}

func (t *pgTx) ListAnswers(ctx context.Context, questionID int64) ([]domain.AnswerView, error) {
	var rows []answerRow
	err := t.tx.SelectContext(ctx, &rows, `
		SELECT a.id, a.question_id, a.author_id, a.text, a.created_at,
		       COALESCE(ac.display_name, '') AS author_name,
		       COALESCE(ac.role, '') AS author_role
		FROM answers a
		LEFT JOIN actors ac ON ac.id = a.author_id
		WHERE a.question_id = $1
		ORDER BY a.created_at ASC, a.id ASC
	`, questionID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	out := make([]domain.AnswerView, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.AnswerView{
			Answer:     r.answer(),
			AuthorName: r.AuthorName,
			AuthorRole: domain.Role(r.AuthorRole),
		})
	}
	return out, nil
}
