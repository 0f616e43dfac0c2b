package state

import (
	"encoding/json"
	"strconv"

	tele "gopkg.in/telebot.v4"
)

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// Session stores conversation state and temporary data for a user.
type Session struct {
	State    State          `json:"state"`
	TempData map[string]any `json:"temp,omitempty"`
}

func newSession() *Session {
	return &Session{State: StateIdle, TempData: make(map[string]any)}
}

func (s *Session) idle() bool {
	return s.State == StateIdle && len(s.TempData) == 0
}

// Manager orchestrates user sessions and FSM state transitions.
type Manager interface {
	Get(userID int64) *Session
	SetTemp(userID int64, key string, value any)
	GetTemp(userID int64, key string) (any, bool)
	GetTempInt64(userID int64, key string) (int64, bool)
	Clear(userID int64)

	SetState(userID int64, st State)
	GetState(userID int64) State

	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// backend persists sessions. load returns a copy the caller may change.
type backend interface {
	load(userID int64) *Session
	update(userID int64, fn func(*Session))
	clear(userID int64)
}

// manager implements Manager on top of a backend.
type manager struct {
	b backend
}

func (m manager) Get(userID int64) *Session { return m.b.load(userID) }

func (m manager) SetTemp(userID int64, key string, value any) {
	m.b.update(userID, func(s *Session) { s.TempData[key] = value })
}

// GetTemp returns a prompt value. After a JSON round trip numbers are
// json.Number; use GetTempInt64 for ids.
func (m manager) GetTemp(userID int64, key string) (any, bool) {
	v, ok := m.b.load(userID).TempData[key]
	return v, ok
}

func (m manager) GetTempInt64(userID int64, key string) (int64, bool) {
	v, ok := m.GetTemp(userID, key)
	if !ok {
		return 0, false
	}
	return toInt64(v)
}

func (m manager) Clear(userID int64) { m.b.clear(userID) }

func (m manager) SetState(userID int64, st State) {
	m.b.update(userID, func(s *Session) { s.State = st })
}

func (m manager) GetState(userID int64) State { return m.b.load(userID).State }

func (m manager) InProgress(userID int64) bool { return m.GetState(userID) != StateIdle }

// ManagerHandler runs the handler registered for the sender's state.
func (m manager) ManagerHandler(c tele.Context) error {
	return dispatch(c, m, m.GetState(c.Sender().ID))
}

// toInt64 accepts the numeric shapes a value can take after a JSON round trip.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}
