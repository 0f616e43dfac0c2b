package middleware

import (
	"errors"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

type stubContext struct {
	tele.Context
	user    *tele.User
	upd     tele.Update
	store   map[string]any
	sendErr error
}

func newStub(userID int64) *stubContext {
	u := &tele.User{ID: userID}
	return &stubContext{
		user:  u,
		upd:   tele.Update{ID: 1, Message: &tele.Message{Sender: u}},
		store: map[string]any{},
	}
}

func (s *stubContext) Sender() *tele.User           { return s.user }
func (s *stubContext) Chat() *tele.Chat             { return nil }
func (s *stubContext) Update() tele.Update          { return s.upd }
func (s *stubContext) Get(k string) any             { return s.store[k] }
func (s *stubContext) Set(k string, v any)          { s.store[k] = v }
func (s *stubContext) Send(any, ...any) error       { return s.sendErr }
func (s *stubContext) EditOrSend(any, ...any) error { return s.sendErr }
func (s *stubContext) Text() string                 { return "hello" }

func TestReplyCounter(t *testing.T) {
	c := newStub(1)
	h := ReplyCounterMiddleware(func(c tele.Context) error {
		_ = c.Send("plain")
		return c.EditOrSend("menu", &tele.SendOptions{ReplyMarkup: &tele.ReplyMarkup{}})
	})
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if n, kb := GetCounters(c); n != 2 || !kb {
		t.Fatalf("counters = %d, %v", n, kb)
	}

	failing := newStub(2)
	failing.sendErr = errors.New("blocked")
	_ = ReplyCounterMiddleware(func(c tele.Context) error { return c.Send("x") })(failing)
	if n, _ := GetCounters(failing); n != 0 {
		t.Fatalf("failed send counted: %d", n)
	}
	if n, kb := GetCounters(newStub(3)); n != 0 || kb {
		t.Fatal("counters without middleware should be zero")
	}
}

func TestAdminOnly(t *testing.T) {
	var ran, rejected int
	next := func(tele.Context) error { ran++; return nil }
	onReject := func(tele.Context) error { rejected++; return nil }

	_ = AdminOnlyMiddleware(AdminOptions{AdminID: 7, OnReject: onReject})(next)(newStub(7))
	_ = AdminOnlyMiddleware(AdminOptions{AdminID: 7, OnReject: onReject})(next)(newStub(8))
	_ = AdminOnlyMiddleware(AdminOptions{OnReject: onReject})(next)(newStub(0))
	if ran != 1 || rejected != 2 {
		t.Fatalf("ran=%d rejected=%d", ran, rejected)
	}
}

func TestRateLimit(t *testing.T) {
	var ran, limited int
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	h := mw(func(tele.Context) error { ran++; return nil })

	_ = h(newStub(1))
	_ = h(newStub(1))
	_ = h(newStub(2))

	cb := newStub(1)
	cb.upd = tele.Update{ID: 2, Callback: &tele.Callback{Sender: cb.user}}
	_ = h(cb)

	if ran != 3 || limited != 1 {
		t.Fatalf("ran=%d limited=%d", ran, limited)
	}
}

func TestLoggerMiddlewareRunsOncePerUpdate(t *testing.T) {
	c := newStub(5)
	var rids []string
	inner := func(c tele.Context) error {
		rid, _ := c.Get("rid").(string)
		rids = append(rids, rid)
		return nil
	}
	h := LoggerMiddleware(LoggerMiddleware(inner))
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(rids) != 1 || rids[0] == "" {
		t.Fatalf("rids = %v", rids)
	}
	first := rids[0]
	_ = h(c)
	if rids[1] != first {
		t.Fatalf("rid changed on second pass: %q vs %q", rids[1], first)
	}
	if c.Get("request_ctx") == nil {
		t.Fatal("request context not stored")
	}
}

func TestRecoverSwallowsPanic(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	if err := h(newStub(1)); err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
}

func TestUpdateKind(t *testing.T) {
	tests := map[string]tele.Update{
		"callback":     {Callback: &tele.Callback{}},
		"message":      {Message: &tele.Message{}},
		"inline_query": {Query: &tele.Query{}},
		"other":        {},
	}
	for want, upd := range tests {
		if got := UpdateKind(upd); got != want {
			t.Fatalf("UpdateKind = %q, want %q", got, want)
		}
	}
}
