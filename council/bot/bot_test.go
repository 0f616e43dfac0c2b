package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/eldersbot/core/telegram"
	"github.com/m3rciful/eldersbot/council/domain"
	"github.com/m3rciful/eldersbot/council/events"
	"github.com/m3rciful/eldersbot/council/service"
	"github.com/m3rciful/eldersbot/council/store/memstore"
)

// fakeContext records what a handler sends. Methods the handlers never
// call fall through to the nil embedded interface and panic.
type fakeContext struct {
	tele.Context

	user *tele.User
	text string
	args []string
	cb   *tele.Callback

	store     map[string]any
	sent      []string
	edited    []string
	responses []*tele.CallbackResponse
}

func newMessage(user *tele.User, text string) *fakeContext {
	return &fakeContext{user: user, text: text, store: map[string]any{}}
}

func newCallback(user *tele.User, unique, data string) *fakeContext {
	return &fakeContext{
		user:  user,
		cb:    &tele.Callback{ID: "cb", Unique: unique, Data: data, Sender: user},
		store: map[string]any{},
	}
}

func (f *fakeContext) Update() tele.Update      { return tele.Update{ID: 1} }
func (f *fakeContext) Sender() *tele.User       { return f.user }
func (f *fakeContext) Chat() *tele.Chat         { return &tele.Chat{ID: f.user.ID} }
func (f *fakeContext) Text() string             { return f.text }
func (f *fakeContext) Args() []string           { return f.args }
func (f *fakeContext) Callback() *tele.Callback { return f.cb }
func (f *fakeContext) Get(key string) any       { return f.store[key] }
func (f *fakeContext) Set(key string, v any)    { f.store[key] = v }
func (f *fakeContext) Send(what any, _ ...any) error {
	f.sent = append(f.sent, what.(string))
	return nil
}

func (f *fakeContext) Message() *tele.Message {
	if f.cb != nil {
		return nil
	}
	return &tele.Message{Text: f.text, Sender: f.user, Chat: f.Chat()}
}

func (f *fakeContext) Edit(what any, _ ...any) error {
	f.edited = append(f.edited, what.(string))
	return nil
}

func (f *fakeContext) EditOrSend(what any, opts ...any) error {
	return f.Edit(what, opts...)
}

func (f *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	if len(resp) == 0 {
		resp = []*tele.CallbackResponse{{}}
	}
	f.responses = append(f.responses, resp...)
	return nil
}

func (f *fakeContext) last() string {
	out := append(append([]string{}, f.sent...), f.edited...)
	if len(out) == 0 {
		return ""
	}
	return out[len(out)-1]
}

func (f *fakeContext) toast() string {
	if len(f.responses) == 0 {
		return ""
	}
	return f.responses[len(f.responses)-1].Text
}

type fixture struct {
	h       *Handlers
	council *service.Council
	events  *events.Recorder
	reg     *tg.Registry

	asker     *tele.User
	expert    *tele.User
	moderator *tele.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rec := &events.Recorder{}
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	council := service.New(service.Options{
		Store:  memstore.New(),
		Events: rec,
		Now: func() time.Time {
			now = now.Add(time.Minute)
			return now
		},
	})
	f := &fixture{
		council:   council,
		events:    rec,
		reg:       tg.NewRegistry(),
		asker:     &tele.User{ID: 100, FirstName: "Ann"},
		expert:    &tele.User{ID: 200, FirstName: "Elder", LastName: "Oak"},
		moderator: &tele.User{ID: 300, Username: "mod"},
	}
	f.h = New(Options{Council: council, PageSize: 2, TopSize: 3})
	if err := f.h.Register(f.reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	ctx := context.Background()
	if err := council.Grant(ctx, f.expert.ID, domain.RoleExpert); err != nil {
		t.Fatalf("grant expert: %v", err)
	}
	if err := council.Grant(ctx, f.moderator.ID, domain.RoleModerator); err != nil {
		t.Fatalf("grant moderator: %v", err)
	}
	return f
}

// callback runs the handler registered for the callback key, as the router would.
func (f *fixture) callback(t *testing.T, c *fakeContext) {
	t.Helper()
	fn, ok := f.reg.Callback(c.cb.Unique)
	if !ok {
		t.Fatalf("callback %q not registered", c.cb.Unique)
	}
	if err := fn(c); err != nil {
		t.Fatalf("callback %s: %v", c.cb.Unique, err)
	}
}

func (f *fixture) command(t *testing.T, name string, c *fakeContext) {
	t.Helper()
	_, cmd, ok := f.reg.LookupCommand(name)
	if !ok {
		t.Fatalf("command %s not registered", name)
	}
	if err := cmd.Handler(c); err != nil {
		t.Fatalf("command %s: %v", name, err)
	}
}

func (f *fixture) text(t *testing.T, user *tele.User, text string) *fakeContext {
	t.Helper()
	c := newMessage(user, text)
	if err := f.h.Sessions().ManagerHandler(c); err != nil {
		t.Fatalf("prompt handler: %v", err)
	}
	return c
}

// submitApproved walks a question through the ask prompt and moderation.
func (f *fixture) submitApproved(t *testing.T, text string) int64 {
	t.Helper()
	f.command(t, "/ask", newMessage(f.asker, "/ask"))
	f.text(t, f.asker, text)
	pending, err := f.council.Pending(context.Background())
	if err != nil || len(pending) == 0 {
		t.Fatalf("pending = %v, %v", pending, err)
	}
	q := pending[len(pending)-1]
	f.callback(t, newCallback(f.moderator, cbApprove, id(q.ID)))
	return q.ID
}

func TestStartRegistersAndShowsRoleMenu(t *testing.T) {
	f := newFixture(t)

	c := newMessage(f.asker, "/start")
	f.command(t, "/start", c)
	if !strings.Contains(c.last(), "Council of Elders") || strings.Contains(c.last(), "Your role") {
		t.Fatalf("asker menu = %q", c.last())
	}
	if role, _ := f.council.RoleOf(context.Background(), f.asker.ID); role != domain.RoleAsker {
		t.Fatalf("role = %s", role)
	}

	m := newMessage(f.moderator, "/start")
	f.command(t, "/start", m)
	if !strings.Contains(m.last(), "Your role: moderator") {
		t.Fatalf("moderator menu = %q", m.last())
	}
}

func TestAskPromptSubmitsOnce(t *testing.T) {
	f := newFixture(t)

	f.command(t, "/ask", newMessage(f.asker, "/ask"))
	if got := f.h.Sessions().GetState(f.asker.ID); got != StateAwaitQuestion {
		t.Fatalf("state = %s", got)
	}
	c := f.text(t, f.asker, "How do I plant an oak?")
	if !strings.Contains(c.last(), "Question #1 was sent to moderation") {
		t.Fatalf("reply = %q", c.last())
	}
	if f.h.Sessions().InProgress(f.asker.ID) {
		t.Fatal("prompt should be finished")
	}
	if n := len(f.events.OfType(events.TypeNewPendingQuestion)); n != 1 {
		t.Fatalf("pending events = %d", n)
	}

	// A later message is not a question.
	if err := f.h.Sessions().ManagerHandler(newMessage(f.asker, "hello")); err != nil {
		t.Fatalf("idle text: %v", err)
	}
	if pending, _ := f.council.Pending(context.Background()); len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
}

func TestAskPromptKeepsStateOnEmptyText(t *testing.T) {
	f := newFixture(t)

	f.command(t, "/ask", newMessage(f.asker, "/ask"))
	c := f.text(t, f.asker, "   ")
	if c.last() != userMessage(domain.ErrEmptyText) {
		t.Fatalf("reply = %q", c.last())
	}
	if got := f.h.Sessions().GetState(f.asker.ID); got != StateAwaitQuestion {
		t.Fatalf("state = %s, want prompt kept", got)
	}
}

func TestDuplicateQuestionEndsPrompt(t *testing.T) {
	f := newFixture(t)
	f.submitApproved(t, "Where do the elders meet?")

	f.command(t, "/ask", newMessage(f.asker, "/ask"))
	c := f.text(t, f.asker, "where do the elders meet")
	if c.last() != userMessage(domain.ErrDuplicateQuestion) {
		t.Fatalf("reply = %q", c.last())
	}
	if f.h.Sessions().InProgress(f.asker.ID) {
		t.Fatal("duplicate should end the prompt")
	}
}

func TestModerationRequiresModerator(t *testing.T) {
	f := newFixture(t)
	f.command(t, "/ask", newMessage(f.asker, "/ask"))
	f.text(t, f.asker, "Is the river safe?")

	c := newCallback(f.expert, cbApprove, "1")
	f.callback(t, c)
	if c.toast() != moderatorsOnly {
		t.Fatalf("toast = %q", c.toast())
	}
	if pending, _ := f.council.Pending(context.Background()); len(pending) != 1 {
		t.Fatal("question left the queue")
	}

	p := newMessage(f.moderator, "/pending")
	f.command(t, "/pending", p)
	if len(p.sent) != 1 || !strings.Contains(p.sent[0], "Pending question #1") {
		t.Fatalf("pending output = %v", p.sent)
	}

	r := newCallback(f.moderator, cbReject, "1")
	f.callback(t, r)
	if !strings.HasPrefix(r.last(), "*Rejected #1*") {
		t.Fatalf("decision = %q", r.last())
	}
	again := newCallback(f.moderator, cbApprove, "1")
	f.callback(t, again)
	if again.toast() != userMessage(domain.ErrNotPending) {
		t.Fatalf("second decision toast = %q", again.toast())
	}
}

func TestVoteToggleRendersScore(t *testing.T) {
	f := newFixture(t)
	qid := f.submitApproved(t, "Should we build a bridge?")

	up := newCallback(f.expert, cbVoteUp, id(qid))
	f.callback(t, up)
	if !strings.Contains(up.toast(), "Score: +1") {
		t.Fatalf("toast = %q", up.toast())
	}
	if !strings.Contains(up.last(), "Score: +1 · Your vote: 👍") {
		t.Fatalf("view = %q", up.last())
	}

	again := newCallback(f.expert, cbVoteUp, id(qid))
	f.callback(t, again)
	if !strings.HasPrefix(again.toast(), "Vote withdrawn") {
		t.Fatalf("toast = %q", again.toast())
	}

	down := newCallback(f.asker, cbVoteDown, id(qid))
	f.callback(t, down)
	if !strings.Contains(down.last(), "Score: -1") {
		t.Fatalf("view = %q", down.last())
	}
}

func TestAnswerPromptFlow(t *testing.T) {
	f := newFixture(t)
	qid := f.submitApproved(t, "When is the harvest?")

	denied := newCallback(f.asker, cbAnswer, id(qid))
	f.callback(t, denied)
	if denied.toast() != userMessage(domain.ErrForbidden) {
		t.Fatalf("asker toast = %q", denied.toast())
	}
	if f.h.Sessions().InProgress(f.asker.ID) {
		t.Fatal("asker must not enter the answer prompt")
	}

	f.callback(t, newCallback(f.expert, cbAnswer, id(qid)))
	if got := f.h.Sessions().GetState(f.expert.ID); got != StateAwaitAnswer {
		t.Fatalf("state = %s", got)
	}
	c := f.text(t, f.expert, "After the first frost.")
	if !strings.Contains(c.last(), "After the first frost.") || !strings.Contains(c.last(), "Elder Oak (expert)") {
		t.Fatalf("view after answer = %q", c.last())
	}
	if f.h.Sessions().InProgress(f.expert.ID) {
		t.Fatal("prompt should be finished")
	}
	if n := len(f.events.OfType(events.TypeQuestionAnswered)); n != 1 {
		t.Fatalf("answered events = %d", n)
	}
}

func TestBrowsePages(t *testing.T) {
	f := newFixture(t)
	for _, text := range []string{"First topic about wells", "Second matter of roofs", "Third concern about goats"} {
		f.submitApproved(t, text)
	}

	c := newMessage(f.asker, "/questions")
	f.command(t, "/questions", c)
	if !strings.Contains(c.last(), "page 1 of 2") || !strings.Contains(c.last(), "1. [0] Third concern") {
		t.Fatalf("page 1 = %q", c.last())
	}

	next := newCallback(f.asker, cbBrowse, "2")
	f.callback(t, next)
	if !strings.Contains(next.last(), "page 2 of 2") || !strings.Contains(next.last(), "3. [0] First topic") {
		t.Fatalf("page 2 = %q", next.last())
	}

	stale := newCallback(f.asker, cbBrowse, "9")
	f.callback(t, stale)
	if !strings.Contains(stale.last(), "page 2 of 2") {
		t.Fatalf("out of range page = %q", stale.last())
	}
}

func TestGrantCommand(t *testing.T) {
	f := newFixture(t)

	c := newMessage(f.moderator, "/grant 100 expert")
	c.args = []string{"100", "expert"}
	f.command(t, "/grant", c)
	if c.last() != "User 100 is now expert." {
		t.Fatalf("reply = %q", c.last())
	}
	if role, _ := f.council.RoleOf(context.Background(), 100); role != domain.RoleExpert {
		t.Fatalf("role = %s", role)
	}

	bad := newMessage(f.moderator, "/grant 100 king")
	bad.args = []string{"100", "king"}
	f.command(t, "/grant", bad)
	if bad.last() != userMessage(domain.ErrInvalidRole) {
		t.Fatalf("reply = %q", bad.last())
	}

	usage := newMessage(f.moderator, "/grant")
	f.command(t, "/grant", usage)
	if usage.last() != grantUsage {
		t.Fatalf("reply = %q", usage.last())
	}
}

func TestCancelClearsPrompt(t *testing.T) {
	f := newFixture(t)
	f.command(t, "/ask", newMessage(f.asker, "/ask"))

	c := newCallback(f.asker, cbCancel, "")
	f.callback(t, c)
	if f.h.Sessions().InProgress(f.asker.ID) {
		t.Fatal("cancel should clear the prompt")
	}
	if c.toast() != "Cancelled" || !strings.Contains(c.last(), "Council of Elders") {
		t.Fatalf("toast=%q last=%q", c.toast(), c.last())
	}
}
