// Package bot is the Telegram presentation layer: commands, inline menus and
// the two-step prompts that collect question and answer texts. Every
// completed interaction calls exactly one council operation.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/eldersbot/core/logger"
	tg "github.com/m3rciful/eldersbot/core/telegram"
	"github.com/m3rciful/eldersbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/eldersbot/core/telegram/helpers"
	"github.com/m3rciful/eldersbot/core/telegram/state"
	"github.com/m3rciful/eldersbot/council/domain"
	"github.com/m3rciful/eldersbot/council/service"
)

const component = "bot"

// Prompt states.
const (
	StateAwaitQuestion state.State = "await_question"
	StateAwaitAnswer   state.State = "await_answer"
)

const tempQuestionID = "question_id"

// Callback keys.
const (
	cbAsk      = "ask"
	cbTop      = "top"
	cbBrowse   = "browse"
	cbView     = "view"
	cbVoteUp   = "vote_up"
	cbVoteDown = "vote_down"
	cbAnswer   = "answer"
	cbApprove  = "approve"
	cbReject   = "reject"
	cbPending  = "pending"
	cbMenu     = "menu"
	cbCancel   = "cancel"
)

// pendingLimit caps how many queued questions /pending prints at once.
const pendingLimit = 20

// Options wires Handlers.
type Options struct {
	Council  *service.Council
	Sessions state.Manager
	PageSize int
	TopSize  int
}

// Handlers holds the Telegram handlers of the bot.
type Handlers struct {
	council  *service.Council
	sessions state.Manager
	pageSize int
	topSize  int

	known sync.Map
}

var _ tg.Fallbacks = (*Handlers)(nil)

// New builds Handlers. Sessions defaults to an in-memory manager.
func New(opts Options) *Handlers {
	h := &Handlers{
		council:  opts.Council,
		sessions: opts.Sessions,
		pageSize: opts.PageSize,
		topSize:  opts.TopSize,
	}
	if h.sessions == nil {
		h.sessions = state.NewMemoryManager()
	}
	if h.pageSize <= 0 {
		h.pageSize = 5
	}
	if h.topSize <= 0 {
		h.topSize = 10
	}
	return h
}

// Sessions returns the prompt session manager used by the text router.
func (h *Handlers) Sessions() state.Manager {
	return h.sessions
}

// Register adds commands, callbacks, prompt handlers and fallbacks to reg.
func (h *Handlers) Register(reg *tg.Registry) error {
	cmds := []struct {
		name string
		cmd  tg.Command
	}{
		{"/start", tg.Command{Handler: h.wrap(h.start), Description: "Open the main menu"}},
		{"/ask", tg.Command{Handler: h.wrap(h.ask), Description: "Ask a question"}},
		{"/top", tg.Command{Handler: h.wrap(h.top), Description: "Top rated questions"}},
		{"/questions", tg.Command{Handler: h.wrap(h.browseCommand), Description: "Browse published questions", Aliases: []string{"list"}}},
		{"/pending", tg.Command{Handler: h.wrap(h.pending), Description: "Moderation queue", Hidden: true}},
		{"/cancel", tg.Command{Handler: h.wrap(h.cancel), Description: "Cancel the current prompt", Hidden: true}},
		{"/grant", tg.Command{Handler: h.wrap(h.grant), Description: "Grant a role: /grant <user id> <role>", AdminOnly: true}},
	}
	for _, c := range cmds {
		if err := reg.RegisterCommand(c.name, c.cmd); err != nil {
			return err
		}
	}

	cbs := map[string]tele.HandlerFunc{
		cbAsk:      h.ask,
		cbTop:      h.top,
		cbBrowse:   h.browse,
		cbView:     h.view,
		cbVoteUp:   h.voteUp,
		cbVoteDown: h.voteDown,
		cbAnswer:   h.answerPrompt,
		cbApprove:  h.approve,
		cbReject:   h.reject,
		cbPending:  h.pending,
		cbMenu:     h.menu,
		cbCancel:   h.cancel,
	}
	for key, fn := range cbs {
		if err := reg.RegisterCallback(key, h.wrap(fn)); err != nil {
			return fmt.Errorf("register callback %s: %w", key, err)
		}
	}

	state.RegisterHandler(StateAwaitQuestion, h.wrap(h.onQuestionText))
	state.RegisterHandler(StateAwaitAnswer, h.wrap(h.onAnswerText))
	reg.SetFallbacks(h)
	return nil
}

// UnknownText answers free text outside of a prompt.
func (h *Handlers) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendMD(c, "I did not understand that. Use the menu below.", h.menuMarkup(c))
	}
}

// UnknownDocument answers files, which the bot never expects.
func (h *Handlers) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, "Files are not supported. Please send your question as text.")
	}
}

// UnknownCallback answers buttons from outdated menus.
func (h *Handlers) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return callbacks.Respond(c, "This button is no longer active. Send /start.", true)
	}
}

// wrap makes sure the sender is a registered actor before fn runs.
func (h *Handlers) wrap(fn tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if u := c.Sender(); u != nil {
			if _, ok := h.known.Load(u.ID); !ok {
				if _, err := h.register(c); err != nil {
					return h.fail(c, err)
				}
			}
		}
		return fn(c)
	}
}

func (h *Handlers) register(c tele.Context) (domain.Actor, error) {
	u := c.Sender()
	a, err := h.council.Register(tghelpers.BuildContext(c), domain.Actor{
		ID:          u.ID,
		DisplayName: displayName(u),
		Username:    u.Username,
	})
	if err != nil {
		return domain.Actor{}, err
	}
	h.known.Store(u.ID, struct{}{})
	return a, nil
}

func displayName(u *tele.User) string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return fmt.Sprintf("user %d", u.ID)
}

func (h *Handlers) role(c tele.Context) domain.Role {
	role, err := h.council.RoleOf(tghelpers.BuildContext(c), c.Sender().ID)
	if err != nil {
		return domain.RoleAsker
	}
	return role
}

// fail tells the user what went wrong. Only storage failures are returned,
// so the handler summary marks them as failed.
func (h *Handlers) fail(c tele.Context, err error) error {
	text := userMessage(err)
	if c.Callback() != nil {
		_ = callbacks.Respond(c, text, true)
	} else if sendErr := tghelpers.SendText(c, text); sendErr != nil {
		logger.Warn(tghelpers.BuildContext(c), component, "reply.fail",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(sendErr.Error(), 256)),
		)
	}
	if domain.KindOf(err) == domain.KindStorage {
		return err
	}
	return nil
}

func ctxOf(c tele.Context) context.Context {
	return tghelpers.BuildContext(c)
}
