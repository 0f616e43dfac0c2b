package bot

import (
	"errors"
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/eldersbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/eldersbot/core/telegram/helpers"
	"github.com/m3rciful/eldersbot/council/domain"
)

// show edits the message behind a callback, or sends a new one for commands.
func show(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	if c.Callback() != nil {
		return tghelpers.EditOrSendMD(c, text, markup)
	}
	return tghelpers.SendMD(c, text, markup)
}

func (h *Handlers) start(c tele.Context) error {
	h.sessions.Clear(c.Sender().ID)
	a, err := h.register(c)
	if err != nil {
		return h.fail(c, err)
	}
	return tghelpers.SendMD(c, renderMenu(a.Role), menuMarkup(a.Role))
}

func (h *Handlers) menu(c tele.Context) error {
	h.sessions.Clear(c.Sender().ID)
	role := h.role(c)
	return show(c, renderMenu(role), menuMarkup(role))
}

func (h *Handlers) cancel(c tele.Context) error {
	uid := c.Sender().ID
	if h.sessions.InProgress(uid) {
		_ = callbacks.Respond(c, "Cancelled", false)
	}
	return h.menu(c)
}

func (h *Handlers) ask(c tele.Context) error {
	uid := c.Sender().ID
	h.sessions.Clear(uid)
	h.sessions.SetState(uid, StateAwaitQuestion)
	return show(c, "Send your question as a single message. It stays anonymous and goes to moderation first.", cancelMarkup())
}

func (h *Handlers) onQuestionText(c tele.Context) error {
	uid := c.Sender().ID
	qid, err := h.council.Submit(ctxOf(c), uid, c.Text())
	if err != nil {
		if !errors.Is(err, domain.ErrProhibitedContent) && !errors.Is(err, domain.ErrEmptyText) {
			h.sessions.Clear(uid)
		}
		return h.fail(c, err)
	}
	h.sessions.Clear(uid)
	text := fmt.Sprintf("Thank you! Question #%d was sent to moderation. You will get a message once it is reviewed.", qid)
	return tghelpers.SendMD(c, text, h.menuMarkup(c))
}

func (h *Handlers) top(c tele.Context) error {
	items, err := h.council.TopN(ctxOf(c), h.topSize)
	if err != nil {
		return h.fail(c, err)
	}
	return show(c, renderTop(items), listMarkup(items, 0, nil))
}

func (h *Handlers) browseCommand(c tele.Context) error {
	return h.showPage(c, 1)
}

func (h *Handlers) browse(c tele.Context) error {
	page, err := callbacks.PayloadInt(c)
	if err != nil || page < 1 {
		page = 1
	}
	return h.showPage(c, page)
}

func (h *Handlers) showPage(c tele.Context, page int) error {
	res, err := h.council.Page(ctxOf(c), page, h.pageSize)
	if err != nil {
		return h.fail(c, err)
	}
	if len(res.Items) == 0 && page > res.TotalPages {
		// The list shrank since the keyboard was drawn.
		if res, err = h.council.Page(ctxOf(c), res.TotalPages, h.pageSize); err != nil {
			return h.fail(c, err)
		}
	}
	offset := (res.Page - 1) * res.PageSize
	return show(c, renderPage(res), listMarkup(res.Items, offset, pageNav(res.Page, res.TotalPages)))
}

func (h *Handlers) view(c tele.Context) error {
	qid, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.fail(c, domain.ErrNotFound)
	}
	return h.showQuestion(c, qid)
}

func (h *Handlers) showQuestion(c tele.Context, qid int64) error {
	v, err := h.council.View(ctxOf(c), qid, c.Sender().ID)
	if err != nil {
		return h.fail(c, err)
	}
	return show(c, renderView(v), viewMarkup(v.Question, h.role(c)))
}

func (h *Handlers) voteUp(c tele.Context) error {
	return h.vote(c, domain.VoteUp)
}

func (h *Handlers) voteDown(c tele.Context) error {
	return h.vote(c, domain.VoteDown)
}

func (h *Handlers) vote(c tele.Context, choice domain.VoteChoice) error {
	qid, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.fail(c, domain.ErrNotFound)
	}
	out, err := h.council.CastVote(ctxOf(c), c.Sender().ID, qid, choice)
	if err != nil {
		return h.fail(c, err)
	}
	toast := fmt.Sprintf("Vote %s counted. Score: %s", voteLabel(out.Choice), signed(out.NetScore))
	if out.Withdrawn {
		toast = fmt.Sprintf("Vote withdrawn. Score: %s", signed(out.NetScore))
	}
	_ = callbacks.Respond(c, toast, false)
	return h.showQuestion(c, qid)
}
