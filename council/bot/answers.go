package bot

import (
	"errors"
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/eldersbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/eldersbot/core/telegram/helpers"
	"github.com/m3rciful/eldersbot/council/domain"
)

func (h *Handlers) answerPrompt(c tele.Context) error {
	qid, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.fail(c, domain.ErrNotFound)
	}
	if !h.role(c).CanAnswer() {
		return h.fail(c, domain.ErrForbidden)
	}
	uid := c.Sender().ID
	h.sessions.Clear(uid)
	h.sessions.SetState(uid, StateAwaitAnswer)
	h.sessions.SetTemp(uid, tempQuestionID, qid)
	_ = callbacks.Respond(c, "", false)
	return tghelpers.SendMD(c, fmt.Sprintf("Send your answer to question #%d as a single message.", qid), cancelMarkup())
}

func (h *Handlers) onAnswerText(c tele.Context) error {
	uid := c.Sender().ID
	qid, ok := h.sessions.GetTempInt64(uid, tempQuestionID)
	if !ok {
		h.sessions.Clear(uid)
		return tghelpers.SendMD(c, "The answer prompt has expired. Open the question again.", h.menuMarkup(c))
	}
	if err := h.council.Answer(ctxOf(c), qid, uid, c.Text()); err != nil {
		if !errors.Is(err, domain.ErrEmptyText) {
			h.sessions.Clear(uid)
		}
		return h.fail(c, err)
	}
	h.sessions.Clear(uid)
	if err := tghelpers.SendText(c, "Your answer was published and the author was notified."); err != nil {
		return err
	}
	return h.showQuestion(c, qid)
}
