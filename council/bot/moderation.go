package bot

import (
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/eldersbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/eldersbot/core/telegram/helpers"
	"github.com/m3rciful/eldersbot/council/domain"
)

const moderatorsOnly = "Only moderators can do that."

func (h *Handlers) isModerator(c tele.Context) bool {
	if h.role(c) == domain.RoleModerator {
		return true
	}
	if c.Callback() != nil {
		_ = callbacks.Respond(c, moderatorsOnly, true)
	} else {
		_ = tghelpers.SendText(c, moderatorsOnly)
	}
	return false
}

func (h *Handlers) approve(c tele.Context) error {
	return h.decide(c, domain.DecisionApprove)
}

func (h *Handlers) reject(c tele.Context) error {
	return h.decide(c, domain.DecisionReject)
}

func (h *Handlers) decide(c tele.Context, d domain.Decision) error {
	if !h.isModerator(c) {
		return nil
	}
	qid, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.fail(c, domain.ErrNotFound)
	}
	q, err := h.council.Decide(ctxOf(c), qid, d)
	if err != nil {
		return h.fail(c, err)
	}
	_ = callbacks.Respond(c, "Done", false)
	return tghelpers.EditOrSendMD(c, renderDecision(q, d))
}

func (h *Handlers) pending(c tele.Context) error {
	if !h.isModerator(c) {
		return nil
	}
	items, err := h.council.Pending(ctxOf(c))
	if err != nil {
		return h.fail(c, err)
	}
	_ = callbacks.Respond(c, "", false)
	if len(items) == 0 {
		return tghelpers.SendText(c, "The moderation queue is empty.")
	}
	shown := items
	if len(shown) > pendingLimit {
		shown = shown[:pendingLimit]
	}
	for _, q := range shown {
		if err := tghelpers.SendMD(c, renderPending(q), moderationMarkup(q)); err != nil {
			return err
		}
	}
	if rest := len(items) - len(shown); rest > 0 {
		return tghelpers.SendText(c, fmt.Sprintf("%d more waiting. Decide on these and send /pending again.", rest))
	}
	return nil
}

const grantUsage = "Usage: /grant <user id> <asker|expert|moderator>"

func (h *Handlers) grant(c tele.Context) error {
	args := c.Args()
	if len(args) != 2 {
		return tghelpers.SendText(c, grantUsage)
	}
	target, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || target <= 0 {
		return tghelpers.SendText(c, grantUsage)
	}
	role, ok := domain.ParseRole(args[1])
	if !ok {
		return h.fail(c, domain.ErrInvalidRole)
	}
	if err := h.council.Grant(ctxOf(c), target, role); err != nil {
		return h.fail(c, err)
	}
	return tghelpers.SendText(c, fmt.Sprintf("User %d is now %s.", target, role))
}
