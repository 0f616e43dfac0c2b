package bot

import (
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/eldersbot/core/telegram/keyboard"
	"github.com/m3rciful/eldersbot/council/domain"
)

func id(n int64) string { return strconv.FormatInt(n, 10) }

func (h *Handlers) menuMarkup(c tele.Context) *tele.ReplyMarkup {
	return menuMarkup(h.role(c))
}

func menuMarkup(role domain.Role) *tele.ReplyMarkup {
	rows := [][]keyboard.InlineBtn{
		{{Text: "❓ Ask a question", Unique: cbAsk}},
		{{Text: "🔥 Top", Unique: cbTop}, {Text: "📚 All questions", Unique: cbBrowse, Data: "1"}},
	}
	if role == domain.RoleModerator {
		rows = append(rows, []keyboard.InlineBtn{{Text: "🕓 Moderation queue", Unique: cbPending}})
	}
	return keyboard.InlineButtonsRows(rows...)
}

// listMarkup has one button per question, five per row, then nav.
func listMarkup(items []domain.Question, offset int, nav []keyboard.InlineBtn) *tele.ReplyMarkup {
	btns := make([]keyboard.InlineBtn, 0, len(items))
	for i, q := range items {
		btns = append(btns, keyboard.InlineBtn{Text: strconv.Itoa(offset + i + 1), Unique: cbView, Data: id(q.ID)})
	}
	rows := keyboard.ChunkInline(btns, 5)
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, []keyboard.InlineBtn{{Text: "⬅️ Menu", Unique: cbMenu}})
	return keyboard.InlineButtonsRows(rows...)
}

func pageNav(page, total int) []keyboard.InlineBtn {
	var nav []keyboard.InlineBtn
	if page > 1 {
		nav = append(nav, keyboard.InlineBtn{Text: "« Prev", Unique: cbBrowse, Data: strconv.Itoa(page - 1)})
	}
	if page < total {
		nav = append(nav, keyboard.InlineBtn{Text: "Next »", Unique: cbBrowse, Data: strconv.Itoa(page + 1)})
	}
	return nav
}

func viewMarkup(q domain.Question, role domain.Role) *tele.ReplyMarkup {
	rows := [][]keyboard.InlineBtn{
		{{Text: "👍", Unique: cbVoteUp, Data: id(q.ID)}, {Text: "👎", Unique: cbVoteDown, Data: id(q.ID)}},
	}
	if role.CanAnswer() {
		rows = append(rows, []keyboard.InlineBtn{{Text: "✍️ Answer", Unique: cbAnswer, Data: id(q.ID)}})
	}
	rows = append(rows, []keyboard.InlineBtn{{Text: "⬅️ Menu", Unique: cbMenu}})
	return keyboard.InlineButtonsRows(rows...)
}

func moderationMarkup(q domain.Question) *tele.ReplyMarkup {
	return keyboard.InlineButtonsNPerRow([]keyboard.InlineBtn{
		{Text: "✅ Approve", Unique: cbApprove, Data: id(q.ID)},
		{Text: "🚫 Reject", Unique: cbReject, Data: id(q.ID)},
	}, 2)
}

func cancelMarkup() *tele.ReplyMarkup {
	return keyboard.SingleCancelMarkup(cbCancel)
}
