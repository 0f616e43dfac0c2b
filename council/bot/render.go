package bot

import (
	"fmt"
	"strings"

	"github.com/m3rciful/eldersbot/core/telegram/format"
	"github.com/m3rciful/eldersbot/council/domain"
	"github.com/m3rciful/eldersbot/council/service"
)

const (
	previewRunes = 80
	timeLayout   = "2006-01-02 15:04"
)

func signed(n int64) string {
	if n > 0 {
		return fmt.Sprintf("+%d", n)
	}
	return fmt.Sprintf("%d", n)
}

func voteLabel(v domain.VoteChoice) string {
	switch v {
	case domain.VoteUp:
		return "👍"
	case domain.VoteDown:
		return "👎"
	}
	return "none"
}

func renderMenu(role domain.Role) string {
	var b strings.Builder
	b.WriteString("*Council of Elders*\n\nAsk a question anonymously, vote for the ones you care about and read the answers.")
	if role != domain.RoleAsker {
		fmt.Fprintf(&b, "\n\nYour role: %s", role)
	}
	return b.String()
}

func renderList(title string, items []domain.Question, offset int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", title)
	if len(items) == 0 {
		b.WriteString("\nNo questions yet.")
		return b.String()
	}
	for i, q := range items {
		mark := ""
		if q.Answered {
			mark = " ✅"
		}
		fmt.Fprintf(&b, "\n%d. [%s]%s %s", offset+i+1, signed(q.NetScore), mark, format.MD(format.Truncate(q.Text, previewRunes)))
	}
	return b.String()
}

func renderTop(items []domain.Question) string {
	return renderList("Top questions", items, 0)
}

func renderPage(p service.PageResult) string {
	title := fmt.Sprintf("Questions, page %d of %d", p.Page, p.TotalPages)
	return renderList(title, p.Items, (p.Page-1)*p.PageSize)
}

func renderView(v service.QuestionView) string {
	q := v.Question
	var b strings.Builder
	fmt.Fprintf(&b, "*Question #%d*\n\n%s\n\n", q.ID, format.MD(q.Text))
	fmt.Fprintf(&b, "Score: %s · Your vote: %s\n", signed(q.NetScore), voteLabel(v.MyVote))
	if len(v.Answers) == 0 {
		b.WriteString("\nNo answers yet.")
		return b.String()
	}
	fmt.Fprintf(&b, "\n*Answers (%d)*", len(v.Answers))
	for _, a := range v.Answers {
		name := a.AuthorName
		if name == "" {
			name = "Unknown"
		}
		fmt.Fprintf(&b, "\n\n— %s (%s), %s:\n%s",
			format.MD(name), a.AuthorRole, a.CreatedAt.UTC().Format(timeLayout), format.MD(a.Text))
	}
	return b.String()
}

func renderPending(q domain.Question) string {
	return fmt.Sprintf("*Pending question #%d*\n%s\n\n%s", q.ID, q.CreatedAt.UTC().Format(timeLayout), format.MD(q.Text))
}

func renderDecision(q domain.Question, d domain.Decision) string {
	verb := "Approved"
	if d == domain.DecisionReject {
		verb = "Rejected"
	}
	return fmt.Sprintf("*%s #%d*\n\n%s", verb, q.ID, format.MD(q.Text))
}
