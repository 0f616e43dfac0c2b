package bot

import (
	"errors"

	"github.com/m3rciful/eldersbot/council/domain"
)

var userMessages = []struct {
	err  error
	text string
}{
	{domain.ErrEmptyText, "The text is empty. Please send a non-empty message."},
	{domain.ErrProhibitedContent, "Your question contains prohibited words. Please rephrase it and send it again."},
	{domain.ErrDuplicateQuestion, "A very similar question has already been published. Please check the list first."},
	{domain.ErrNotPending, "This question has already been moderated."},
	{domain.ErrNotFound, "Question not found."},
	{domain.ErrQuestionNotApproved, "This question is not published."},
	{domain.ErrForbidden, "Only experts and moderators can do that."},
	{domain.ErrUnknownActor, "Please send /start first."},
	{domain.ErrInvalidRole, "Unknown role. Use asker, expert or moderator."},
	{domain.ErrInvalidChoice, "Unknown vote."},
	{domain.ErrInvalidPage, "There is no such page."},
}

// userMessage maps a council error to the text shown in the chat.
func userMessage(err error) string {
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.text
		}
	}
	return "Something went wrong. Please try again later."
}
