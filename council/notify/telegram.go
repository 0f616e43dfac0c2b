package notify

import (
	"context"
	"errors"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/eldersbot/core/telegram/sender"
)

// TelegramSender delivers through the bot, queued on the outbound dispatcher
// when one is set.
type TelegramSender struct {
	Bot        *tele.Bot
	Dispatcher *sender.Dispatcher
}

// Send enqueues the message; with no dispatcher it sends inline.
func (s TelegramSender) Send(ctx context.Context, recipientID int64, text string) error {
	if s.Bot == nil {
		return errors.New("notify: telegram bot not set")
	}
	run := func() error {
		_, err := s.Bot.Send(tele.ChatID(recipientID), text)
		return err
	}
	if s.Dispatcher == nil {
		return run()
	}
	return s.Dispatcher.Enqueue(ctx, "notify", "sendMessage", run)
}
