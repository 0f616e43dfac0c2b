package middleware

import (
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

const repliesKey = "replies"

// replies counts what a handler sent back. Queued sends finish on dispatcher
// workers, possibly after the handler returned.
type replies struct {
	messages atomic.Int32
	keyboard atomic.Bool
}

type countingContext struct {
	tele.Context
	r *replies
}

func (c countingContext) track(err error, opts []any) error {
	if err != nil {
		return err
	}
	c.r.messages.Add(1)
	if hasKeyboard(opts) {
		c.r.keyboard.Store(true)
	}
	return nil
}

func hasKeyboard(opts []any) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

func (c countingContext) Send(what any, opts ...any) error {
	return c.track(c.Context.Send(what, opts...), opts)
}

func (c countingContext) Reply(what any, opts ...any) error {
	return c.track(c.Context.Reply(what, opts...), opts)
}

func (c countingContext) Edit(what any, opts ...any) error {
	return c.track(c.Context.Edit(what, opts...), opts)
}

func (c countingContext) EditOrSend(what any, opts ...any) error {
	return c.track(c.Context.EditOrSend(what, opts...), opts)
}

func (c countingContext) EditOrReply(what any, opts ...any) error {
	return c.track(c.Context.EditOrReply(what, opts...), opts)
}

// ReplyCounterMiddleware counts the messages a handler sends or edits and
// whether any of them carried a keyboard. The handler summary reads them
// through GetCounters.
func ReplyCounterMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		r := &replies{}
		c.Set(repliesKey, r)
		return next(countingContext{Context: c, r: r})
	}
}

// GetCounters returns the messages sent so far and whether one had a keyboard.
func GetCounters(c tele.Context) (int, bool) {
	r, ok := c.Get(repliesKey).(*replies)
	if !ok {
		return 0, false
	}
	return int(r.messages.Load()), r.keyboard.Load()
}
