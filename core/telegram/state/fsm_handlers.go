package state

import (
	"log/slog"
	"sync"

	"github.com/m3rciful/eldersbot/core/logger"
	tghelpers "github.com/m3rciful/eldersbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

var (
	fsmMu       sync.RWMutex
	fsmHandlers = map[State]tele.HandlerFunc{}
)

// RegisterHandler associates a state with its handler.
func RegisterHandler(st State, h tele.HandlerFunc) {
	if h == nil {
		return
	}
	fsmMu.Lock()
	fsmHandlers[st] = h
	fsmMu.Unlock()
}

func handlerFor(st State) (tele.HandlerFunc, bool) {
	fsmMu.RLock()
	defer fsmMu.RUnlock()
	h, ok := fsmHandlers[st]
	return h, ok
}

// dispatch runs the handler registered for current. A state without a
// handler is dropped so the user is not stuck in it.
func dispatch(c tele.Context, mgr Manager, current State) error {
	userID := c.Sender().ID
	ctx := tghelpers.BuildContext(c)
	handler, ok := handlerFor(current)
	logger.Debug(ctx, "tg", "fsm.manager",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("state", string(current)),
		slog.Bool("matched", ok),
	)
	if !ok {
		mgr.Clear(userID)
		return nil
	}
	return handler(c)
}
