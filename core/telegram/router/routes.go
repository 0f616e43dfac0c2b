// Package router turns a Registry into telebot routes. Every route logs one
// handler summary per update.
package router

import (
	"context"
	"log/slog"

	"github.com/m3rciful/eldersbot/core/logger"
	tg "github.com/m3rciful/eldersbot/core/telegram"
	"github.com/m3rciful/eldersbot/core/telegram/callbacks"
	"github.com/m3rciful/eldersbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM is the part of a session manager the text route needs.
type FSM interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// Options configures Routes.
type Options struct {
	// AdminID guards AdminOnly commands.
	AdminID       int64
	OnAdminReject tele.HandlerFunc
	// Sessions receives text and documents while a prompt is open.
	Sessions FSM
}

// Routes returns the command, callback and text routes for reg.
func Routes(reg *tg.Registry, opts Options) []tg.Route {
	routes := CommandRoutes(reg, opts)
	routes = append(routes, CallbackRoute(reg))
	routes = append(routes, TextRoutes(reg, opts.Sessions)...)

	logger.Info(context.Background(), "tg.wire", "complete",
		slog.Int("commands", len(reg.Commands())),
		slog.Int("callbacks", len(reg.CallbackKeys())),
	)
	return routes
}

func entry(h tele.HandlerFunc) tele.HandlerFunc {
	return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
}

// CommandRoutes binds each registered command to its slash endpoint.
func CommandRoutes(reg *tg.Registry, opts Options) []tg.Route {
	admin := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for name, cmd := range cmds {
		label := "command." + handlerName(name)
		h := entry(func(c tele.Context) error {
			return handled(c, label, func() error { return cmd.Handler(c) })
		})
		if cmd.AdminOnly {
			h = admin(h)
		}
		routes = append(routes, tg.Route{Endpoint: name, Handler: h})
	}
	return routes
}

// CallbackRoute dispatches inline buttons by their unique key. Buttons the
// handler did not answer are acknowledged silently afterwards.
func CallbackRoute(reg *tg.Registry) tg.Route {
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler: entry(func(c tele.Context) error {
			if c.Callback() == nil {
				return nil
			}
			defer func() { _ = callbacks.Respond(c, "", false) }()

			key := callbacks.CallbackKey(c)
			label := "callback." + handlerName(key)
			fn, ok := reg.Callback(key)
			if !ok {
				fn = reg.UnknownCallback()
				return handled(c, label, func() error { return fn(c) },
					slog.String("cb_key", key), slog.String("reason", "not_found"))
			}
			return handled(c, label, func() error { return fn(c) }, slog.String("cb_key", key))
		}),
	}
}

// TextRoutes sends text to the open prompt, then to a command alias, then to
// the text fallback. Documents only reach an open prompt or the document
// fallback.
func TextRoutes(reg *tg.Registry, sessions FSM) []tg.Route {
	inPrompt := func(c tele.Context) bool {
		return sessions != nil && c.Sender() != nil && sessions.InProgress(c.Sender().ID)
	}

	text := func(c tele.Context) error {
		if inPrompt(c) {
			return handled(c, "fsm", func() error { return sessions.ManagerHandler(c) })
		}
		if name, cmd, ok := reg.LookupCommand(c.Text()); ok {
			return handled(c, "command."+handlerName(name), func() error { return cmd.Handler(c) })
		}
		if fb := reg.UnknownText(); fb != nil {
			return handled(c, "unknown_text", func() error { return fb(c) })
		}
		skipped(c, "unknown_text")
		return nil
	}

	document := func(c tele.Context) error {
		if inPrompt(c) {
			return handled(c, "fsm_document", func() error { return sessions.ManagerHandler(c) })
		}
		if fb := reg.UnknownDocument(); fb != nil {
			return handled(c, "unexpected_document", func() error { return fb(c) })
		}
		skipped(c, "unexpected_document")
		return nil
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: entry(text)},
		{Endpoint: tele.OnDocument, Handler: entry(document)},
	}
}
