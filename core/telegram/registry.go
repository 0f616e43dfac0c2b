package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/m3rciful/eldersbot/core/logger"
	"github.com/m3rciful/eldersbot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// Command is a slash command with its menu metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands are wrapped with the admin check and never listed.
	AdminOnly bool
	Hidden    bool
	// Aliases also match plain text, with or without the slash.
	Aliases []string
}

// Fallbacks answers updates that no command, callback or prompt claims.
type Fallbacks interface {
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}

var errInvalidRegistration = errors.New("invalid registration")

// Registry maps command names and callback keys to handlers.
type Registry struct {
	mu        sync.RWMutex
	commands  map[string]Command
	aliases   map[string]string
	callbacks map[string]tele.HandlerFunc
	fallbacks Fallbacks
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]Command),
		aliases:   make(map[string]string),
		callbacks: make(map[string]tele.HandlerFunc),
	}
}

// RegisterCommand adds cmd under name, which must start with a slash.
func (r *Registry) RegisterCommand(name string, cmd Command) error {
	switch {
	case !strings.HasPrefix(name, "/") || len(name) < 2:
		return r.reject("command", name, "no_slash_prefix")
	case cmd.Handler == nil || cmd.Description == "":
		return r.reject("command", name, "invalid")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.commands[name]; taken {
		return r.reject("command", name, "duplicate")
	}
	r.commands[name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[strings.TrimPrefix(alias, "/")] = name
	}
	return nil
}

// LookupCommand resolves a command name or alias to its canonical name.
func (r *Registry) LookupCommand(text string) (string, Command, bool) {
	key := strings.TrimPrefix(strings.TrimSpace(text), "/")
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cmd, ok := r.commands["/"+key]; ok {
		return "/" + key, cmd, true
	}
	if name, ok := r.aliases[key]; ok {
		return name, r.commands[name], true
	}
	return "", Command{}, false
}

// Commands returns a snapshot of the registered commands.
func (r *Registry) Commands() map[string]Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.commands)
}

// MenuCommands lists the commands shown in the Telegram command menu.
func (r *Registry) MenuCommands() []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []tele.Command
	for _, name := range slices.Sorted(maps.Keys(r.commands)) {
		cmd := r.commands[name]
		if cmd.Hidden || cmd.AdminOnly {
			continue
		}
		list = append(list, tele.Command{Text: name, Description: cmd.Description})
	}
	return list
}

// RegisterCallback maps a callback unique key to handler.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		return r.reject("callback", key, "invalid")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.callbacks[key]; taken {
		return r.reject("callback", key, "duplicate")
	}
	r.callbacks[key] = handler
	return nil
}

// Callback returns the handler registered for key.
func (r *Registry) Callback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// CallbackKeys returns the registered keys in order.
func (r *Registry) CallbackKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.callbacks))
}

// SetFallbacks installs handlers for unmatched updates.
func (r *Registry) SetFallbacks(f Fallbacks) {
	r.mu.Lock()
	r.fallbacks = f
	r.mu.Unlock()
}

// UnknownCallback answers stale buttons. Without fallbacks it shows a toast.
func (r *Registry) UnknownCallback() tele.HandlerFunc {
	if f := r.currentFallbacks(); f != nil {
		return f.UnknownCallback()
	}
	return func(c tele.Context) error {
		return callbacks.Respond(c, "Unsupported action", false)
	}
}

// UnknownText returns the free text fallback, or nil.
func (r *Registry) UnknownText() tele.HandlerFunc {
	if f := r.currentFallbacks(); f != nil {
		return f.UnknownText()
	}
	return nil
}

// UnknownDocument returns the document fallback, or nil.
func (r *Registry) UnknownDocument() tele.HandlerFunc {
	if f := r.currentFallbacks(); f != nil {
		return f.UnknownDocument()
	}
	return nil
}

func (r *Registry) currentFallbacks() Fallbacks {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fallbacks
}

func (r *Registry) reject(kind, name, reason string) error {
	logger.Warn(context.Background(), "tg.wire", "register."+kind+".skip",
		slog.String("name", name),
		slog.String("reason", reason),
	)
	return fmt.Errorf("%w: %s %q: %s", errInvalidRegistration, kind, name, reason)
}

// InitBotCommands publishes the menu commands to Telegram.
func InitBotCommands(bot *tele.Bot, reg *Registry) {
	list := reg.MenuCommands()
	if err := bot.SetCommands(list); err != nil {
		logger.Error(context.Background(), "tg.wire", "register.commands.set_failed",
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return
	}
	logger.Info(context.Background(), "tg.wire", "register.commands.set",
		slog.Int("count", len(list)),
	)
}
