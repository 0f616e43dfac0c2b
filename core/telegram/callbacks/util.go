package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ParseCallbackData splits a callback into its unique key and payload.
// Buttons built with ReplyMarkup.Data arrive on the generic OnCallback
// endpoint as "\f<unique>|<payload>"; when telebot already routed the
// button, Unique is set and Data holds just the payload.
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	unique, payload, _ := strings.Cut(raw, "|")
	return strings.TrimSpace(unique), payload
}

// CallbackKey returns the unique key of the current callback.
func CallbackKey(c tele.Context) string {
	k, _ := ParseCallbackData(c.Callback())
	return k
}

// CallbackPayload returns the payload of the current callback.
func CallbackPayload(c tele.Context) string {
	_, payload := ParseCallbackData(c.Callback())
	return payload
}

const respondedKey = "cb_responded"

// Respond answers the callback query once. Later calls are no-ops, so a
// router can acknowledge callbacks a handler left unanswered.
func Respond(c tele.Context, text string, alert bool) error {
	if c.Callback() == nil || Responded(c) {
		return nil
	}
	c.Set(respondedKey, true)
	if text == "" {
		return c.Respond()
	}
	return c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: alert})
}

// Responded reports whether Respond already answered the current callback.
func Responded(c tele.Context) bool {
	v, _ := c.Get(respondedKey).(bool)
	return v
}
