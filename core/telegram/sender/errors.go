package sender

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/eldersbot/core/telegram/netutil"
)

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// retryable covers transient network failures plus Telegram flood control
// and server-side errors.
func retryable(err error) bool {
	return netutil.ShouldRetry(err) || floodDelay(err) > 0 || httpStatus(err) >= 500
}

func floodDelay(err error) time.Duration {
	var flood tele.FloodError
	if errors.As(err, &flood) && flood.RetryAfter > 0 {
		return time.Duration(flood.RetryAfter) * time.Second
	}
	return 0
}

func classifyError(err error) string {
	if kind := netutil.Classify(err); kind != netutil.KindUnknown {
		return kind
	}
	switch status := httpStatus(err); {
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	}
	return netutil.KindUnknown
}

// sanitizeErrorMessage hides the bot token that net/http puts in URLs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}

// httpStatus extracts the Bot API status from typed telebot errors, or from
// the trailing "(code)" telebot appends to untyped ones.
func httpStatus(err error) int {
	var apiErr *tele.Error
	var flood tele.FloodError
	var group tele.GroupError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &apiErr):
		return apiErr.Code
	case errors.As(err, &flood):
		return http.StatusTooManyRequests
	case errors.As(err, &group):
		return http.StatusBadRequest
	}

	msg := err.Error()
	open, closing := strings.LastIndexByte(msg, '('), strings.LastIndexByte(msg, ')')
	if open < 0 || closing <= open+1 {
		return 0
	}
	code, convErr := strconv.Atoi(strings.TrimSpace(msg[open+1 : closing]))
	if convErr != nil {
		return 0
	}
	return code
}
