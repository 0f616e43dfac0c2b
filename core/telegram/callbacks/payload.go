package callbacks

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// PayloadInt64 reads the callback payload as a decimal id.
func PayloadInt64(c tele.Context) (int64, error) {
	raw := strings.TrimSpace(CallbackPayload(c))
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("callback %q: bad payload %q: %w", CallbackKey(c), raw, err)
	}
	return n, nil
}

// PayloadInt is PayloadInt64 for small numbers such as page indexes.
func PayloadInt(c tele.Context) (int, error) {
	n, err := PayloadInt64(c)
	return int(n), err
}
