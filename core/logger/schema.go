package logger

import "strings"

var knownStatus = map[string]bool{
	"ok":           true,
	"fail":         true,
	"skip":         true,
	"retry":        true,
	"rate_limited": true,
	"cancelled":    true,
}

var knownOutcome = map[string]bool{
	"ok":           true,
	"fail":         true,
	"cancelled":    true,
	"rate_limited": true,
}

// normalizeEnums lowercases known status values and drops unknown outcomes.
func normalizeEnums(rec record) {
	if s, ok := rec.str("status"); ok {
		if v := strings.ToLower(strings.TrimSpace(s)); knownStatus[v] {
			rec["status"] = v
		}
	}
	if o, ok := rec.str("outcome"); ok {
		if v := strings.ToLower(strings.TrimSpace(o)); knownOutcome[v] {
			rec["outcome"] = v
		} else {
			delete(rec, "outcome")
		}
	}
}

// defaultKeyOrder puts the envelope first, then request identity, then the
// council fields, then errors. Unlisted keys follow alphabetically.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"op",
	"cb_key",
	"outcome",
	"duration_ms",
	"messages",
	"kb",
	"question_id",
	"actor_id",
	"author_id",
	"role",
	"state",
	"decision",
	"choice",
	"net_score",
	"count",
	"page",
	"page_size",
	"total_pages",
	"total",
	"recipients",
	"failed",
	"event_type",
	"event_id",
	"payload",
	"username",
	"mode",
	"err",
	"err_code",
	"cause",
	"retryable",
	"attempts",
	"backoff_ms",
}
