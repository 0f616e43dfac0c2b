// Package filter flags text containing prohibited terms.
package filter

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/m3rciful/eldersbot/core/logger"
)

// TermSource supplies the prohibited term list.
type TermSource interface {
	Terms() ([]string, error)
}

// TermSourceFunc adapts a function to TermSource.
type TermSourceFunc func() ([]string, error)

// Terms calls f.
func (f TermSourceFunc) Terms() ([]string, error) {
	return f()
}

// StaticTerms is a fixed term list.
type StaticTerms []string

// Terms returns the list unchanged.
func (s StaticTerms) Terms() ([]string, error) {
	return []string(s), nil
}

// FileTerms reads one term per line; blank lines and lines starting with '#'
// are skipped.
type FileTerms struct {
	Path string
}

// Terms reads the file on every call.
func (f FileTerms) Terms() ([]string, error) {
	if strings.TrimSpace(f.Path) == "" {
		return nil, fmt.Errorf("filter: term file path is empty")
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("filter: open term file: %w", err)
	}
	defer fh.Close()

	var terms []string
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("filter: read term file: %w", err)
	}
	return terms, nil
}

// Filter matches whole words case-insensitively. When the term list cannot be
// loaded it fails open and reports no violation.
type Filter struct {
	source TermSource

	mu      sync.Mutex
	pattern *regexp.Regexp
	loaded  bool
}

// New builds a Filter backed by source. Terms are loaded lazily and a failed
// load is retried on the next call.
func New(source TermSource) *Filter {
	return &Filter{source: source}
}

// Violates reports whether text contains any prohibited term as a whole word.
func (f *Filter) Violates(ctx context.Context, text string) bool {
	if f == nil {
		return false
	}
	re := f.compiled(ctx)
	if re == nil {
		return false
	}
	return re.MatchString(text)
}

// Reload drops the compiled pattern so the next call re-reads the source.
func (f *Filter) Reload() {
	f.mu.Lock()
	f.loaded = false
	f.pattern = nil
	f.mu.Unlock()
}

func (f *Filter) compiled(ctx context.Context) *regexp.Regexp {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loaded {
		return f.pattern
	}
	if f.source == nil {
		f.loaded = true
		return nil
	}
	terms, err := f.source.Terms()
	if err != nil {
		logger.Warn(ctx, "filter", "terms.load",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
			slog.Bool("fail_open", true),
		)
		return nil
	}
	re, err := Compile(terms)
	if err != nil {
		logger.Warn(ctx, "filter", "terms.compile",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return nil
	}
	f.pattern = re
	f.loaded = true
	logger.Info(ctx, "filter", "terms.load",
		slog.String("status", "ok"),
		slog.Int("count", len(terms)),
	)
	return re
}

// Compile builds the alternation pattern. Word boundaries are Unicode-aware
// so Cyrillic terms match as whole words too. An empty list yields nil.
func Compile(terms []string) (*regexp.Regexp, error) {
	quoted := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		quoted = append(quoted, regexp.QuoteMeta(t))
	}
	if len(quoted) == 0 {
		return nil, nil
	}
	// longest first so a longer term wins over its prefix inside the group
	sort.SliceStable(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })
	const word = `\p{L}\p{N}_`
	expr := `(?i)(?:^|[^` + word + `])(?:` + strings.Join(quoted, "|") + `)(?:$|[^` + word + `])`
	return regexp.Compile(expr)
}
