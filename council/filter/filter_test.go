package filter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestViolatesWholeWordCaseInsensitive(t *testing.T) {
	f := New(StaticTerms{"spam", "scam"})
	ctx := context.Background()

	cases := []struct {
		text string
		want bool
	}{
		{"this is SPAM", true},
		{"Spam!", true},
		{"(scam) offer", true},
		{"spammer here", false},
		{"antispam tools", false},
		{"nothing wrong", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := f.Violates(ctx, tc.text); got != tc.want {
			t.Fatalf("Violates(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestViolatesCyrillic(t *testing.T) {
	f := New(StaticTerms{"дурак"})
	ctx := context.Background()
	if !f.Violates(ctx, "ты ДУРАК, точно") {
		t.Fatal("expected cyrillic whole-word match")
	}
	if f.Violates(ctx, "дураки") {
		t.Fatal("cyrillic prefix must not match")
	}
}

func TestViolatesQuotesMetacharacters(t *testing.T) {
	f := New(StaticTerms{"c++", "a.b"})
	ctx := context.Background()
	if !f.Violates(ctx, "I hate c++ a lot") {
		t.Fatal("expected literal c++ to match")
	}
	if f.Violates(ctx, "axb") {
		t.Fatal("dot must be matched literally")
	}
}

func TestViolatesFailsOpen(t *testing.T) {
	calls := 0
	src := TermSourceFunc(func() ([]string, error) {
		calls++
		return nil, errors.New("unavailable")
	})
	f := New(src)
	if f.Violates(context.Background(), "anything at all") {
		t.Fatal("load failure must not block text")
	}
	f.Violates(context.Background(), "again")
	if calls != 2 {
		t.Fatalf("source calls = %d, want retry on each call", calls)
	}
}

func TestViolatesEmptyList(t *testing.T) {
	f := New(StaticTerms{"", "  "})
	if f.Violates(context.Background(), "anything") {
		t.Fatal("empty term list must not flag text")
	}
	var nilFilter *Filter
	if nilFilter.Violates(context.Background(), "anything") {
		t.Fatal("nil filter must not flag text")
	}
}

func TestFileTerms(t *testing.T) {
	path := filepath.Join(t.TempDir(), "banned.txt")
	if err := os.WriteFile(path, []byte("# comment\nspam\n\n  scam  \n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	terms, err := FileTerms{Path: path}.Terms()
	if err != nil {
		t.Fatalf("Terms: %v", err)
	}
	if len(terms) != 2 || terms[0] != "spam" || terms[1] != "scam" {
		t.Fatalf("terms = %v", terms)
	}

	f := New(FileTerms{Path: filepath.Join(t.TempDir(), "missing.txt")})
	if f.Violates(context.Background(), "spam") {
		t.Fatal("missing file must fail open")
	}
}

func TestReloadPicksUpNewTerms(t *testing.T) {
	terms := []string{"alpha"}
	f := New(TermSourceFunc(func() ([]string, error) { return terms, nil }))
	ctx := context.Background()
	if !f.Violates(ctx, "alpha") {
		t.Fatal("expected alpha to match")
	}
	terms = []string{"beta"}
	if f.Violates(ctx, "beta") {
		t.Fatal("compiled pattern should be cached until Reload")
	}
	f.Reload()
	if !f.Violates(ctx, "beta") {
		t.Fatal("expected beta after Reload")
	}
}
