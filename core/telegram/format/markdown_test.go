package format

import "testing"

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		in      string
		version int
		want    string
	}{
		{"snake_case *bold*", MarkdownV1, `snake\_case \*bold\*`},
		{"[link](x) `code`", MarkdownV1, "\\[link](x) \\`code\\`"},
		{"1+1=2. Done!", MarkdownV2, `1\+1\=2\. Done\!`},
		{"Что? (да)", MarkdownV2, `Что? \(да\)`},
	}
	for _, tt := range tests {
		got, err := EscapeMarkdown(tt.in, tt.version)
		if err != nil {
			t.Fatalf("EscapeMarkdown(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("EscapeMarkdown(%q, %d) = %q, want %q", tt.in, tt.version, got, tt.want)
		}
	}
	if _, err := EscapeMarkdown("x", 3); err == nil {
		t.Fatal("expected error for unknown version")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("короткий", 20); got != "короткий" {
		t.Fatalf("Truncate short = %q", got)
	}
	if got := Truncate("абвгдеж", 4); got != "абв…" {
		t.Fatalf("Truncate = %q", got)
	}
}
