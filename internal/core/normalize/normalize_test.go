package normalize

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFileToken_Table(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"single word", "hello", "hello"},
		{"words joined", "hello  big\tworld", "hello_big_world"},
		{"case kept", "Release Notes", "Release_Notes"},
		{"path separators", "a/b\\c", "a-b-c"},
		{"shell hostile", `why? "because" | me`, "why-_-because-_-_me"},
		{"fullwidth folded", "ｈｅｌｌｏ", "hello"},
		{"combining sequence composed", "cafe\u0301", "caf\u00e9"},
		{"zero width stripped", "a\u200bb", "ab"},
		{"newline is a boundary", "one\ntwo", "one_two"},
		{"controls dropped", "a\x00b\x7fc", "abc"},
		{"only spaces", "   ", ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := FileToken(c.in); got != c.want {
				t.Fatalf("FileToken(%q) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}

func TestFileToken_Truncates(t *testing.T) {
	in := strings.Repeat("ab ", 100)
	got := FileToken(in)
	if n := utf8.RuneCountInString(got); n > MaxTokenRunes {
		t.Fatalf("token has %d runes, max %d", n, MaxTokenRunes)
	}
	if strings.HasSuffix(got, "_") {
		t.Fatalf("truncated token should not end with a separator: %q", got)
	}
}

func TestSanitize(t *testing.T) {
	if got := Sanitize("plain text"); got != "plain text" {
		t.Fatalf("fast path changed input: %q", got)
	}
	bad := "a\xffb\u0080c\td"
	if got := Sanitize(bad); got != "abc d" {
		t.Fatalf("Sanitize(%q) = %q, want %q", bad, got, "abc d")
	}
}
