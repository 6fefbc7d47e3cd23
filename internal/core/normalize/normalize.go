// Package normalize turns free text (a search query) into a token that is safe
// inside a generated file name
// Pipeline order
// 1 Sanitize drop invalid UTF-8 and control runes, tabs and newlines become spaces
// 2 Unicode NFKC normalization
// 3 Remove combining and format marks
// 4 Width fold fullwidth to ASCII
// 5 Replace path and shell hostile runes with '-'
// 6 Join whitespace separated words with '_'
// 7 Truncate to MaxTokenRunes
package normalize

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// MaxTokenRunes bounds the query part of a generated file name
const MaxTokenRunes = 64

// pool of fresh transformer chains
var chainPool = sync.Pool{
	New: func() any {
		// order matters and mirrors the documented pipeline
		return transform.Chain(
			norm.NFKC,
			runes.Remove(runes.In(unicode.Mn)), // strip combining marks
			runes.Remove(runes.In(unicode.Cf)), // strip format chars ZWJ ZWNJ FEFF etc
			width.Fold,                         // map fullwidth forms to ASCII
		)
	},
}

// FileToken returns the file name safe form of s, "" when nothing usable remains
func FileToken(s string) string {
	if s == "" {
		return ""
	}

	s = Sanitize(s)

	tr := chainPool.Get().(transform.Transformer)
	ns, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		ns = s
	}

	ns = strings.Map(replaceHostile, ns)
	ns = strings.Join(strings.Fields(ns), "_")

	if r := []rune(ns); len(r) > MaxTokenRunes {
		ns = strings.TrimRight(string(r[:MaxTokenRunes]), "_-.")
	}
	return ns
}

// replaceHostile maps runes that break paths or shells to '-'
func replaceHostile(r rune) rune {
	switch r {
	case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '\'', '`', '$', '&', ';':
		return '-'
	}
	return r
}
