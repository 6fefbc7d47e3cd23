// Package strings provides optional-string helpers for filters and flags
package strings

import std "strings"

// Ptr returns a pointer to the trimmed s, or nil if s is blank
// Absent filters stay nil so they are omitted from requests instead of sent empty
func Ptr(s string) *string {
	s = std.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns "" if ps is nil, else *ps
func Deref(ps *string) string {
	if ps == nil {
		return ""
	}
	return *ps
}

// FirstNonEmpty returns the first value with non whitespace content, or ""
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = std.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
