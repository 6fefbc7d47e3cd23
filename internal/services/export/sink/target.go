// Package sink persists search pages as newline delimited JSON
package sink

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"discordsearch/internal/core/normalize"
	perr "discordsearch/internal/platform/errors"
	pstrings "discordsearch/internal/platform/strings"
)

// FileTimeLayout is the timestamp part of generated file names
const FileTimeLayout = "20060102_150405"

// FileName returns <guild>_<query>_<YYYYmmdd_HHMMSS>.jsonl. The query part is
// empty when no text query was given
func FileName(guildID string, content *string, now time.Time) string {
	return normalize.FileToken(guildID) + "_" +
		normalize.FileToken(pstrings.Deref(content)) + "_" +
		now.Format(FileTimeLayout) + ".jsonl"
}

// IsDirPath reports whether output names a directory by its trailing separator
func IsDirPath(output string) bool {
	return strings.HasSuffix(output, "/") || strings.HasSuffix(output, string(os.PathSeparator))
}

// ResolveTarget maps the output flag to a file path. A file path is used
// verbatim; a directory path is created if absent and gets a generated name;
// an empty output generates a name in the working directory
func ResolveTarget(output, guildID string, content *string, now time.Time) (string, error) {
	name := FileName(guildID, content, now)
	switch {
	case output == "":
		return name, nil
	case IsDirPath(output):
		if err := os.MkdirAll(output, 0o755); err != nil {
			return "", perr.Wrapf(err, perr.ErrorCodeIO, "create output directory %s", output)
		}
		return filepath.Join(output, name), nil
	default:
		return output, nil
	}
}
