package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"os"

	perr "discordsearch/internal/platform/errors"
	"discordsearch/internal/platform/logger"
	"discordsearch/internal/services/export/domain"
)

// JSONL appends one message group per line to a file. The file is opened and
// closed around every page so nothing is buffered between pages
type JSONL struct {
	path  string
	fsync bool
}

// NewJSONL returns a sink writing to path
func NewJSONL(path string, fsync bool) *JSONL {
	return &JSONL{path: path, fsync: fsync}
}

// Target returns the file path
func (j *JSONL) Target() string { return j.path }

// Append writes every group of page in a single write. Empty pages are a no-op
func (j *JSONL) Append(ctx context.Context, page *domain.SearchResult) error {
	if page.Empty() {
		return nil
	}
	buf, err := encodePage(page)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeIO, "open %s", j.path)
	}
	if _, err := f.Write(buf); err != nil {
		_ = f.Close()
		return perr.Wrapf(err, perr.ErrorCodeIO, "append %s", j.path)
	}
	if j.fsync {
		if err := f.Sync(); err != nil {
			_ = f.Close()
			return perr.Wrapf(err, perr.ErrorCodeIO, "sync %s", j.path)
		}
	}
	if err := f.Close(); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeIO, "close %s", j.path)
	}

	logger.C(ctx).Debug().Str("component", "sink").
		Str("target", j.path).
		Int("groups", page.Count()).
		Int("bytes", len(buf)).
		Msg("page appended")
	return nil
}

// LastID returns the first message id of the last record in the file
func (j *JSONL) LastID(_ context.Context) (string, bool, error) {
	return LastID(j.path)
}

// encodePage renders each group as one compact JSON line. HTML escaping is
// off so message text keeps its original bytes
func encodePage(page *domain.SearchResult) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, g := range page.Messages {
		if err := enc.Encode(g); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeJSON, "encode group %d", i)
		}
	}
	return buf.Bytes(), nil
}
