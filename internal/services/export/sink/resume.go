package sink

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	perr "discordsearch/internal/platform/errors"
)

const tailChunk = 64 << 10

// LastLine returns the last non blank line of path, reading backwards from the end
func LastLine(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeIO, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeIO, "stat %s", path)
	}

	var tail []byte
	for pos := st.Size(); pos > 0; {
		n := min(int64(tailChunk), pos)
		pos -= n
		chunk := make([]byte, n)
		if _, err := f.ReadAt(chunk, pos); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeIO, "read %s", path)
		}
		tail = append(chunk, tail...)
		trimmed := bytes.TrimRight(tail, "\r\n\t ")
		if i := bytes.LastIndexByte(trimmed, '\n'); i >= 0 {
			return bytes.TrimSpace(trimmed[i+1:]), nil
		}
	}
	return bytes.TrimSpace(tail), nil
}

// LastID returns the id of the first message in the last record of path.
// ok is false when the file is missing or holds no records
func LastID(path string) (id string, ok bool, err error) {
	line, err := LastLine(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	if len(line) == 0 {
		return "", false, nil
	}
	var group []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(line, &group); err != nil {
		return "", false, perr.Wrapf(err, perr.ErrorCodeJSON, "last record of %s is not a message group", path)
	}
	if len(group) == 0 || group[0].ID == "" {
		return "", false, perr.JSONErrf("last record of %s has no message id", path)
	}
	return group[0].ID, true, nil
}
