package sink

import (
	"context"
	"os"
	"time"

	perr "discordsearch/internal/platform/errors"
	"discordsearch/internal/services/export/domain"
)

// Opener resolves the JSONL target for a session
type Opener struct {
	Fsync bool
}

// Open implements domain.SinkOpener. Resuming needs an existing output file
func (o Opener) Open(_ context.Context, req domain.Request, now time.Time) (domain.Sink, error) {
	if req.FromLast {
		if req.Output == "" || IsDirPath(req.Output) {
			return nil, perr.WithField(perr.Validationf("--from-last-output needs --output naming an existing file"), "--output")
		}
		st, err := os.Stat(req.Output)
		if err != nil || st.IsDir() {
			return nil, perr.WithField(perr.Validationf("output file %s does not exist", req.Output), "--output")
		}
	}
	path, err := ResolveTarget(req.Output, req.GuildID, req.Content, now)
	if err != nil {
		return nil, err
	}
	return NewJSONL(path, o.Fsync), nil
}
