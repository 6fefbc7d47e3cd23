package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"time"

	"discordsearch/internal/modkit/repokit"
	perr "discordsearch/internal/platform/errors"
	"discordsearch/internal/platform/logger"
	"discordsearch/internal/services/export/domain"
)

// Sink appends pages to the message table, one transaction per page
type Sink struct {
	db      repokit.TxRunner
	binder  repokit.Binder[domain.MessageStore]
	guildID string
	target  string
}

// NewSink returns a database sink for one guild
func NewSink(db repokit.TxRunner, binder repokit.Binder[domain.MessageStore], guildID, table string) *Sink {
	if db == nil {
		panic("repo.Sink requires a non nil TxRunner")
	}
	if table == "" {
		table = DefaultTable
	}
	return &Sink{db: db, binder: binder, guildID: guildID, target: "postgres:" + table}
}

// Target names the table
func (s *Sink) Target() string { return s.target }

// Append writes every group of page atomically. Empty pages are a no-op
func (s *Sink) Append(ctx context.Context, page *domain.SearchResult) error {
	if page.Empty() {
		return nil
	}
	groups, err := Flatten(page)
	if err != nil {
		return err
	}
	sessionID := logger.SessionID(ctx)
	err = repokit.WithTx(ctx, s.db, func(q repokit.Queryer) error {
		n, err := s.binder.Bind(q).InsertGroups(ctx, sessionID, s.guildID, groups)
		if err != nil {
			return err
		}
		if n != int64(len(groups)) {
			return perr.DBf("inserted %d of %d groups", n, len(groups))
		}
		return nil
	})
	if err != nil && !perr.IsCode(err, perr.ErrorCodeDB) {
		return perr.Wrap(err, perr.ErrorCodeDB, "append page")
	}
	return err
}

// LastID returns the newest message id stored for the sink's guild
func (s *Sink) LastID(ctx context.Context) (id string, ok bool, err error) {
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		id, ok, err = s.binder.Bind(q).LastID(ctx, s.guildID)
		return err
	})
	if err != nil {
		return "", false, perr.Wrap(err, perr.ErrorCodeDB, "read last id")
	}
	return id, ok, nil
}

// Flatten maps each group to a row keyed by its matched message
func Flatten(page *domain.SearchResult) ([]domain.StoredGroup, error) {
	out := make([]domain.StoredGroup, 0, page.Count())
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, g := range page.Messages {
		if len(g) == 0 {
			return nil, perr.JSONErrf("message group %d is empty", i)
		}
		buf.Reset()
		if err := enc.Encode(g); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeJSON, "encode group %d", i)
		}
		m := g[0]
		out = append(out, domain.StoredGroup{
			MessageID: m.ID,
			ChannelID: m.ChannelID,
			AuthorID:  m.Author.ID,
			Timestamp: m.Timestamp,
			Group:     bytes.TrimRight(bytes.Clone(buf.Bytes()), "\n"),
		})
	}
	return out, nil
}

// Opener prepares the table and returns a Sink per session
type Opener struct {
	DB    repokit.TxRunner
	Table string

	// StatementTimeout bounds every statement of a page transaction; 0 leaves the server default
	StatementTimeout time.Duration
}

// Open implements domain.SinkOpener. Output is ignored; resume reads the table
func (o Opener) Open(ctx context.Context, req domain.Request, _ time.Time) (domain.Sink, error) {
	if o.DB == nil {
		return nil, perr.Validationf("postgres sink selected but SERVICE_PGSQL_DBURL is not configured")
	}
	table := o.Table
	if table == "" {
		table = DefaultTable
	}
	if !ValidTable(table) {
		return nil, perr.WithField(perr.Validationf("invalid table name %q", table), "SERVICE_PGSQL_TABLE")
	}

	db := o.DB
	if o.StatementTimeout > 0 {
		ms := o.StatementTimeout.Milliseconds()
		db = repokit.WithBeginHooks(db, func(ctx context.Context, q repokit.Queryer) error {
			_, err := q.Exec(ctx, "SELECT set_config('statement_timeout', $1, true)", formatMS(ms))
			return err
		})
	}

	binder := NewPG(table)
	if err := db.Tx(ctx, func(q repokit.Queryer) error {
		return binder.Bind(q).EnsureSchema(ctx)
	}); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeDB, "ensure message table")
	}
	return NewSink(db, binder, req.GuildID, table), nil
}

// formatMS renders a statement_timeout value; a bare integer is milliseconds
func formatMS(ms int64) string { return strconv.FormatInt(ms, 10) }
