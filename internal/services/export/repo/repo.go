// Package repo provides the postgres append-only message store
package repo

import (
	"context"
	"errors"
	"regexp"

	"discordsearch/internal/modkit/repokit"
	"discordsearch/internal/platform/store"
	"discordsearch/internal/services/export/domain"

	"github.com/jackc/pgx/v5"
)

// DefaultTable is used when no table is configured
const DefaultTable = "discord_messages"

var tableRe = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// ValidTable reports whether name is usable as an unqualified table name
func ValidTable(name string) bool { return tableRe.MatchString(name) }

type (
	// PG is a Postgres binder for domain.MessageStore
	PG      struct{ table string }
	queries struct {
		q     repokit.Queryer
		table string
	}
)

// NewPG returns a Postgres binder for domain.MessageStore writing to table
func NewPG(table string) repokit.Binder[domain.MessageStore] {
	if table == "" {
		table = DefaultTable
	}
	return PG{table: pgx.Identifier{table}.Sanitize()}
}

// Bind implements repokit.Binder
func (p PG) Bind(q repokit.Queryer) domain.MessageStore {
	return &queries{q: repokit.RequireQueryer(q), table: p.table}
}

// EnsureSchema creates the table and its lookup index
func (r *queries) EnsureSchema(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+r.table+` (
			id           bigserial PRIMARY KEY,
			session_id   text NOT NULL,
			guild_id     text NOT NULL,
			message_id   text NOT NULL,
			channel_id   text,
			author_id    text,
			message_time timestamptz,
			grp          jsonb NOT NULL,
			inserted_at  timestamptz NOT NULL DEFAULT now()
		)
	`); err != nil {
		return err
	}
	_, err := r.q.Exec(ctx, `CREATE INDEX IF NOT EXISTS `+indexName(r.table)+` ON `+r.table+` (guild_id, id DESC)`)
	return err
}

// InsertGroups appends one row per group in a single statement, keeping page order
func (r *queries) InsertGroups(ctx context.Context, sessionID, guildID string, groups []domain.StoredGroup) (int64, error) {
	if len(groups) == 0 {
		return 0, nil
	}
	ids := make([]string, len(groups))
	channels := make([]string, len(groups))
	authors := make([]string, len(groups))
	times := make([]string, len(groups))
	docs := make([]string, len(groups))
	for i, g := range groups {
		ids[i], channels[i], authors[i], times[i], docs[i] = g.MessageID, g.ChannelID, g.AuthorID, g.Timestamp, string(g.Group)
	}
	return store.Exec(ctx, r.q, `
		INSERT INTO `+r.table+` (session_id, guild_id, message_id, channel_id, author_id, message_time, grp)
		SELECT $1, $2, m.message_id, NULLIF(m.channel_id, ''), NULLIF(m.author_id, ''),
			NULLIF(m.message_time, '')::timestamptz, m.grp::jsonb
		FROM unnest($3::text[], $4::text[], $5::text[], $6::text[], $7::text[])
			WITH ORDINALITY AS m(message_id, channel_id, author_id, message_time, grp, ord)
		ORDER BY m.ord
	`, sessionID, guildID, ids, channels, authors, times, docs)
}

// LastID returns the message id of the newest row for guildID
func (r *queries) LastID(ctx context.Context, guildID string) (string, bool, error) {
	id, err := store.Scalar[string](ctx, r.q,
		`SELECT message_id FROM `+r.table+` WHERE guild_id = $1 ORDER BY id DESC LIMIT 1`, guildID)
	if errors.Is(err, store.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// indexName derives the index identifier from an already quoted table name
func indexName(quoted string) string {
	return pgx.Identifier{unquote(quoted) + "_guild_id_idx"}.Sanitize()
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
