package domain

import (
	"context"
	"time"
)

// RunnerPort is the public port exposed by the module
type RunnerPort interface {
	Run(ctx context.Context, req Request) (Report, error)
}

// Searcher executes one search URL until it yields a page or the session
// error budget is spent
type Searcher interface {
	Search(ctx context.Context, rawURL string) (*SearchResult, error)
}

// ErrorCounter is implemented by searchers that track a session error budget
type ErrorCounter interface {
	Errors() int
}

// SessionResetter is implemented by searchers holding per-session state.
// The engine calls ResetSession before the first request of every session
type SessionResetter interface {
	ResetSession()
}

// Sink persists pages. Append is the unit of durability: a page is either
// fully written or not at all
type Sink interface {
	Append(ctx context.Context, page *SearchResult) error

	// LastID returns the first message id of the last persisted group, ok false when empty
	LastID(ctx context.Context) (id string, ok bool, err error)

	// Target names where records go, for reporting
	Target() string
}

// SinkOpener resolves a Sink for one session
type SinkOpener interface {
	Open(ctx context.Context, req Request, now time.Time) (Sink, error)
}

// MessageStore is the storage repository behind the database sink
type MessageStore interface {
	// EnsureSchema creates the append-only table when missing
	EnsureSchema(ctx context.Context) error

	// InsertGroups appends rows in order and returns the count written
	InsertGroups(ctx context.Context, sessionID, guildID string, groups []StoredGroup) (int64, error)

	// LastID returns the message id of the newest row for guildID
	LastID(ctx context.Context, guildID string) (string, bool, error)
}
