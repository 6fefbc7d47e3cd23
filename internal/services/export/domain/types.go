// Package domain holds the core data structures and ports of a search export session
package domain

import (
	"time"

	"discordsearch/internal/adapters/discord"
)

// SearchResult re-exports the page shape returned by the search transport
type SearchResult = discord.SearchResult

// MessageGroup re-exports one matched message with its context
type MessageGroup = discord.MessageGroup

// Message re-exports a single message record
type Message = discord.Message

// PageSize is the fixed number of message groups per search page
const PageSize = 25

// Filters are the user supplied search filters. Nil pointers are omitted
// from the query entirely
type Filters struct {
	GuildID   string  `flag:"guild" validate:"required"`
	Content   *string `flag:"query"`
	ChannelID *string `flag:"channel"`
	After     *string `flag:"after" validate:"omitempty,snowflake"`
	Before    *string `flag:"before" validate:"omitempty,snowflake"`
}

// Request is one export session as asked for by the caller
type Request struct {
	Filters

	// Output is a file path, a directory path ending in a separator, or empty
	Output string

	// FromLast resumes after the last record of Output, overriding After
	FromLast bool
}

// State is the pagination engine state
type State string

// Engine states
const (
	StateInit        State = "init"
	StateFetching    State = "fetching"
	StateReanchor    State = "reanchor"
	StateDone        State = "done"
	StateAborted     State = "aborted"
	StateInterrupted State = "interrupted"
)

// PaginationState is the cursor bookkeeping owned by the engine for one session
type PaginationState struct {
	// Offset counts pages fetched in the current anchor window, first page included
	Offset int

	// TotalRequests counts page requests across the whole session
	TotalRequests int

	// Errors mirrors the transport error budget spent so far
	Errors int
}

// Report summarizes a finished or stopped session
type Report struct {
	SessionID string
	GuildID   string
	Target    string
	State     State

	TotalResults  int
	TotalPages    int
	TotalRequests int
	Pages         int
	Messages      int
	Reanchors     int
	Errors        int

	// ResumedAfter is the anchor read from an existing output, if any
	ResumedAfter string

	// LastID is the first message id of the last persisted group
	LastID string

	StartedAt  time.Time
	FinishedAt time.Time
}

// Elapsed is the wall time of the session
func (r Report) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StoredGroup is one message group flattened for a database row
type StoredGroup struct {
	MessageID string
	ChannelID string
	AuthorID  string
	Timestamp string
	Group     []byte
}
