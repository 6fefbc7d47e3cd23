package module

import (
	"time"

	"discordsearch/internal/platform/config"
)

// Sink kinds
const (
	SinkJSONL = "jsonl"
	SinkPG    = "pg"
)

// Options holds configuration settings for the export module
type Options struct {
	Token string

	BaseURL      string
	OffsetLimit  int
	MaxErrors    int
	ErrorBackoff time.Duration
	HTTPTimeout  time.Duration
	RPS          float64
	Burst        int
	UserAgent    string

	Sink  string
	Fsync bool

	Table            string
	StatementTimeout time.Duration
}

// FromConfig reads CORE_SEARCH_* plus the postgres sink table keys
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_SEARCH_")
	pg := cfg.Prefix("SERVICE_PGSQL_")
	return Options{
		Token:        cfg.MayString("DISCORD_TOKEN", ""),
		BaseURL:      c.MayURL("BASE_URL", "https://discord.com"),
		OffsetLimit:  c.MayInt("OFFSET_LIMIT", 400),
		MaxErrors:    c.MayInt("MAX_ERRORS", 5),
		ErrorBackoff: c.MayDuration("ERROR_BACKOFF", 5*time.Second),
		HTTPTimeout:  c.MayDuration("HTTP_TIMEOUT", 0),
		RPS:          c.MayFloat64("RPS", 0),
		Burst:        c.MayInt("BURST", 1),
		UserAgent:    c.MayString("USER_AGENT", ""),
		Sink:         c.MayEnum("SINK", SinkJSONL, SinkJSONL, SinkPG),
		Fsync:        c.MayBool("FSYNC", true),

		Table:            pg.MayString("TABLE", ""),
		StatementTimeout: pg.MayDuration("STATEMENT_TIMEOUT", 0),
	}
}

// merge applies non-zero overrides on top of o
func (o Options) merge(ov Options) Options {
	if ov.Token != "" {
		o.Token = ov.Token
	}
	if ov.BaseURL != "" {
		o.BaseURL = ov.BaseURL
	}
	if ov.OffsetLimit != 0 {
		o.OffsetLimit = ov.OffsetLimit
	}
	if ov.MaxErrors != 0 {
		o.MaxErrors = ov.MaxErrors
	}
	if ov.ErrorBackoff != 0 {
		o.ErrorBackoff = ov.ErrorBackoff
	}
	if ov.HTTPTimeout != 0 {
		o.HTTPTimeout = ov.HTTPTimeout
	}
	if ov.RPS != 0 {
		o.RPS = ov.RPS
	}
	if ov.Burst != 0 {
		o.Burst = ov.Burst
	}
	if ov.UserAgent != "" {
		o.UserAgent = ov.UserAgent
	}
	if ov.Sink != "" {
		o.Sink = ov.Sink
	}
	if ov.Table != "" {
		o.Table = ov.Table
	}
	if ov.StatementTimeout != 0 {
		o.StatementTimeout = ov.StatementTimeout
	}
	return o
}
