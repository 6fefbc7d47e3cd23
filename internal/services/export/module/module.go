// Package module wires the export service and exposes its ports
package module

import (
	"discordsearch/internal/adapters/discord"
	"discordsearch/internal/modkit"
	"discordsearch/internal/services/export/domain"
	"discordsearch/internal/services/export/repo"
	"discordsearch/internal/services/export/service"
	"discordsearch/internal/services/export/sink"
)

// Ports exposed by the export module
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements the export service module
type Module struct {
	deps  modkit.Deps
	opts  Options
	ports Ports
}

// New constructs the export module. Config defaults are read first, then
// non-zero overrides win. Client options reach the search transport
func New(deps modkit.Deps, overrides Options, copts ...discord.Option) *Module {
	opts := FromConfig(deps.Cfg).merge(overrides)

	client := discord.NewClient(discord.Options{
		UserAgent:    opts.UserAgent,
		Token:        opts.Token,
		Timeout:      opts.HTTPTimeout,
		MaxErrors:    opts.MaxErrors,
		ErrorBackoff: opts.ErrorBackoff,
		RPS:          opts.RPS,
		Burst:        opts.Burst,
	}, copts...)

	var opener domain.SinkOpener = sink.Opener{Fsync: opts.Fsync}
	if opts.Sink == SinkPG {
		opener = repo.Opener{
			DB:               deps.PG,
			Table:            opts.Table,
			StatementTimeout: opts.StatementTimeout,
		}
	}

	svc := service.New(client, opener, service.Config{
		BaseURL:     opts.BaseURL,
		OffsetLimit: opts.OffsetLimit,
	})

	m := &Module{deps: deps, opts: opts}
	m.ports = Ports{Runner: svc}
	return m
}

var _ modkit.Module = (*Module)(nil)

// Name satisfies modkit.Module
func (m *Module) Name() string { return "export" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// Options returns the resolved options
func (m *Module) Options() Options { return m.opts }
