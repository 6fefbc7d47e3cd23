// Package modkit provides module wiring and core deps
package modkit

import (
	"discordsearch/internal/modkit/repokit"
	"discordsearch/internal/platform/config"
	"discordsearch/internal/platform/logger"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log logger.Logger
	Cfg config.Conf

	// PG is nil unless a module asked for postgres
	PG repokit.TxRunner
}
