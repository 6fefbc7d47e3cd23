package store

import (
	"time"

	"discordsearch/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG PGConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	// boot knobs
	ConnectRetries int           // <=0 -> 6
	PingTimeout    time.Duration // <=0 -> 3s
}

// FromConfig reads SERVICE_PGSQL_* keys. The DSN is only required when enabled
func FromConfig(cfg config.Conf, appName string, enabled bool) Config {
	pg := cfg.Prefix("SERVICE_PGSQL_")
	out := Config{AppName: appName}
	if !enabled {
		return out
	}
	out.PG = PGConfig{
		Enabled:        true,
		URL:            pg.MustString("DBURL"),
		MaxConns:       int32(pg.MayInt("MAX_CONNS", 4)),
		LogSQL:         pg.MayBool("LOG_SQL", false),
		SlowQueryMs:    pg.MayInt("SLOW_MS", 500),
		ConnectRetries: pg.MayInt("CONNECT_RETRIES", 6),
		PingTimeout:    pg.MayDuration("PING_TIMEOUT", 3*time.Second),
	}
	return out
}
