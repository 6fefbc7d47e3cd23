package pg

import (
	"context"
	"fmt"
	"strings"

	"discordsearch/internal/platform/logger"

	"github.com/rs/zerolog"
)

// QueryEvent describes one executed statement
type QueryEvent struct {
	SQL       string
	Args      []any
	ElapsedUS int64
	Err       error
	Slow      bool
}

// QueryTracer receives an event per statement
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// Tracer returns a tracer that prints SQL regardless of the root level.
// Array and byte arguments are summarized since a page insert carries whole messages
func Tracer(root logger.Logger) QueryTracer {
	ll := root.Level(zerolog.DebugLevel).With().Str("component", "pg").Logger()
	return &zlTracer{log: ll}
}

type zlTracer struct{ log logger.Logger }

func (z *zlTracer) OnQuery(_ context.Context, ev QueryEvent) {
	evt := z.log.Info()
	if ev.Slow {
		evt = z.log.Warn()
	}
	evt.Float64("elapsed_ms", float64(ev.ElapsedUS)/1000.0).
		Bool("slow", ev.Slow).
		Str("sql", compact(ev.SQL)).
		Strs("args", summarize(ev.Args)).
		Err(ev.Err).
		Msg("pg query")
}

func summarize(args []any) []string {
	out := make([]string, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case []byte:
			out[i] = fmt.Sprintf("bytes(%d)", len(v))
		case []string:
			out[i] = fmt.Sprintf("text[%d]", len(v))
		case [][]byte:
			out[i] = fmt.Sprintf("bytea[%d]", len(v))
		case string:
			if len(v) > 64 {
				v = v[:64] + "..."
			}
			out[i] = v
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
