package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"discordsearch/internal/modkit"
	"discordsearch/internal/platform/config"
	perr "discordsearch/internal/platform/errors"
	"discordsearch/internal/platform/logger"
	"discordsearch/internal/platform/store"
	pstr "discordsearch/internal/platform/strings"
	"discordsearch/internal/services/export/domain"
	"discordsearch/internal/services/export/module"
	"discordsearch/internal/services/export/query"

	"github.com/spf13/cobra"
)

const appName = "discord-search"

// rootFlags mirrors the export flags
type rootFlags struct {
	guild    string
	token    string
	output   string
	query    string
	channel  string
	after    string
	before   string
	fromLast bool
	sink     string
}

// storeOpen is swapped in tests
var storeOpen = store.Open

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	var f rootFlags
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Export every message of a Discord guild search to an append-only sink",
		Long: `Pages through the guild message search in ascending time order and appends
every page to a JSON Lines file (or a Postgres table) as soon as it arrives.
Rate limits are waited out; an interrupted export keeps everything written so far
and can be resumed with --from-last-output.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().NFlag() == 0 {
				_ = cmd.Help()
				return perr.Validationf("no arguments given")
			}
			return runExport(cmd.Context(), f, out)
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	fl := cmd.Flags()
	fl.StringVarP(&f.guild, "guild", "g", "", "guild id to search (required)")
	fl.StringVarP(&f.token, "token", "t", "", "authorization token (default $DISCORD_TOKEN)")
	fl.StringVarP(&f.output, "output", "o", "", "output file, or a directory ending in a separator")
	fl.StringVarP(&f.query, "query", "q", "", "message content to search for")
	fl.StringVarP(&f.channel, "channel", "c", "", "restrict to one channel id")
	fl.StringVarP(&f.after, "after", "a", "", "only messages after this snowflake id")
	fl.StringVarP(&f.before, "before", "b", "", "only messages before this snowflake id")
	fl.BoolVarP(&f.fromLast, "from-last-output", "l", false, "resume after the last message in --output, overrides --after")
	fl.StringVar(&f.sink, "sink", "", "sink kind: jsonl or pg (default $CORE_SEARCH_SINK or jsonl)")

	cmd.AddCommand(newSnowflakeCmd(out), newVersionCmd(out))
	return cmd
}

// runExport wires one session and prints its summary on every exit path after it started
func runExport(ctx context.Context, f rootFlags, out io.Writer) error {
	root := config.New()
	log := logger.Named("cli")

	kind := strings.ToLower(pstr.FirstNonEmpty(f.sink, root.Prefix("CORE_SEARCH_").MayString("SINK", ""), module.SinkJSONL))
	switch kind {
	case module.SinkJSONL, module.SinkPG:
	default:
		return perr.WithField(perr.Validationf("unknown sink %q, want jsonl or pg", kind), "--sink")
	}

	req := domain.Request{
		Filters: domain.Filters{
			GuildID:   strings.TrimSpace(f.guild),
			Content:   pstr.Ptr(f.query),
			ChannelID: pstr.Ptr(f.channel),
			After:     pstr.Ptr(f.after),
			Before:    pstr.Ptr(f.before),
		},
		Output:   f.output,
		FromLast: f.fromLast,
	}

	// bad input fails before any connection is made
	if err := query.Validate(req.Filters); err != nil {
		return err
	}
	token := pstr.FirstNonEmpty(f.token, root.MayString("DISCORD_TOKEN", ""))
	if token == "" {
		return perr.WithField(perr.Validationf("--token is required (or set DISCORD_TOKEN)"), "--token")
	}

	deps := modkit.Deps{Log: *log, Cfg: root}
	if kind == module.SinkPG {
		if root.Prefix("SERVICE_PGSQL_").MayString("DBURL", "") == "" {
			return perr.WithField(perr.Validationf("--sink pg needs SERVICE_PGSQL_DBURL"), "SERVICE_PGSQL_DBURL")
		}
		st, err := storeOpen(ctx, store.FromConfig(root, appName, true), store.WithLogger(*log))
		if err != nil {
			return perr.Wrap(err, perr.ErrorCodeDB, "open postgres sink")
		}
		defer func() {
			if err := st.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close store")
			}
		}()
		deps.PG = st.PG
	}

	m := module.New(deps, module.Options{Token: token, Sink: kind})
	rep, err := m.Ports().(module.Ports).Runner.Run(ctx, req)
	if rep.ResumedAfter != "" {
		fmt.Fprintf(out, "Overwriting --after with last message ID: %s\n", rep.ResumedAfter)
	}
	if rep.Target != "" || rep.TotalRequests > 0 {
		printSummary(out, rep)
	}
	return err
}
