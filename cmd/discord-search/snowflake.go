package main

import (
	"fmt"
	"io"
	"time"

	"discordsearch/internal/core/snowflake"
	perr "discordsearch/internal/platform/errors"

	"github.com/spf13/cobra"
)

func newSnowflakeCmd(out io.Writer) *cobra.Command {
	var (
		at    string
		epoch int64
	)
	cmd := &cobra.Command{
		Use:   "snowflake [id...]",
		Short: "Decode snowflake ids to local times, or encode a time with --at",
		RunE: func(cmd *cobra.Command, args []string) error {
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return perr.WithField(perr.Wrapf(err, perr.ErrorCodeValidation, "invalid time %q, want RFC3339", at), "--at")
				}
				fmt.Fprintln(out, snowflake.Encode(t))
				return nil
			}
			if len(args) == 0 {
				return perr.Validationf("give one or more ids to decode, or --at to encode")
			}
			for _, id := range args {
				t, err := snowflake.DecodeWithEpoch(id, epoch)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%s\n", id, t.Format(time.RFC3339Nano))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "RFC3339 time to encode as the smallest id created at it")
	cmd.Flags().Int64Var(&epoch, "epoch", snowflake.Epoch, "epoch in unix milliseconds used to decode")
	return cmd
}
