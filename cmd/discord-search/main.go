package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	perr "discordsearch/internal/platform/errors"
	"discordsearch/internal/platform/logger"

	"github.com/joho/godotenv"
)

func main() {
	// a missing .env is fine, the environment may already carry everything
	_ = godotenv.Load()

	opt := logger.FromEnv()
	if opt.Service == "" {
		opt.Service = "discord-search"
	}
	logger.Init(opt)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()

	code := perr.ExitCode(err)
	if err != nil && code != 0 {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(code)
}
