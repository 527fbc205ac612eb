package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/trebuchet-org/uups-cli/internal/cli"
	"github.com/trebuchet-org/uups-cli/internal/config"
)

// Set by -ldflags at release time
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	config.SetBuildFlags(version, commit, date)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
