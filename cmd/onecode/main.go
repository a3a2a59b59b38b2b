package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/andrei-cloud/go_onecode/internal/commands/cli"
)

// main runs the onecode command line. SIGINT and SIGTERM cancel the running
// command and exit with 130.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := cli.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	os.Exit(code)
}
