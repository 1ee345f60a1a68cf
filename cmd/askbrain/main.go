// Package main is the entry point for the askbrain CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/voroninsergei/askbrain/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
