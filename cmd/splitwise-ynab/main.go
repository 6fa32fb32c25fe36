// Package main is the entry point for the splitwise-ynab CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/cmd/splitwise-ynab/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
