// ABOUTME: Entry point for the cui binary.
// ABOUTME: Installs signal handling and hands off to the cli package.

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/hcnode/cui/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cli.Execute(ctx)
}
