// File: cmd/formrl/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/formrl/cmd"
	"github.com/xkilldash9x/formrl/internal/observability"
)

func main() {
	// Cancel on SIGINT/SIGTERM so training stops between steps and still
	// saves what it learned.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()
	if err != nil && !errors.Is(err, context.Canceled) {
		stop()
		os.Exit(1)
	}
}
