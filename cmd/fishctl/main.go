package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	root, c := newRootCmd()
	err := root.ExecuteContext(ctx)
	_ = c.teardown()
	stop()

	if err != nil {
		// No-op unless SENTRY_DSN initialised the hub.
		sentry.CaptureException(err)
		sentry.Flush(2 * time.Second)

		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
