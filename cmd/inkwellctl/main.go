// Command inkwellctl runs migrations, seeds demo data and watches the live feed.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"inkwell/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}
