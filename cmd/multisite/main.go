// Command multisite serves tenant-aware HTTP and manages tenant data.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}
