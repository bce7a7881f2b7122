// Package main is the entry point for the fisioctl CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fisioonhand/goSession/cmd/fisioctl/cmd"
	"github.com/fisioonhand/goSession/internal/output"
)

// version is set at build time via ldflags
var version = "dev"

func main() {
	cmd.SetVersion(version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx)
	stop()

	if err != nil {
		output.NewPrinter(output.ResolveColors(true)).FormatError(err)
		os.Exit(output.ExitCode(err))
	}
}
