// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/homewire/cmd/homewire/cli"
	"github.com/bureau-foundation/homewire/cmd/homewire/commands"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own output (like config check)
		// return an ExitError with the desired exit code. Don't print a
		// redundant "error:" line for those.
		var exitError *cli.ExitError
		if errors.As(err, &exitError) {
			os.Exit(exitError.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var toolError *cli.ToolError
		if errors.As(err, &toolError) {
			os.Exit(toolError.ExitCode())
		}
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return commands.Root().ExecuteContext(ctx, os.Args[1:])
}
