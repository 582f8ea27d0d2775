// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete homewire CLI command tree.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/homewire/cmd/homewire/cli"
	"github.com/bureau-foundation/homewire/lib/version"
)

// Root builds and returns the complete homewire CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "homewire",
		Description: `homewire: command-line client for home-automation controllers.

Read and write resource values, stream changes as they happen, and
record them for later replay. Connection settings come from a YAML or
JSON settings file named by --config or $HOMEWIRE_CONFIG.`,
		Subcommands: []*cli.Command{
			loginCommand(),
			getCommand(),
			setCommand(),
			watchCommand(),
			replayCommand(),
			configCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
					fmt.Printf("homewire %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Check the settings and credentials",
				Command:     "homewire login --config ~/.config/homewire.yaml",
			},
			{
				Description: "Read resource values",
				Command:     "homewire get 4 7",
			},
			{
				Description: "Stream changes until interrupted",
				Command:     "homewire watch 4 7 --record today.hwrec.zst",
			},
		},
	}
}
