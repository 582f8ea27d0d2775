// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/homewire/cmd/homewire/cli"
	"github.com/bureau-foundation/homewire/lib/config"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:    "config",
		Summary: "Inspect the settings file",
		Subcommands: []*cli.Command{
			configCheckCommand(),
			configShowCommand(),
		},
	}
}

type configParams struct {
	cli.ConnectConfig
	cli.JSONOutput
}

func configCheckCommand() *cli.Command {
	var params configParams

	return &cli.Command{
		Name:    "check",
		Summary: "Validate the settings without contacting the controller",
		Description: `Load the settings file and report every problem found in it. Exits 1
when the settings are invalid.`,
		Usage:  "homewire config check [flags]",
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			settings, err := params.Load()
			if err != nil {
				return err
			}
			return checkSettings(settings, os.Stdout)
		},
	}
}

// checkSettings prints one line per invalid field, or "ok".
func checkSettings(settings *config.Settings, output io.Writer) error {
	err := settings.Validate()
	if err == nil {
		fmt.Fprintln(output, "ok")
		return nil
	}

	problems := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok { //nolint:errorlint // Validate returns errors.Join directly
		problems = joined.Unwrap()
	}
	for _, problem := range problems {
		var fieldError *config.FieldError
		if errors.As(problem, &fieldError) {
			fmt.Fprintf(output, "%s\t%s\n", fieldError.Field, fieldError.Reason)
			continue
		}
		fmt.Fprintln(output, problem)
	}
	return &cli.ExitError{Code: 1}
}

func configShowCommand() *cli.Command {
	var params configParams

	return &cli.Command{
		Name:    "show",
		Summary: "Print the effective settings",
		Description: `Print the settings after defaults and flag overrides are applied, as
YAML (or JSON with --json). The password itself is never loaded.`,
		Usage:  "homewire config show [flags]",
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			settings, err := params.Load()
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(settings); done {
				return err
			}
			encoder := yaml.NewEncoder(os.Stdout)
			encoder.SetIndent(2)
			if err := encoder.Encode(settings); err != nil {
				return cli.Internal("encoding settings: %w", err)
			}
			return encoder.Close()
		},
	}
}
