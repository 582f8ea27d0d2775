// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bureau-foundation/homewire/cmd/homewire/cli"
)

type loginParams struct {
	cli.ConnectConfig
	cli.Verbosity
	cli.JSONOutput
}

// serverSummary is the login command's JSON result.
type serverSummary struct {
	Endpoint     string    `json:"endpoint"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	SerialNumber string    `json:"serial_number,omitempty"`
	Time         time.Time `json:"time,omitzero"`
}

func loginCommand() *cli.Command {
	var params loginParams

	return &cli.Command{
		Name:    "login",
		Summary: "Check credentials and show controller information",
		Description: `Authenticate against the controller, print what it reports about
itself, and log out again.

Use this to verify a settings file before running watch. The password
comes from password_file in the settings file, --password-file, or an
interactive prompt.`,
		Usage: "homewire login [flags]",
		Examples: []cli.Example{
			{
				Description: "Verify the configured controller",
				Command:     "homewire login --config ~/.config/homewire.yaml",
			},
			{
				Description: "Read the password from stdin",
				Command:     "pass show house/controller | homewire login --password-file -",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			settings, err := params.Settings()
			if err != nil {
				return err
			}

			session, err := cli.Connect(ctx, settings, logger)
			if err != nil {
				return err
			}
			defer cli.Release(ctx, session)

			info, err := session.GetServerInfo(ctx)
			if err != nil {
				return cli.Classify(err)
			}

			summary := serverSummary{
				Endpoint:     settings.Endpoint,
				Username:     settings.Username,
				Name:         info.Name,
				Version:      info.Version,
				SerialNumber: info.SerialNumber,
				Time:         info.Time,
			}
			if done, err := params.EmitJSON(summary); done {
				return err
			}

			fmt.Fprintf(os.Stdout, "Logged in to %s as %s\n", settings.Endpoint, settings.Username)
			fmt.Fprintf(os.Stdout, "Controller: %s %s\n", info.Name, info.Version)
			if info.SerialNumber != "" {
				fmt.Fprintf(os.Stdout, "Serial:     %s\n", info.SerialNumber)
			}
			if !info.Time.IsZero() {
				fmt.Fprintf(os.Stdout, "Clock:      %s\n", info.Time.Format(time.RFC3339))
			}
			return nil
		},
	}
}
