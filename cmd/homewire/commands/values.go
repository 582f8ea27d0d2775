// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/bureau-foundation/homewire/cmd/homewire/cli"
	"github.com/bureau-foundation/homewire/controller"
)

type getParams struct {
	cli.ConnectConfig
	cli.Verbosity
	cli.JSONOutput
}

func getCommand() *cli.Command {
	var params getParams

	return &cli.Command{
		Name:    "get",
		Summary: "Read the current value of resources",
		Description: `Read the current value of one or more resources.

Resource ids may be given as separate arguments or comma-separated.
Values are printed in the controller's text form with their type.`,
		Usage: "homewire get <id>... [flags]",
		Examples: []cli.Example{
			{
				Description: "Read two resources",
				Command:     "homewire get 4 7",
			},
			{
				Description: "Read as JSON",
				Command:     "homewire get 4,7,12 --json",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				return cli.Validation("at least one resource id is required\n\nUsage: homewire get <id>... [flags]")
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

			events, err := session.GetValues(ctx, ids)
			if err != nil {
				return cli.Classify(err)
			}
			if done, err := params.EmitJSON(events); done {
				return err
			}

			writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(writer, "RESOURCE\tTYPE\tVALUE")
			for _, event := range events {
				fmt.Fprintf(writer, "%d\t%s\t%s\n", event.ResourceID, event.Type, event.Value)
			}
			return writer.Flush()
		},
	}
}

type setParams struct {
	cli.ConnectConfig
	cli.Verbosity
}

func setCommand() *cli.Command {
	var params setParams

	return &cli.Command{
		Name:    "set",
		Summary: "Write a resource value",
		Description: `Write a value to one resource.

The type is one of bool, int, float, timestamp, or enum. Values use the
controller's text forms: true/false, decimal integers, decimal floats,
RFC 3339 timestamps, and enum member names.`,
		Usage: "homewire set <id> <type> <value> [flags]",
		Examples: []cli.Example{
			{
				Description: "Switch a relay on",
				Command:     "homewire set 4 bool true",
			},
			{
				Description: "Select a heating mode",
				Command:     "homewire set 12 enum comfort",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 3 {
				return cli.Validation("expected <id> <type> <value>, got %d argument(s)\n\nUsage: homewire set <id> <type> <value> [flags]", len(args))
			}
			id, err := strconv.Atoi(args[0])
			if err != nil || id < 0 {
				return cli.Validation("invalid resource id %q", args[0])
			}
			valueType, err := controller.ParseValueType(args[1])
			if err != nil {
				return cli.Validation("%w", err)
			}
			value, err := controller.ParseValue(valueType, args[2])
			if err != nil {
				return cli.Validation("%w", err)
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

			if err := session.SetValue(ctx, id, value); err != nil {
				return cli.Classify(err)
			}
			logger.Info("resource value set", "resource", id, "type", valueType.String(), "value", value.String())
			return nil
		},
	}
}
