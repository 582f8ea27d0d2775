// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/bureau-foundation/homewire/cmd/homewire/cli"
	"github.com/bureau-foundation/homewire/controller"
	"github.com/bureau-foundation/homewire/lib/codec"
	"github.com/bureau-foundation/homewire/lib/recording"
)

type replayParams struct {
	cli.JSONOutput
	Diagnose  bool  `json:"-" flag:"diagnose" desc:"print each frame's CBOR diagnostic notation instead of decoding it"`
	Resources []int `json:"-" flag:"resource,r" desc:"only show changes of these resource ids"`
}

// replayFrame is one line of replay --json output.
type replayFrame struct {
	Sequence uint64                 `json:"sequence"`
	Time     time.Time              `json:"time"`
	Event    controller.ChangeEvent `json:"event"`
}

func replayCommand() *cli.Command {
	var params replayParams

	return &cli.Command{
		Name:    "replay",
		Summary: "Print the changes stored in a recording",
		Description: `Read a recording written by "homewire watch --record" and print its
changes in order, with the time each was received.

The recording's integrity digest is verified after the last frame; a
truncated or modified file is reported as an error after the frames
read so far have been printed.`,
		Usage: "homewire replay <file> [flags]",
		Examples: []cli.Example{
			{
				Description: "Print a recording",
				Command:     "homewire replay house.hwrec.zst",
			},
			{
				Description: "Only one resource, as JSON lines",
				Command:     "homewire replay house.hwrec.zst -r 12 --json",
			},
		},
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("expected exactly one recording file\n\nUsage: homewire replay <file> [flags]")
			}
			return runReplay(args[0], params, os.Stdout, logger)
		},
	}
}

func runReplay(path string, params replayParams, output io.Writer, logger *slog.Logger) error {
	file, err := os.Open(path)
	if err != nil {
		return cli.Validation("opening recording: %w", err)
	}
	defer file.Close()

	reader, err := recording.NewReader(file)
	if err != nil {
		return cli.Validation("%w", err)
	}
	defer reader.Close()

	encoder := json.NewEncoder(output)
	var read, shown int
	for frame, err := range reader.Frames() {
		if err != nil {
			return cli.Internal("%s after %d frames: %w", path, read, err)
		}
		read++

		if params.Diagnose {
			notation, err := codec.Diagnose(frame.Event)
			if err != nil {
				return cli.Internal("frame %d: %w", frame.Sequence, err)
			}
			fmt.Fprintf(output, "%d\t%s\t%s\n", frame.Sequence, frame.Time.Format(time.RFC3339Nano), notation)
			shown++
			continue
		}

		var event controller.ChangeEvent
		if err := frame.Decode(&event); err != nil {
			return cli.Internal("frame %d: %w", frame.Sequence, err)
		}
		if len(params.Resources) > 0 && !slices.Contains(params.Resources, event.ResourceID) {
			continue
		}
		shown++
		if params.OutputJSON {
			if err := encoder.Encode(replayFrame{Sequence: frame.Sequence, Time: frame.Time, Event: event}); err != nil {
				return cli.Internal("writing output: %w", err)
			}
			continue
		}
		writeEvent(output, frame.Time, event)
	}

	logger.Info("recording verified",
		"path", path,
		"frames", read,
		"shown", shown,
		"compression", reader.Compression.String(),
	)
	return nil
}
