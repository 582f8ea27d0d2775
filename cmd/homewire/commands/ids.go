// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bureau-foundation/homewire/cmd/homewire/cli"
	"github.com/bureau-foundation/homewire/controller"
)

// parseIDs parses resource ids given as separate arguments, each of
// which may itself be a comma-separated list.
func parseIDs(args []string) ([]int, error) {
	var ids []int
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil || id < 0 {
				return nil, cli.Validation("invalid resource id %q", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// writeEvent prints one change event as a tab-separated line. A zero
// at is omitted.
func writeEvent(w io.Writer, at time.Time, event controller.ChangeEvent) {
	var prefix string
	if !at.IsZero() {
		prefix = at.Format(time.RFC3339Nano) + "\t"
	}
	suffix := ""
	if event.Configuration {
		suffix = "\tconfiguration"
	}
	fmt.Fprintf(w, "%s%d\t%s\t%s%s\n", prefix, event.ResourceID, event.Type, event.Value, suffix)
}
