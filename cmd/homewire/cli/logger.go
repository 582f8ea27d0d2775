// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// logLevel is shared by every logger NewCommandLogger returns, so a
// --verbose flag parsed after the logger exists still takes effect.
var logLevel slog.LevelVar

// NewCommandLogger creates a structured logger for CLI command operations.
// When stderr is a terminal, uses slog.TextHandler for human-readable output.
// When stderr is piped or redirected (systemd, scripts, log shippers),
// uses slog.JSONHandler for machine-parseable output.
//
// Callers scope the logger with command-specific context via With():
//
//	logger := cli.NewCommandLogger().With(
//	    "command", "watch",
//	    "endpoint", settings.Endpoint,
//	)
func NewCommandLogger() *slog.Logger {
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: &logLevel}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

// Verbosity adds --verbose/-v, which lowers the command log level to
// debug. Call records, including redacted envelopes, are logged at
// debug level.
type Verbosity struct{}

// AddFlags registers --verbose on flagSet.
func (Verbosity) AddFlags(flagSet *pflag.FlagSet) {
	flag := flagSet.VarPF(verboseValue{}, "verbose", "v", "log controller calls and other debug detail")
	flag.NoOptDefVal = "true"
}

// verboseValue is a bool flag whose storage is logLevel.
type verboseValue struct{}

func (verboseValue) String() string {
	return strconv.FormatBool(logLevel.Level() <= slog.LevelDebug)
}

func (verboseValue) Set(value string) error {
	verbose, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	if verbose {
		logLevel.Set(slog.LevelDebug)
	} else {
		logLevel.Set(slog.LevelInfo)
	}
	return nil
}

func (verboseValue) Type() string { return "bool" }
