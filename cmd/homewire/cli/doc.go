// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the homewire CLI.
//
// The central type is [Command], which represents a named subcommand with
// optional nested [Command.Subcommands], a flag set built from a params
// struct (see [BindFlags]), and a Run function. Commands are assembled
// into a tree in cmd/homewire/commands and dispatched via
// [Command.ExecuteContext], which handles flag parsing, subcommand
// routing, and structured help output with examples.
//
// When a user types an unknown subcommand or flag, the framework computes
// Levenshtein edit distance against all known names and suggests the
// closest match (threshold: distance <= 3).
//
// Controller access goes through [ConnectConfig], which loads the
// settings file, applies --endpoint/--username/--password-file
// overrides, and validates the result; [Connect] then reads the
// password into a locked buffer and authenticates.
//
// Errors returned by commands are categorized with [ToolError] so that
// main can exit with a sysexits(3) code that tells a usage mistake from
// an unreachable controller.
package cli
