// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/homewire/cmd/homewire/cli"
	"github.com/bureau-foundation/homewire/lib/config"
	"github.com/bureau-foundation/homewire/lib/testutil"
)

func TestRootTree(t *testing.T) {
	var walk func(command *cli.Command, path string)
	walk = func(command *cli.Command, path string) {
		if path != "homewire" && command.Summary == "" {
			t.Errorf("%s has no summary", path)
		}
		if len(command.Subcommands) == 0 && command.Run == nil {
			t.Errorf("%s is a leaf without Run", path)
		}
		if command.Params != nil {
			// Panics on a malformed flag tag.
			flags := cli.FlagsFromParams(command.Name, command.Params())
			if flags.Lookup("help") != nil {
				t.Errorf("%s declares its own --help flag", path)
			}
		}
		command.PrintHelp(io.Discard)

		seen := make(map[string]bool)
		for _, subcommand := range command.Subcommands {
			if seen[subcommand.Name] {
				t.Errorf("%s has two subcommands named %q", path, subcommand.Name)
			}
			seen[subcommand.Name] = true
			walk(subcommand, path+" "+subcommand.Name)
		}
	}
	walk(Root(), "homewire")
}

// connectArgs points a command at house with flags alone.
func connectArgs(t *testing.T, house *fakeHouse) []string {
	t.Setenv(config.EnvironmentVariable, "")
	return []string{
		"--endpoint", house.server.URL,
		"--username", "admin",
		"--password-file", testutil.WriteFile(t, "password", "hunter2\n"),
	}
}

func TestGetAndSet(t *testing.T) {
	house := newFakeHouse(t)
	connect := connectArgs(t, house)
	ctx := context.Background()

	if err := Root().ExecuteContext(ctx, append([]string{"get", "4,7", "9"}, connect...)); err != nil {
		t.Fatalf("get: %v", err)
	}
	if house.count("GetValues") != 1 {
		t.Errorf("GetValues calls = %d, want 1", house.count("GetValues"))
	}

	if err := Root().ExecuteContext(ctx, append([]string{"set", "7", "bool", "true"}, connect...)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if house.value(7) != "true" {
		t.Errorf("resource 7 = %q after set, want true", house.value(7))
	}

	if house.count("Authenticate") != 2 || house.count("Logout") != 2 {
		t.Errorf("sessions opened %d, closed %d; want 2 each",
			house.count("Authenticate"), house.count("Logout"))
	}
}

func TestCommandValidation(t *testing.T) {
	house := newFakeHouse(t)
	connect := connectArgs(t, house)

	tests := []struct {
		name string
		args []string
	}{
		{"get without ids", []string{"get"}},
		{"set missing value", []string{"set", "7", "bool"}},
		{"set bad type", []string{"set", "7", "colour", "red"}},
		{"set bad bool", []string{"set", "7", "bool", "maybe"}},
		{"watch without ids", []string{"watch"}},
		{"unknown flag", []string{"get", "4", "--verbsoe"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := Root().ExecuteContext(context.Background(), append(test.args, connect...))
			var toolError *cli.ToolError
			if !errors.As(err, &toolError) || toolError.Category != cli.CategoryValidation {
				t.Errorf("error = %v, want a validation ToolError", err)
			}
		})
	}
	if house.count("Authenticate") != 0 {
		t.Errorf("invalid commands opened %d sessions", house.count("Authenticate"))
	}
}

func TestLoginWithConfigFile(t *testing.T) {
	house := newFakeHouse(t)
	t.Setenv(config.EnvironmentVariable, "")
	directory := t.TempDir()
	passwordPath := filepath.Join(directory, "password")
	if err := os.WriteFile(passwordPath, []byte("hunter2"), 0o600); err != nil {
		t.Fatal(err)
	}
	configPath := testutil.WriteFile(t, "homewire.yaml",
		"endpoint: "+house.server.URL+"\nusername: admin\npassword_file: "+passwordPath+"\n")

	if err := Root().ExecuteContext(context.Background(), []string{"login", "--config", configPath, "--json"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if house.count("GetServerInfo") != 1 || house.count("Logout") != 1 {
		t.Errorf("server info calls %d, logouts %d; want 1 each",
			house.count("GetServerInfo"), house.count("Logout"))
	}
}
