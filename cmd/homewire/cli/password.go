// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/bureau-foundation/homewire/lib/secret"
)

// ReadPassword returns the controller password. A non-empty
// passwordFile is read with [secret.ReadFromPath] ("-" reads one line
// from stdin). Otherwise the password is prompted for on the terminal
// with echo disabled.
func ReadPassword(passwordFile string) (*secret.Buffer, error) {
	if passwordFile != "" {
		buffer, err := secret.ReadFromPath(passwordFile)
		if err != nil {
			return nil, Validation("reading password: %w", err)
		}
		return buffer, nil
	}

	stdinFileDescriptor := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinFileDescriptor) {
		return nil, Validation("no terminal available for interactive password prompt (set password_file or use --password-file)")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	passwordBytes, err := term.ReadPassword(stdinFileDescriptor)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, Internal("reading password: %w", err)
	}
	if len(passwordBytes) == 0 {
		return nil, Validation("empty password")
	}

	buffer, err := secret.NewFromBytes(passwordBytes)
	if err != nil {
		secret.Zero(passwordBytes)
		return nil, err
	}
	return buffer, nil
}
