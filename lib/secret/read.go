// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// MaxFileSize bounds a password file. Anything larger is almost
// certainly the wrong file.
const MaxFileSize = 4096

// ReadFromPath reads a password from a file, or its first line from
// stdin when path is "-". Surrounding whitespace is dropped. The caller
// closes the returned Buffer.
func ReadFromPath(path string) (*Buffer, error) {
	if path == "-" {
		return readLine(os.Stdin)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return readAll(path, file)
}

func readAll(name string, source io.Reader) (*Buffer, error) {
	data, err := io.ReadAll(io.LimitReader(source, MaxFileSize+1))
	defer Zero(data)
	if err != nil {
		return nil, fmt.Errorf("secret: reading %s: %w", name, err)
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("secret: %s is larger than %d bytes", name, MaxFileSize)
	}
	return store(name, data)
}

func readLine(stdin io.Reader) (*Buffer, error) {
	reader := bufio.NewReaderSize(stdin, MaxFileSize)
	line, err := reader.ReadSlice('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		Zero(line)
		return nil, fmt.Errorf("secret: reading stdin: %w", err)
	}
	buffer, err := store("stdin", line)
	Zero(line)
	return buffer, err
}

// store keeps the trimmed secret. The trimmed bytes alias data, which
// the caller zeroes.
func store(name string, data []byte) (*Buffer, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("secret: %s holds an empty secret", name)
	}
	return NewFromBytes(trimmed)
}
