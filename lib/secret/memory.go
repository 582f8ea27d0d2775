// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// lockedPages maps size bytes of anonymous memory outside the Go heap,
// pins it in RAM, and keeps it out of core dumps.
func lockedPages(size int) ([]byte, error) {
	pages, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: mmap: %w", err)
	}
	if err := unix.Mlock(pages); err != nil {
		unix.Munmap(pages)
		return nil, fmt.Errorf("secret: mlock (check RLIMIT_MEMLOCK): %w", err)
	}
	if err := unix.Madvise(pages, unix.MADV_DONTDUMP); err != nil {
		unix.Munlock(pages)
		unix.Munmap(pages)
		return nil, fmt.Errorf("secret: madvise(MADV_DONTDUMP): %w", err)
	}
	return pages, nil
}

// releasePages zeroes pages and returns them to the kernel.
func releasePages(pages []byte) error {
	Zero(pages)
	var errs []error
	if err := unix.Munlock(pages); err != nil {
		errs = append(errs, fmt.Errorf("secret: munlock: %w", err))
	}
	if err := unix.Munmap(pages); err != nil {
		errs = append(errs, fmt.Errorf("secret: munmap: %w", err))
	}
	return errors.Join(errs...)
}

// Zero overwrites data with zeros.
func Zero(data []byte) {
	clear(data)
}
