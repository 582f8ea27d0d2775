// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"errors"
	"fmt"
)

// DecodeError reports wire text that could not be mapped onto the
// expected payload shape. Field is the dotted element path of the value
// that failed (empty when the failure is structural, such as malformed
// XML or a missing Body). Raw holds the complete wire text for
// diagnostics.
type DecodeError struct {
	Field string
	Raw   string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("envelope: decode failed: %v", e.Err)
	}
	return fmt.Sprintf("envelope: decode failed at %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Fault is a SOAP fault returned in place of the expected response
// payload. Both SOAP 1.1 (faultcode/faultstring) and SOAP 1.2
// (Code/Reason) layouts are recognized.
type Fault struct {
	Code    string
	Message string
	Detail  string
}

func (f *Fault) Error() string {
	if f.Detail != "" {
		return fmt.Sprintf("envelope: soap fault %s: %s (%s)", f.Code, f.Message, f.Detail)
	}
	return fmt.Sprintf("envelope: soap fault %s: %s", f.Code, f.Message)
}

// IsFault reports whether err is or wraps a *Fault.
func IsFault(err error) bool {
	var fault *Fault
	return errors.As(err, &fault)
}

var (
	errMissingElement = errors.New("required element is missing")
	errNilElement     = errors.New("required element is xsi:nil")
)
