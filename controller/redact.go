// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"fmt"
	"regexp"
	"strings"
)

// leafElement matches an element holding only text, capturing the
// qualified name, the local name, and the text. The attribute group
// may not end in "/", so a self-closing element never matches.
var leafElement = regexp.MustCompile(`<((?:[\w.-]+:)?([\w.-]+))(\s(?:[^>]*[^>/])?)?>([^<]*)</`)

// alwaysRedacted names elements whose text never reaches a log.
var alwaysRedacted = regexp.MustCompile(`(?i)(password|passwd|passphrase|pwd)`)

// sensitiveElements names elements whose text is logged only when
// sensitive logging is enabled.
var sensitiveElements = regexp.MustCompile(`(?i)(token|cookie|secret|sessionid|credential)`)

// redactBody prepares an envelope body for a call record: the text of
// password-bearing elements is replaced unconditionally, other
// sensitive elements unless logSensitive is set, and control characters
// are escaped so one record stays on one line.
func redactBody(body string, logSensitive bool) string {
	redacted := leafElement.ReplaceAllStringFunc(body, func(match string) string {
		parts := leafElement.FindStringSubmatch(match)
		local, text := parts[2], parts[4]
		if text == "" {
			return match
		}
		if alwaysRedacted.MatchString(local) || (!logSensitive && sensitiveElements.MatchString(local)) {
			return "<" + parts[1] + parts[3] + ">" + redactedPlaceholder + "</"
		}
		return match
	})
	return escapeControl(redacted)
}

// escapeControl rewrites control characters as Go-style escapes.
func escapeControl(text string) string {
	if !strings.ContainsFunc(text, isControl) {
		return text
	}
	var builder strings.Builder
	builder.Grow(len(text) + 16)
	for _, character := range text {
		switch character {
		case '\n':
			builder.WriteString(`\n`)
		case '\r':
			builder.WriteString(`\r`)
		case '\t':
			builder.WriteString(`\t`)
		default:
			if isControl(character) {
				fmt.Fprintf(&builder, `\x%02x`, character)
			} else {
				builder.WriteRune(character)
			}
		}
	}
	return builder.String()
}

func isControl(character rune) bool {
	return character < 0x20 || character == 0x7f
}
