// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package logs

import (
	"regexp"
	"strings"
	"time"
)

// leadingTimestampPattern matches an ISO-style timestamp token at the
// start of a line: a date, optionally followed by a time with
// fractional seconds and a zone offset.
var leadingTimestampPattern = regexp.MustCompile(
	`^(\d{4}-\d{2}-\d{2}(?:[ T]\d{2}:\d{2}:\d{2}(?:[.,]\d+)?(?:Z|[+-]\d{2}:?\d{2})?)?)`,
)

// timestampLayouts are tried in order against the matched token.
// time.Parse accepts fractional seconds even when the layout omits
// them, so only the structural variants are listed.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ansiPattern matches ANSI SGR/cursor escape sequences.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

// criPrefixPattern matches container runtime log prefixes
// ("stdout F ", "stderr P ") that scrapers sometimes leave in the line.
var criPrefixPattern = regexp.MustCompile(`^(?:stdout|stderr) [FP] `)

// parseLeadingTimestamp extracts a timestamp token from the start of
// line. On success it returns the parsed time and the remainder of the
// line with the token and separating whitespace removed.
func parseLeadingTimestamp(line string) (time.Time, string, bool) {
	match := leadingTimestampPattern.FindString(line)
	if match == "" {
		return time.Time{}, line, false
	}

	token := strings.Replace(match, ",", ".", 1)
	for _, layout := range timestampLayouts {
		ts, err := time.Parse(layout, token)
		if err != nil {
			continue
		}
		rest := strings.TrimLeft(line[len(match):], " \t")
		return ts, rest, true
	}

	return time.Time{}, line, false
}

// stripNoise removes tokens that carry no log content: ANSI escape
// sequences anywhere in the line and container runtime stream prefixes
// at the start. Leading whitespace is preserved because it is the
// continuation-line signal.
func stripNoise(line string) string {
	line = ansiPattern.ReplaceAllString(line, "")
	return criPrefixPattern.ReplaceAllString(line, "")
}

// isContinuation reports whether a cleaned line continues the previous
// logical record rather than starting a new one: indented output,
// stack frames ("at ..."), and separator lines ("--- End of ... ---").
func isContinuation(line string) bool {
	return strings.HasPrefix(line, " ") ||
		strings.HasPrefix(line, "\t") ||
		strings.HasPrefix(line, "at ") ||
		strings.HasPrefix(line, "---")
}
