// Package multipart splits a MIME multipart body into its constituent
// parts per RFC 2046 section 5.1, independent of how each part's own
// headers and nested body are subsequently parsed.
package multipart

import (
	"bytes"
	"errors"

	"github.com/mailit-dev/smtpsink/internal/cursor"
)

// ErrNoParts is returned when a multipart body contains no delimiter
// lines at all (only a preamble, or nothing).
var ErrNoParts = errors.New("multipart: no parts found")

// ErrUnterminated is returned when a multipart body's delimiter lines are
// present but the body never reaches a closing delimiter ("--boundary--")
// before running out of input.
var ErrUnterminated = errors.New("multipart: missing closing delimiter")

// ErrNoTerminator is returned when the body does not end in CRLF, so the
// final boundary line (if any) cannot be reliably recognised.
var ErrNoTerminator = errors.New("multipart: body does not end in CRLF")

// Part is one raw multipart segment: the bytes between two delimiter
// lines (not yet parsed as a header+body entity) and the location of its
// first byte within body, the enclosing entity's own (already offset-zero)
// coordinate space. Callers crossing into a nested buffer bias this
// location through their error accumulator's Nested scope.
type Part struct {
	Raw cursor.Located[[]byte]
}

// Split divides body into its parts using "--boundary" delimiter lines,
// discarding the preamble (everything before the first delimiter) and the
// epilogue (everything after the closing "--boundary--" delimiter). body
// must end in CRLF, matching RFC 2046's requirement that the final
// boundary is itself terminated by a line break; a body that doesn't is
// rejected rather than silently accepted with a truncated last part.
func Split(body []byte, boundary string) ([]Part, error) {
	if len(body) == 0 || !bytes.HasSuffix(body, []byte("\r\n")) {
		return nil, ErrNoTerminator
	}

	delim := []byte("--" + boundary)
	lines := splitLines(body)

	var parts []Part
	var currentStart int
	var currentEnd int
	inPart := false
	closed := false
	sawDelimiter := false
	offset := 0

	flush := func() {
		if inPart {
			parts = append(parts, Part{Raw: cursor.Located[[]byte]{
				At:   cursor.LocationAt(body, currentStart),
				Item: trimTrailingCRLF(body[currentStart:currentEnd]),
			}})
		}
	}

	for _, line := range lines {
		offset += len(line)
		content := bytes.TrimSuffix(bytes.TrimSuffix(line, []byte("\r\n")), []byte("\n"))
		if bytes.HasPrefix(content, delim) {
			rest := content[len(delim):]
			if bytes.Equal(rest, []byte("--")) {
				sawDelimiter = true
				flush()
				closed = true
				break
			}
			if len(rest) == 0 || isLWSP(rest) {
				sawDelimiter = true
				flush()
				currentStart = offset
				currentEnd = offset
				inPart = true
				continue
			}
		}
		if inPart {
			currentEnd = offset
		}
	}

	if !sawDelimiter {
		return nil, ErrNoParts
	}
	if !closed {
		return nil, ErrUnterminated
	}
	if len(parts) == 0 {
		return nil, ErrNoParts
	}
	return parts, nil
}

func isLWSP(b []byte) bool {
	for _, c := range b {
		if c != ' ' && c != '\t' {
			return false
		}
	}
	return true
}

// splitLines splits into lines keeping the CRLF (or bare LF) terminator
// attached to each line, which Split needs to reconstruct a part's raw
// bytes exactly.
func splitLines(body []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i := 0; i < len(body); i++ {
		if body[i] == '\n' {
			lines = append(lines, body[start:i+1])
			start = i + 1
		}
	}
	if start < len(body) {
		lines = append(lines, body[start:])
	}
	return lines
}

func trimTrailingCRLF(b []byte) []byte {
	return bytes.TrimSuffix(bytes.TrimSuffix(b, []byte("\r\n")), []byte("\n"))
}
