// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package teereader

import (
	"bytes"
	"io"
	"unicode/utf8"
)

// maxPartial bounds the unterminated tail that is kept between reads.
const maxPartial = 4096

// LastLineReader wraps an io.Reader and reports the newest non-blank line read
// through it. Data is passed through unchanged.
type LastLineReader struct {
	reader  io.Reader
	onLine  func(string)
	partial []byte // unterminated tail of the previous read
}

var _ io.Reader = (*LastLineReader)(nil)

// New wraps r. onLine is called with the newest complete line after every read
// that finished at least one non-blank line. It runs on the reading goroutine,
// and a LastLineReader must only be read from one goroutine at a time.
func New(r io.Reader, onLine func(string)) *LastLineReader {
	if onLine == nil {
		onLine = func(string) {}
	}

	return &LastLineReader{
		reader: r,
		onLine: onLine,
	}
}

// Read implements io.Reader.
func (l *LastLineReader) Read(p []byte) (int, error) {
	n, err := l.reader.Read(p)
	if n > 0 {
		if line, ok := l.consume(p[:n]); ok {
			l.onLine(line)
		}
	}

	return n, err //nolint:wrapcheck
}

// consume keeps the unterminated tail of data and returns the newest complete
// non-blank line in it.
func (l *LastLineReader) consume(data []byte) (string, bool) {
	buf := append(l.partial, data...)

	end := bytes.LastIndexByte(buf, '\n')
	if end < 0 {
		l.partial = tail(buf)
		return "", false
	}

	l.partial = tail(bytes.Clone(buf[end+1:]))

	lines := bytes.Split(buf[:end], []byte{'\n'})
	for i := len(lines) - 1; i >= 0; i-- {
		line := bytes.TrimSpace(lines[i])
		if len(line) == 0 {
			continue
		}

		return string(line), true
	}

	return "", false
}

// Truncate cuts s to at most maxLength runes, replacing the end with "...".
// A maxLength of zero or less leaves s alone.
func Truncate(s string, maxLength int) string {
	const ellipsis = "..."

	if maxLength <= 0 || utf8.RuneCountInString(s) <= maxLength {
		return s
	}

	if maxLength <= len(ellipsis) {
		return string([]rune(s)[:maxLength])
	}

	return string([]rune(s)[:maxLength-len(ellipsis)]) + ellipsis
}

func tail(b []byte) []byte {
	if len(b) <= maxPartial {
		return b
	}

	return bytes.Clone(b[len(b)-maxPartial:])
}
