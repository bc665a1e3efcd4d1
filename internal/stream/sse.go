// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

package stream

import (
	"bufio"
	"bytes"
	"io"
)

// Reader parses Server-Sent Events from a stream.
type Reader struct {
	reader *bufio.Reader
}

// NewReader creates an SSE reader from an io.Reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{reader: bufio.NewReader(r)}
}

// ReadEvent reads the next SSE event from the stream and returns the event
// type and joined data payload. The event type is empty for Agri-Bot frames,
// which only use data: fields. Returns io.EOF when the stream ends.
func (s *Reader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				// Flush a trailing event that was not blank-line terminated.
				if len(dataLines) > 0 {
					return eventType, bytes.Join(dataLines, []byte("\n")), nil
				}
				return "", nil, io.EOF
			}
			return "", nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line signals end of event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		switch {
		case bytes.HasPrefix(line, []byte("event:")):
			eventType = string(bytes.TrimSpace(line[6:]))
		case bytes.HasPrefix(line, []byte("data:")):
			dataLines = append(dataLines, bytes.TrimSpace(line[5:]))
		}
		// Other fields (id:, retry:, comments starting with :) are ignored.
	}
}
