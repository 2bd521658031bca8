// Package sse implements the data-frame protocol used between the chat
// client and the backend relay: each frame is a single line of the form
//
//	data: {"content": "..."}\n\n
//
// or, for a terminal upstream failure,
//
//	data: {"error": "..."}\n\n
//
// The encoder and decoder are transport-agnostic so the framing can be
// tested independently of HTTP.
package sse

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const dataPrefix = "data: "

// Event is the payload of a single frame. Exactly one of Content or Error
// is meaningful; an error frame terminates the stream.
type Event struct {
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// IsError reports whether the event carries a terminal error.
func (e Event) IsError() bool { return e.Error != "" }

// Encoder writes frames to an underlying writer, flushing after each frame
// when the writer supports it.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns an Encoder over w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// WriteContent emits a content frame.
func (enc *Encoder) WriteContent(content string) error {
	return enc.write(Event{Content: content})
}

// WriteError emits a terminal error frame.
func (enc *Encoder) WriteError(message string) error {
	return enc.write(Event{Error: message})
}

func (enc *Encoder) write(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal sse event: %w", err)
	}
	if _, err := fmt.Fprintf(enc.w, "%s%s\n\n", dataPrefix, payload); err != nil {
		return err
	}
	if flusher, ok := enc.w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

// Decoder reads frames from a byte stream. Lines without the data prefix
// and frames with malformed JSON are skipped, matching the tolerance of
// the browser client this protocol was written for.
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder returns a Decoder over r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 16*1024), 1024*1024)
	return &Decoder{scanner: scanner}
}

// Next returns the next frame, or io.EOF when the stream is exhausted.
func (dec *Decoder) Next() (Event, error) {
	for dec.scanner.Scan() {
		line := strings.TrimRight(dec.scanner.Text(), "\r")
		data, found := strings.CutPrefix(line, dataPrefix)
		if !found {
			continue
		}

		var event Event
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			continue
		}
		return event, nil
	}

	if err := dec.scanner.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}
