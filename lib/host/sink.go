package host

import (
	"fmt"
	"io"
	"sync"
)

// IMessageSink delivers single lines of text to a recipient (a player, a console, a log).
type IMessageSink interface {
	SendLine(recipient, text string) error
}

// --------------------------------------------------------------------------
// Writer Sink
// --------------------------------------------------------------------------

type writerSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink returns a sink writing "<recipient> | <text>" lines to w.
// An empty recipient writes the bare text.
func NewWriterSink(w io.Writer) IMessageSink {
	return &writerSink{w: w}
}

func (s *writerSink) SendLine(recipient, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if recipient == "" {
		_, err = fmt.Fprintln(s.w, text)
	} else {
		_, err = fmt.Fprintf(s.w, "%s | %s\n", recipient, text)
	}
	return err
}

// --------------------------------------------------------------------------
// Recording Sink
// --------------------------------------------------------------------------

// Line is one message captured by a RecordingSink.
type Line struct {
	Recipient string
	Text      string
}

// RecordingSink keeps every line in memory. Used by tests and the RPC server,
// which sends the captured text back to the client.
type RecordingSink struct {
	mu    sync.Mutex
	lines []Line
	err   error
}

func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

func (s *RecordingSink) SendLine(recipient, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.lines = append(s.lines, Line{Recipient: recipient, Text: text})
	return nil
}

// FailWith makes every following SendLine return err (nil restores normal operation).
func (s *RecordingSink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Lines returns a copy of all captured lines.
func (s *RecordingSink) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Texts returns the text of all captured lines.
func (s *RecordingSink) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lines))
	for i, l := range s.lines {
		out[i] = l.Text
	}
	return out
}
