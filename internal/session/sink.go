package session

import (
	"fmt"
	"io"

	"clipforge/internal/media"
)

// Sink receives user-facing session events. It is a pure event receiver:
// the session pushes into it and never reads back.
type Sink interface {
	Info(format string, args ...interface{})
	Success(format string, args ...interface{})
	Error(format string, args ...interface{})

	// Artifact announces a newly produced media artifact.
	Artifact(a media.Artifact)
}

// WriterSink formats events onto an io.Writer, one line per event.
type WriterSink struct {
	W io.Writer
}

func (s *WriterSink) Info(format string, args ...interface{}) {
	fmt.Fprintf(s.W, "  "+format+"\n", args...)
}

func (s *WriterSink) Success(format string, args ...interface{}) {
	fmt.Fprintf(s.W, "ok: "+format+"\n", args...)
}

func (s *WriterSink) Error(format string, args ...interface{}) {
	fmt.Fprintf(s.W, "error: "+format+"\n", args...)
}

func (s *WriterSink) Artifact(a media.Artifact) {
	fmt.Fprintf(s.W, "produced %s (%s): %s\n", a.Filename, a.Kind, a.Location)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Info(string, ...interface{})    {}
func (NopSink) Success(string, ...interface{}) {}
func (NopSink) Error(string, ...interface{})   {}
func (NopSink) Artifact(media.Artifact)        {}
