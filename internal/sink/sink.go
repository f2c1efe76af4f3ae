package sink

import (
	"bufio"
	"context"
	"io"

	"github.com/richardpark-msft/rawdump/internal/format"
)

//go:generate mockgen -destination ../mocks/mock_sink.go -package mocks github.com/richardpark-msft/rawdump/internal/sink Sink

// Sink is the destination for decoded capture records.
type Sink interface {
	Send(ctx context.Context, rec format.Record) error
	Close() error
}

// WriterSink renders each record, using a [format.Formatter], onto an io.Writer.
type WriterSink struct {
	bw        *bufio.Writer
	formatter format.Formatter
}

// NewWriterSink creates a WriterSink. Output is buffered, call Flush or Close to
// make sure everything has been written to w. Closing the sink does not close w.
func NewWriterSink(w io.Writer, formatter format.Formatter) *WriterSink {
	return &WriterSink{
		bw:        bufio.NewWriter(w),
		formatter: formatter,
	}
}

func (s *WriterSink) Send(ctx context.Context, rec format.Record) error {
	return s.formatter.Format(s.bw, rec)
}

func (s *WriterSink) Flush() error {
	return s.bw.Flush()
}

func (s *WriterSink) Close() error {
	return s.bw.Flush()
}

// Discard is a Sink that drops every record. Pumping into it is how captures are counted.
var Discard Sink = discardSink{}

type discardSink struct{}

func (discardSink) Send(ctx context.Context, rec format.Record) error { return nil }

func (discardSink) Close() error { return nil }
