package sink

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/richardpark-msft/rawdump/internal/format"
	"github.com/richardpark-msft/rawdump/internal/logging"
	"github.com/richardpark-msft/rawdump/internal/rawfile"
	"github.com/richardpark-msft/rawdump/internal/utils"
)

type PumpOptions struct {
	// SkipInvalid counts and logs lines that fail to decode, instead of stopping.
	// The capture has to be read with [rawfile.ReaderOptions.ContinueOnError] for
	// anything after the first bad line to be seen.
	SkipInvalid bool

	// Limit stops the pump after this many records have been sent. 0 means no limit.
	Limit int

	// Interval is the delay between records.
	Interval time.Duration
}

type Stats struct {
	Records int   `json:"records"`
	Bytes   int64 `json:"bytes"`
	Invalid int   `json:"invalid"`
}

// Records numbers each payload, starting at 1. Lines that fail to decode still get
// a number, so Index is the line number of the payload within the capture.
func Records(payloads iter.Seq2[[]byte, error], label string) iter.Seq2[format.Record, error] {
	return func(yield func(format.Record, error) bool) {
		index := 0

		for payload, err := range payloads {
			index++

			if !yield(format.Record{Index: index, Label: label, Payload: payload}, err) {
				return
			}
		}
	}
}

// LabeledRecords is [Records], for labeled captures.
func LabeledRecords(lines iter.Seq2[rawfile.BinLine, error]) iter.Seq2[format.Record, error] {
	return func(yield func(format.Record, error) bool) {
		index := 0

		for line, err := range lines {
			index++

			if !yield(format.Record{Index: index, Label: line.Label, Payload: line.Packet}, err) {
				return
			}
		}
	}
}

// Pump sends records to s until the sequence ends, the limit is reached, ctx is
// cancelled or an error occurs. It does not close s.
func Pump(ctx context.Context, records iter.Seq2[format.Record, error], s Sink, options *PumpOptions) (Stats, error) {
	if options == nil {
		options = &PumpOptions{}
	}

	slogger := logging.SloggerFromContext(ctx)

	var stats Stats

	for rec, err := range records {
		if err != nil {
			var decodeErr *rawfile.DecodeError

			if options.SkipInvalid && errors.As(err, &decodeErr) {
				stats.Invalid++
				slogger.Warn("Skipping invalid capture line", "line", decodeErr.Line, "error", decodeErr.Err)
				continue
			}

			return stats, err
		}

		if stats.Records > 0 {
			if err := utils.Sleep(ctx, options.Interval); err != nil {
				return stats, err
			}
		} else if err := ctx.Err(); err != nil {
			return stats, err
		}

		if err := s.Send(ctx, rec); err != nil {
			return stats, fmt.Errorf("failed to send record %d: %w", rec.Index, err)
		}

		stats.Records++
		stats.Bytes += int64(len(rec.Payload))

		if options.Limit > 0 && stats.Records >= options.Limit {
			slogger.Debug("Record limit reached", "limit", options.Limit)
			break
		}
	}

	return stats, nil
}

// OpenRecords opens the capture at path, as a plain or labeled capture, and numbers its records.
// Like [rawfile.OpenLazy], failing to open the file is reported here rather than by the sequence,
// and nothing is held open until the sequence is ranged over.
func OpenRecords(path string, labeled bool, options *rawfile.ReaderOptions) (iter.Seq2[format.Record, error], error) {
	reader, err := rawfile.OpenLazy(path, options)

	if err != nil {
		return nil, err
	}

	if labeled {
		return LabeledRecords(reader.Labeled()), nil
	}

	return Records(reader.All(), ""), nil
}
