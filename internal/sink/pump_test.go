package sink_test

import (
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/richardpark-msft/rawdump/internal/format"
	"github.com/richardpark-msft/rawdump/internal/mocks"
	"github.com/richardpark-msft/rawdump/internal/rawfile"
	"github.com/richardpark-msft/rawdump/internal/sink"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const helloWorldCapture = "aGVsbG8=\nd29ybGQ=\n"

func TestPump(t *testing.T) {
	s := mocks.NewMockSink(gomock.NewController(t))

	gomock.InOrder(
		s.EXPECT().Send(gomock.Any(), format.Record{Index: 1, Label: "out", Payload: []byte("hello")}).Return(nil),
		s.EXPECT().Send(gomock.Any(), format.Record{Index: 2, Label: "out", Payload: []byte("world")}).Return(nil),
	)

	records := sink.Records(rawfile.NewReader(strings.NewReader(helloWorldCapture), nil).All(), "out")

	stats, err := sink.Pump(context.Background(), records, s, nil)
	require.NoError(t, err)
	require.Equal(t, sink.Stats{Records: 2, Bytes: 10}, stats)
}

func TestPump_InvalidLines(t *testing.T) {
	const capture = "aGVsbG8=\nabc\nd29ybGQ=\n"

	t.Run("Stops", func(t *testing.T) {
		s := mocks.NewMockSink(gomock.NewController(t))
		s.EXPECT().Send(gomock.Any(), format.Record{Index: 1, Payload: []byte("hello")}).Return(nil)

		stats, err := sink.Pump(context.Background(), newRecords(capture, true), s, nil)

		var decodeErr *rawfile.DecodeError
		require.ErrorAs(t, err, &decodeErr)
		require.Equal(t, 2, decodeErr.Line)
		require.Equal(t, sink.Stats{Records: 1, Bytes: 5}, stats)
	})

	t.Run("Skipped", func(t *testing.T) {
		s := mocks.NewMockSink(gomock.NewController(t))

		gomock.InOrder(
			s.EXPECT().Send(gomock.Any(), format.Record{Index: 1, Payload: []byte("hello")}).Return(nil),
			s.EXPECT().Send(gomock.Any(), format.Record{Index: 3, Payload: []byte("world")}).Return(nil),
		)

		stats, err := sink.Pump(context.Background(), newRecords(capture, true), s, &sink.PumpOptions{SkipInvalid: true})
		require.NoError(t, err)
		require.Equal(t, sink.Stats{Records: 2, Bytes: 10, Invalid: 1}, stats)
	})

	t.Run("IOErrorsAreNeverSkipped", func(t *testing.T) {
		s := mocks.NewMockSink(gomock.NewController(t))
		readErr := errors.New("read failed")

		records := func(yield func(format.Record, error) bool) {
			yield(format.Record{}, readErr)
		}

		stats, err := sink.Pump(context.Background(), records, s, &sink.PumpOptions{SkipInvalid: true})
		require.ErrorIs(t, err, readErr)
		require.Zero(t, stats)
	})
}

func TestPump_SendFails(t *testing.T) {
	s := mocks.NewMockSink(gomock.NewController(t))
	sendErr := errors.New("connection reset")

	gomock.InOrder(
		s.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil),
		s.EXPECT().Send(gomock.Any(), gomock.Any()).Return(sendErr),
	)

	stats, err := sink.Pump(context.Background(), newRecords(helloWorldCapture, false), s, nil)
	require.ErrorIs(t, err, sendErr)
	require.EqualError(t, err, "failed to send record 2: connection reset")
	require.Equal(t, 1, stats.Records)
}

func TestPump_Limit(t *testing.T) {
	s := mocks.NewMockSink(gomock.NewController(t))
	s.EXPECT().Send(gomock.Any(), format.Record{Index: 1, Payload: []byte("hello")}).Return(nil)

	pulled := 0

	records := func(yield func(format.Record, error) bool) {
		for rec, err := range newRecords(helloWorldCapture, false) {
			pulled++

			if !yield(rec, err) {
				return
			}
		}
	}

	stats, err := sink.Pump(context.Background(), records, s, &sink.PumpOptions{Limit: 1})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Records)
	require.Equal(t, 1, pulled, "nothing past the limit is decoded")
}

func TestPump_Cancellation(t *testing.T) {
	t.Run("DuringInterval", func(t *testing.T) {
		s := mocks.NewMockSink(gomock.NewController(t))

		ctx, cancel := context.WithCancel(context.Background())

		s.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, rec format.Record) error {
			cancel()
			return nil
		})

		stats, err := sink.Pump(ctx, newRecords(helloWorldCapture, false), s, &sink.PumpOptions{Interval: time.Hour})
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, 1, stats.Records)
	})

	t.Run("BeforeStart", func(t *testing.T) {
		s := mocks.NewMockSink(gomock.NewController(t))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		stats, err := sink.Pump(ctx, newRecords(helloWorldCapture, false), s, nil)
		require.ErrorIs(t, err, context.Canceled)
		require.Zero(t, stats)
	})
}

func TestLabeledRecords(t *testing.T) {
	lines := rawfile.NewReader(strings.NewReader("out:aGVsbG8=\nin:d29ybGQ=\n"), nil).Labeled()

	var actual []format.Record

	for rec, err := range sink.LabeledRecords(lines) {
		require.NoError(t, err)
		actual = append(actual, rec)
	}

	require.Equal(t, []format.Record{
		{Index: 1, Label: "out", Payload: []byte("hello")},
		{Index: 2, Label: "in", Payload: []byte("world")},
	}, actual)
}

func newRecords(contents string, continueOnError bool) iter.Seq2[format.Record, error] {
	reader := rawfile.NewReader(strings.NewReader(contents), &rawfile.ReaderOptions{ContinueOnError: continueOnError})
	return sink.Records(reader.All(), "")
}

func TestOpenRecords(t *testing.T) {
	dir := t.TempDir()

	plainFile := filepath.Join(dir, "capture.txt")
	require.NoError(t, os.WriteFile(plainFile, []byte(helloWorldCapture), 0600))

	labeledFile := filepath.Join(dir, "bin.txt")
	require.NoError(t, os.WriteFile(labeledFile, []byte("in:aGVsbG8=\n"), 0600))

	records, err := sink.OpenRecords(plainFile, false, nil)
	require.NoError(t, err)

	stats, err := sink.Pump(context.Background(), records, sink.Discard, nil)
	require.NoError(t, err)
	require.Equal(t, sink.Stats{Records: 2, Bytes: 10}, stats)

	records, err = sink.OpenRecords(labeledFile, true, nil)
	require.NoError(t, err)

	for rec, err := range records {
		require.NoError(t, err)
		require.Equal(t, format.Record{Index: 1, Label: "in", Payload: []byte("hello")}, rec)
	}

	_, err = sink.OpenRecords(filepath.Join(dir, "missing.txt"), false, nil)
	require.ErrorIs(t, err, os.ErrNotExist)
}
