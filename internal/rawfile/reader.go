package rawfile

import (
	"bufio"
	"compress/gzip"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/richardpark-msft/rawdump/internal/utils"
)

// ErrConsumed is returned if a Reader's sequence is ranged over more than once.
var ErrConsumed = errors.New("capture has already been consumed")

// DecodeError is returned for a line that isn't valid base64.
type DecodeError struct {
	// Line is the 1-based line number within the capture.
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode capture line %d: %s", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type ReaderOptions struct {
	// ContinueOnError keeps the sequence going after a line fails to decode. The
	// *DecodeError is still yielded, so the caller decides whether to skip it or stop.
	// By default the sequence ends after the first decode error.
	ContinueOnError bool
}

// Reader decodes a raw capture: plain text, one base64 encoded payload per line.
// A Reader can only be ranged over once.
type Reader struct {
	src     io.Reader
	closer  io.Closer
	options ReaderOptions

	// open, if set, acquires src when the sequence is first pulled. The handle belongs
	// to that pass, not to the Reader.
	open func() (io.Reader, io.Closer, error)

	ranged    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewReader creates a Reader over r. The caller still owns r, closing the Reader
// does not close it.
func NewReader(r io.Reader, options *ReaderOptions) *Reader {
	return newReader(r, nil, options)
}

// Open opens the capture at path. Files ending in .gz are decompressed as they're read.
// Any failure to open the file is returned here, before any payload is read.
// The Reader owns the file: it's closed when the sequence ends, or by Close.
func Open(path string, options *ReaderOptions) (*Reader, error) {
	src, closer, err := openCapture(path)

	if err != nil {
		return nil, err
	}

	return newReader(src, closer, options), nil
}

// OpenLazy checks that the capture at path can be opened, so failures are still returned
// here, but holds no file until the sequence is first pulled. A sequence that's never
// ranged over has nothing to close.
func OpenLazy(path string, options *ReaderOptions) (*Reader, error) {
	_, closer, err := openCapture(path)

	if err != nil {
		return nil, err
	}

	if err := closer.Close(); err != nil {
		return nil, err
	}

	reader := newReader(nil, nil, options)
	reader.open = func() (io.Reader, io.Closer, error) {
		return openCapture(path)
	}

	return reader, nil
}

func openCapture(path string) (io.Reader, io.Closer, error) {
	file, err := os.Open(path)

	if err != nil {
		return nil, nil, err
	}

	if !strings.HasSuffix(path, ".gz") {
		return file, file, nil
	}

	gzReader, err := gzip.NewReader(file)

	if err != nil {
		utils.CloseWithLogging(path, file)
		return nil, nil, fmt.Errorf("failed to open compressed capture %s: %w", path, err)
	}

	return gzReader, multiCloser{gzReader, file}, nil
}

// DecodeFile returns the payloads of the capture at path, in file order. Failing to open
// the file is reported here. The file itself is opened on the first pull and closed when
// the sequence is exhausted, when the caller breaks out of the loop or after a line fails
// to decode.
func DecodeFile(path string) (iter.Seq2[[]byte, error], error) {
	reader, err := OpenLazy(path, nil)

	if err != nil {
		return nil, err
	}

	return reader.All(), nil
}

func newReader(src io.Reader, closer io.Closer, options *ReaderOptions) *Reader {
	if options == nil {
		options = &ReaderOptions{}
	}

	return &Reader{
		src:     src,
		closer:  closer,
		options: *options,
	}
}

// All returns the decoded payload of each line. Lines are read one at a time, as the
// sequence is pulled.
func (r *Reader) All() iter.Seq2[[]byte, error] {
	return decodeAll(r, decodeLine)
}

// Close releases the underlying file, if the Reader owns one. It's only needed if a Reader
// from Open is never ranged over.
func (r *Reader) Close() error {
	r.closeOnce.Do(func() {
		if r.closer != nil {
			r.closeErr = r.closer.Close()
		}
	})

	return r.closeErr
}

func decodeAll[T any](r *Reader, decode func(line []byte) (T, error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T

		if !r.ranged.CompareAndSwap(false, true) {
			yield(zero, ErrConsumed)
			return
		}

		defer utils.CloseWithLogging("capture", r)

		src := r.src

		if r.open != nil {
			opened, closer, err := r.open()

			if err != nil {
				yield(zero, err)
				return
			}

			defer utils.CloseWithLogging("capture", closer)
			src = opened
		}

		lineNum := 0

		for line, err := range readLines(src) {
			if err != nil {
				yield(zero, err)
				return
			}

			lineNum++

			v, err := decode(line)

			if err != nil {
				if !yield(zero, &DecodeError{Line: lineNum, Err: err}) || !r.options.ContinueOnError {
					return
				}

				continue
			}

			if !yield(v, nil) {
				return
			}
		}
	}
}

// readLines yields each line in src, including the trailing newline. The last line
// is yielded even if it isn't newline terminated.
func readLines(src io.Reader) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		bufReader := bufio.NewReader(src)

		for {
			line, err := bufReader.ReadBytes('\n')

			switch {
			case errors.Is(err, io.EOF):
				if len(line) > 0 {
					yield(line, nil)
				}
				return
			case err != nil:
				yield(nil, err)
				return
			}

			if !yield(line, nil) {
				return
			}
		}
	}
}

// decodeLine decodes a single line. StdEncoding skips '\r' and '\n', so the line
// terminator doesn't need to be trimmed first. Any other whitespace is an error.
func decodeLine(line []byte) ([]byte, error) {
	payload := make([]byte, base64.StdEncoding.DecodedLen(len(line)))
	n, err := base64.StdEncoding.Decode(payload, line)

	if err != nil {
		return nil, err
	}

	return payload[:n], nil
}

type multiCloser []io.Closer

func (mc multiCloser) Close() error {
	var errs []error

	for _, c := range mc {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
