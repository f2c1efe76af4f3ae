package rawfile

import (
	"bufio"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Writer writes captures that can be read back with a [Reader]. It's safe to use
// from multiple goroutines.
type Writer struct {
	mu     sync.Mutex
	bw     *bufio.Writer
	closer io.Closer
	count  int
}

// NewWriter creates a Writer on top of w. Close flushes, but does not close w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

// Create creates (or truncates) the capture at path. Paths ending in .gz are compressed.
func Create(path string) (*Writer, error) {
	file, err := os.Create(path)

	if err != nil {
		return nil, err
	}

	if !strings.HasSuffix(path, ".gz") {
		return &Writer{bw: bufio.NewWriter(file), closer: file}, nil
	}

	gzWriter := gzip.NewWriter(file)

	return &Writer{
		bw:     bufio.NewWriter(gzWriter),
		closer: multiCloser{gzWriter, file},
	}, nil
}

// WriteRecord writes payload as a single base64 encoded line.
func (w *Writer) WriteRecord(payload []byte) error {
	return w.writeLine("", payload)
}

// WriteLabeled writes a "label:base64" line. Labels can't be empty, or contain ':' or newlines.
func (w *Writer) WriteLabeled(label string, payload []byte) error {
	if label == "" || strings.ContainsAny(label, ":\r\n") {
		return fmt.Errorf("invalid capture label %q", label)
	}

	return w.writeLine(label, payload)
}

func (w *Writer) writeLine(label string, payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if label != "" {
		if _, err := w.bw.WriteString(label + ":"); err != nil {
			return err
		}
	}

	if _, err := w.bw.WriteString(base64.StdEncoding.EncodeToString(payload)); err != nil {
		return err
	}

	if err := w.bw.WriteByte('\n'); err != nil {
		return err
	}

	w.count++
	return nil
}

// Count is the number of lines written so far.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.count
}

func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.bw.Flush()
}

// Close flushes any buffered lines and closes the file, if the Writer was created with [Create].
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	err := w.bw.Flush()

	if w.closer != nil {
		if closeErr := w.closer.Close(); err == nil {
			err = closeErr
		}

		w.closer = nil
	}

	return err
}
