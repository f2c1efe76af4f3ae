package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/richardpark-msft/rawdump/internal/utils"
)

// Supported formats
const (
	Hex    = "hex"
	Base64 = "base64"
	Raw    = "raw"
	Dump   = "dump"
	JSON   = "json"
)

// Record is a single decoded payload from a capture.
type Record struct {
	// Index is the 1-based position of the record in its capture.
	Index int

	// Label is only set for labeled captures.
	Label string

	Payload []byte
}

// Formatter renders records for output.
type Formatter interface {
	Format(w io.Writer, rec Record) error
}

// FormatterFunc adapts a function into a [Formatter].
type FormatterFunc func(w io.Writer, rec Record) error

func (fn FormatterFunc) Format(w io.Writer, rec Record) error {
	return fn(w, rec)
}

var formatters = map[string]Formatter{}

// Register adds (or replaces) a named formatter.
func Register(name string, f Formatter) {
	formatters[name] = f
}

// Supported returns the names of all formatters, sorted.
func Supported() []string {
	return utils.SortedKeys(formatters)
}

func Get(name string) (Formatter, error) {
	f := formatters[name]

	if f == nil {
		return nil, fmt.Errorf("unsupported format %q, must be one of: %s", name, strings.Join(Supported(), ", "))
	}

	return f, nil
}
