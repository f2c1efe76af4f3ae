package rawfile

import (
	"bytes"
	"errors"
	"iter"
)

// ErrMissingLabel is the DecodeError cause for a labeled capture line without a "label:" prefix.
var ErrMissingLabel = errors.New("line has no label")

// BinLine is a single line from a labeled capture, ex: "out:AFMAAAAA\n"
type BinLine struct {
	Label  string
	Packet []byte
}

// ParseBinFile opens a labeled capture, where each line is "<label>:<base64 payload>".
// It follows the same rules as [DecodeFile], including opening the file on the first pull.
func ParseBinFile(binFile string) (iter.Seq2[BinLine, error], error) {
	reader, err := OpenLazy(binFile, nil)

	if err != nil {
		return nil, err
	}

	return reader.Labeled(), nil
}

// Labeled treats the capture as a labeled capture. Like All, it can only be used once.
func (r *Reader) Labeled() iter.Seq2[BinLine, error] {
	return decodeAll(r, decodeLabeledLine)
}

func decodeLabeledLine(line []byte) (BinLine, error) {
	label, encoded, found := bytes.Cut(line, []byte{':'})

	if !found {
		return BinLine{}, ErrMissingLabel
	}

	packet, err := decodeLine(encoded)

	if err != nil {
		return BinLine{}, err
	}

	return BinLine{Label: string(label), Packet: packet}, nil
}
