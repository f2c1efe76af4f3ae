package format

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
)

func init() {
	Register(Hex, FormatterFunc(formatHex))
	Register(Base64, FormatterFunc(formatBase64))
	Register(Raw, FormatterFunc(formatRaw))
	Register(Dump, FormatterFunc(formatDump))
	Register(JSON, FormatterFunc(formatJSON))
}

func formatHex(w io.Writer, rec Record) error {
	_, err := fmt.Fprintf(w, "%x\n", rec.Payload)
	return err
}

func formatBase64(w io.Writer, rec Record) error {
	_, err := io.WriteString(w, base64.StdEncoding.EncodeToString(rec.Payload)+"\n")
	return err
}

func formatRaw(w io.Writer, rec Record) error {
	_, err := w.Write(rec.Payload)
	return err
}

func formatDump(w io.Writer, rec Record) error {
	header := fmt.Sprintf("# record %d (%d bytes)", rec.Index, len(rec.Payload))

	if rec.Label != "" {
		header += ", " + rec.Label
	}

	if _, err := io.WriteString(w, header+"\n"); err != nil {
		return err
	}

	_, err := io.WriteString(w, hex.Dump(rec.Payload))
	return err
}

// JSONRecord is the shape of each line written by the json formatter.
type JSONRecord struct {
	Index   int    `json:"index"`
	Label   string `json:"label,omitempty"`
	Size    int    `json:"size"`
	Payload []byte `json:"payload"`
}

func formatJSON(w io.Writer, rec Record) error {
	jsonBytes, err := json.Marshal(JSONRecord{
		Index:   rec.Index,
		Label:   rec.Label,
		Size:    len(rec.Payload),
		Payload: rec.Payload,
	})

	if err != nil {
		return err
	}

	_, err = w.Write(append(jsonBytes, '\n'))
	return err
}
