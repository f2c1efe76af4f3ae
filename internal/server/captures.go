package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/richardpark-msft/rawdump/internal/format"
	"github.com/richardpark-msft/rawdump/internal/logging"
	"github.com/richardpark-msft/rawdump/internal/rawfile"
	"github.com/richardpark-msft/rawdump/internal/sink"
)

// CaptureInfo describes a single capture file, for /captures.
type CaptureInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// CaptureStats is the response for /captures/{name}/stats.
type CaptureStats struct {
	Name string `json:"name"`
	sink.Stats
}

var contentTypes = map[string]string{
	format.JSON: "application/x-ndjson",
	format.Raw:  "application/octet-stream",
}

func (s *Server) listCaptures(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.dir)

	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	captures := []CaptureInfo{}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		info, err := entry.Info()

		if err != nil {
			// removed since we read the directory
			continue
		}

		captures = append(captures, CaptureInfo{
			Name:     entry.Name(),
			Size:     info.Size(),
			Modified: info.ModTime().UTC(),
		})
	}

	writeJSON(w, r, captures)
}

func (s *Server) captureRecords(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	formatName := query.Get("format")

	if formatName == "" {
		formatName = format.JSON
	}

	formatter, err := format.Get(formatName)

	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	limit, err := queryInt(query.Get("limit"))

	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	skipInvalid, err := queryBool(query.Get("skip_invalid"))

	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	labeled, err := queryBool(query.Get("labeled"))

	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	records, ok := s.openCapture(w, r, labeled, skipInvalid)

	if !ok {
		return
	}

	contentType := contentTypes[formatName]

	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}

	w.Header().Set("Content-Type", contentType)

	ws := sink.NewWriterSink(w, formatter)

	stats, err := sink.Pump(r.Context(), records, ws, &sink.PumpOptions{
		SkipInvalid: skipInvalid,
		Limit:       limit,
	})

	if err != nil && stats.Records == 0 {
		// nothing has been written, so we can still report a proper error.
		var decodeErr *rawfile.DecodeError

		if errors.As(err, &decodeErr) {
			s.fail(w, r, http.StatusUnprocessableEntity, err)
		} else {
			s.fail(w, r, http.StatusInternalServerError, err)
		}

		return
	}

	if flushErr := ws.Close(); flushErr != nil {
		err = errors.Join(err, flushErr)
	}

	if err != nil {
		logging.SloggerFromContext(r.Context()).Error("Capture stream ended early", "records", stats.Records, "error", err)
	}
}

func (s *Server) captureStats(w http.ResponseWriter, r *http.Request) {
	labeled, err := queryBool(r.URL.Query().Get("labeled"))

	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	records, ok := s.openCapture(w, r, labeled, true)

	if !ok {
		return
	}

	stats, err := sink.Pump(r.Context(), records, sink.Discard, &sink.PumpOptions{SkipInvalid: true})

	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, r, CaptureStats{Name: mux.Vars(r)["name"], Stats: stats})
}

// openCapture opens the capture named in the route. It writes an error response and
// returns false if the capture can't be opened.
func (s *Server) openCapture(w http.ResponseWriter, r *http.Request, labeled bool, continueOnError bool) (iter.Seq2[format.Record, error], bool) {
	name := mux.Vars(r)["name"]

	if name != filepath.Base(name) || name == "." || name == ".." {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("invalid capture name %q", name))
		return nil, false
	}

	path := filepath.Join(s.dir, name)

	if info, err := os.Stat(path); err == nil && !info.Mode().IsRegular() {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("%s is not a capture file", name))
		return nil, false
	}

	records, err := sink.OpenRecords(path, labeled, &rawfile.ReaderOptions{ContinueOnError: continueOnError})

	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.fail(w, r, http.StatusNotFound, fmt.Errorf("capture %s not found", name))
		return nil, false
	case err != nil:
		s.fail(w, r, http.StatusInternalServerError, err)
		return nil, false
	}

	return records, true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, statusCode int, err error) {
	slogger := logging.SloggerFromContext(r.Context())

	if statusCode >= http.StatusInternalServerError {
		slogger.Error("Request failed", "error", err)
	} else {
		slogger.Warn("Bad request", "error", err)
	}

	http.Error(w, err.Error(), statusCode)
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.SloggerFromContext(r.Context()).Warn("Failed to write response", "error", err)
	}
}

func queryInt(value string) (int, error) {
	if value == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(value)

	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", value)
	}

	return n, nil
}

func queryBool(value string) (bool, error) {
	if value == "" {
		return false, nil
	}

	b, err := strconv.ParseBool(value)

	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", value)
	}

	return b, nil
}
