package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gyeh/npi-lookup/internal/npi"
	"github.com/gyeh/npi-lookup/internal/output"
	"github.com/gyeh/npi-lookup/internal/progress"
	"github.com/gyeh/npi-lookup/internal/worker"
)

// pageData feeds templates/index.html.
type pageData struct {
	Input   string
	Error   string
	Total   int // set while a batch streams its progress bar
	Ran     bool
	Header  []string
	Rows    []worker.Row
	CSVHref template.URL
	CSVName string
	CSVType string
}

type lookupRequest struct {
	NPIs string `json:"npis"`
}

type lookupResponse struct {
	Count int          `json:"count"`
	Rows  []worker.Row `json:"rows"`
}

// errBatchTooLarge is wrapped with the actual counts before being returned.
var errBatchTooLarge = errors.New("too many NPIs in one batch")

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, pageData{})
}

func (s *Server) handleLookupForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, pageData{Error: "Could not read the submitted form."})
		return
	}
	text := r.PostFormValue("npis")

	npis, err := s.parseBatch(text)
	if err != nil {
		s.render(w, http.StatusUnprocessableEntity, pageData{Input: text, Error: err.Error()})
		return
	}

	// The page is streamed: form and empty progress bar first, one
	// progress update per NPI, then the results table.
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	data := pageData{Input: text, Total: len(npis)}
	if err := pages.ExecuteTemplate(w, "header", data); err != nil {
		s.logger.Error("Failed to render page", "error", err)
		return
	}
	data.Total = 0

	rc := http.NewResponseController(w)
	flush := func() error {
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
		return nil
	}
	if err := flush(); err != nil {
		s.logger.Warn("Failed to flush page header", "error", err)
	}
	page := progress.NewHTMLTracker(w, flush)

	rows := s.runBatch(r, npis, page)
	if err := page.Err(); err != nil {
		s.logger.Warn("Progress updates stopped", "error", err)
	}

	if csvData, err := output.EncodeCSV(rows); err != nil {
		s.logger.Error("Failed to encode CSV", "error", err)
		data.Error = "Could not build the CSV export."
	} else {
		data.Ran = true
		data.Header = output.Header
		data.Rows = rows
		data.CSVHref = template.URL("data:" + output.CSVContentType + ";charset=utf-8;base64," + base64.StdEncoding.EncodeToString(csvData))
		data.CSVName = output.CSVFileName
		data.CSVType = output.CSVContentType
	}

	for _, name := range []string{"results", "footer"} {
		if err := pages.ExecuteTemplate(w, name, data); err != nil {
			s.logger.Error("Failed to render page", "error", err)
			return
		}
	}
}

func (s *Server) handleLookupJSON(w http.ResponseWriter, r *http.Request) {
	text, err := readLookupText(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	npis, err := s.parseBatch(text)
	if err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	rows := s.runBatch(r, npis)
	respondWithJSON(w, http.StatusOK, lookupResponse{Count: len(rows), Rows: rows})
}

func (s *Server) handleLookupCSV(w http.ResponseWriter, r *http.Request) {
	text, err := readLookupText(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	npis, err := s.parseBatch(text)
	if err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	rows := s.runBatch(r, npis)
	data, err := output.EncodeCSV(rows)
	if err != nil {
		s.logger.Error("Failed to encode CSV", "error", err)
		respondWithError(w, http.StatusInternalServerError, "could not build the CSV export")
		return
	}

	w.Header().Set("Content-Type", output.CSVContentType+"; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": output.CSVFileName}))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"uptime_seconds": time.Since(serverStartTime).Seconds(),
	})
}

// parseBatch validates pasted text into a batch of unique NPIs.
func (s *Server) parseBatch(text string) ([]string, error) {
	npis, err := npi.ParseNPIsStrict(text)
	if err != nil {
		return nil, err
	}
	if limit := s.config.MaxBatchSize; limit > 0 && len(npis) > limit {
		return nil, fmt.Errorf("%w: got %d, limit is %d", errBatchTooLarge, len(npis), limit)
	}
	return npis, nil
}

// runBatch runs npis through the registry, reporting progress to the log and
// to any extra trackers.
func (s *Server) runBatch(r *http.Request, npis []string, extra ...progress.Tracker) []worker.Row {
	batchID := middleware.GetReqID(r.Context())
	s.logger.Info("Processing NPI batch", "batch", batchID, "count", len(npis))

	trackers := append([]progress.Tracker{progress.NewLogTracker(s.logger, batchID)}, extra...)
	runner := &worker.Runner{
		Client:   s.client,
		Pause:    s.config.LookupPause,
		Progress: progress.Multi(trackers...),
		Logger:   s.logger,
	}
	return runner.Run(r.Context(), npis)
}

// readLookupText accepts either a JSON body {"npis": "..."} or a form field npis.
func readLookupText(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req lookupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", fmt.Errorf("decoding request body: %w", err)
		}
		return req.NPIs, nil
	}
	if err := r.ParseForm(); err != nil {
		return "", fmt.Errorf("parsing form: %w", err)
	}
	return r.PostFormValue("npis"), nil
}

func (s *Server) render(w http.ResponseWriter, code int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := pages.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.Error("Failed to render page", "error", err)
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	w.Write(data)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	})
}
