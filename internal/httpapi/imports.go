package httpapi

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/fleetdesk/fleetdesk/internal/ingest"
	"github.com/fleetdesk/fleetdesk/internal/models"
)

const maxUploadBytes = 20 << 20 // 20 MiB

// handleImportExcel accepts a multipart .xlsx upload, stores every
// non-empty row for search, and creates devices from sheets that carry
// an inventory header.
func (s *Server) handleImportExcel(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file upload")
		return
	}
	defer file.Close()

	rows, err := ingest.ParseWorkbook(file, header.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read workbook: "+err.Error())
		return
	}

	if err := s.store.InsertImportRows(r.Context(), rows); err != nil {
		log.Printf("Failed to store import rows: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to store import rows")
		return
	}

	devices := ingest.ExtractDevices(rows)
	created := 0
	for _, device := range devices {
		if err := s.store.CreateDevice(r.Context(), device); err != nil {
			log.Printf("Warning: failed to create device %q from import: %v", device.Name, err)
			continue
		}
		created++
	}

	log.Printf("Imported %s: %d rows, %d devices", header.Filename, len(rows), created)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"source":         header.Filename,
		"rowsImported":   len(rows),
		"devicesCreated": created,
	})
}

func (s *Server) handleImportSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	results, err := s.store.SearchImportRows(r.Context(), query, limit)
	if err != nil {
		log.Printf("Failed to search import rows: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to search import rows")
		return
	}
	if results == nil {
		results = []*models.ImportRow{}
	}

	writeJSON(w, http.StatusOK, results)
}
