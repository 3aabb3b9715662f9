package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/fleetdesk/fleetdesk/internal/engine"
	"github.com/fleetdesk/fleetdesk/internal/models"
)

// handleSearch is POST /api/tech-messages/search. The catalog snapshot
// is fetched once per call; the engine itself does no I/O.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var request models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	catalog, err := s.store.LoadAllRecords(r.Context())
	if err != nil {
		log.Printf("Failed to load catalog: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load catalog")
		return
	}

	matches, err := s.searcher.Search(engine.Query{
		Text:            request.SearchText,
		OccurrenceCount: request.OccurrenceCount,
		Mode:            request.MatchMode,
	}, catalog)
	if err != nil {
		if errors.Is(err, engine.ErrSearchTextTooShort) || errors.Is(err, engine.ErrInvalidMatchMode) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("Search failed: %v", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	if matches == nil {
		matches = []*models.SearchMatch{}
	}

	writeJSON(w, http.StatusOK, models.SearchResponse{
		Matches:   matches,
		NoMatches: len(matches) == 0,
	})
}
