package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fleetdesk/fleetdesk/internal/eventbus"
	"github.com/fleetdesk/fleetdesk/internal/models"
	"github.com/fleetdesk/fleetdesk/internal/store"
)

const categoryCacheTTL = 10 * time.Minute

func (s *Server) handleListTechMessages(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.LoadAllRecords(r.Context())
	if err != nil {
		log.Printf("Failed to list tech messages: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list tech messages")
		return
	}
	if records == nil {
		records = []*models.TechMessageRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetTechMessage(w http.ResponseWriter, r *http.Request) {
	record, err := s.store.GetTechMessage(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "tech message not found")
			return
		}
		log.Printf("Failed to get tech message: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get tech message")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleCreateTechMessage(w http.ResponseWriter, r *http.Request) {
	var record models.TechMessageRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	for i := range record.ActionTiers {
		if record.ActionTiers[i].ID == "" {
			record.ActionTiers[i].ID = uuid.NewString()
		}
	}

	// Rejecting uncompilable patterns here keeps search-time
	// compilation infallible.
	if err := record.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.CreateTechMessage(r.Context(), &record); err != nil {
		log.Printf("Failed to create tech message: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create tech message")
		return
	}

	s.invalidateCatalog(r.Context(), record.ID, record.Pattern, "created")
	writeJSON(w, http.StatusCreated, &record)
}

func (s *Server) handleUpdateTechMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := s.store.GetTechMessage(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "tech message not found")
			return
		}
		log.Printf("Failed to get tech message: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get tech message")
		return
	}

	var record models.TechMessageRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record.ID = id
	record.CreatedAt = existing.CreatedAt
	record.UpdatedAt = time.Now().UTC()
	for i := range record.ActionTiers {
		if record.ActionTiers[i].ID == "" {
			record.ActionTiers[i].ID = uuid.NewString()
		}
	}

	if err := record.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.UpdateTechMessage(r.Context(), &record); err != nil {
		log.Printf("Failed to update tech message: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update tech message")
		return
	}

	// Both the old and new pattern leave the compiled cache, so an
	// edited pattern recompiles on the next search.
	s.searcher.InvalidatePattern(existing.Pattern)
	s.invalidateCatalog(r.Context(), record.ID, record.Pattern, "updated")
	writeJSON(w, http.StatusOK, &record)
}

func (s *Server) handleDeleteTechMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := s.store.GetTechMessage(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "tech message not found")
			return
		}
		log.Printf("Failed to get tech message: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get tech message")
		return
	}

	if err := s.store.DeleteTechMessage(r.Context(), id); err != nil {
		log.Printf("Failed to delete tech message: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to delete tech message")
		return
	}

	s.invalidateCatalog(r.Context(), id, existing.Pattern, "deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if s.cache != nil {
		if categories, err := s.cache.GetCachedCategoryList(r.Context()); err == nil && categories != nil {
			writeJSON(w, http.StatusOK, categories)
			return
		}
	}

	categories, err := s.store.GetCategoryList(r.Context())
	if err != nil {
		log.Printf("Failed to load categories: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load categories")
		return
	}
	if categories == nil {
		categories = []string{}
	}

	if s.cache != nil {
		if err := s.cache.CacheCategoryList(r.Context(), categories, categoryCacheTTL); err != nil {
			log.Printf("Warning: failed to cache categories: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, categories)
}

// invalidateCatalog drops local caches for a changed record and fans
// the change out to other instances over the event bus.
func (s *Server) invalidateCatalog(ctx context.Context, recordID string, pattern string, changeType string) {
	s.searcher.InvalidatePattern(pattern)

	if s.cache != nil {
		if err := s.cache.InvalidateCategoryList(ctx); err != nil {
			log.Printf("Warning: failed to invalidate category cache: %v", err)
		}
	}

	if s.publisher != nil {
		event := eventbus.CatalogChangedEvent{
			RecordID:   recordID,
			Pattern:    pattern,
			ChangeType: changeType,
			Timestamp:  time.Now().Unix(),
		}
		if err := s.publisher.PublishCatalogChanged(event); err != nil {
			log.Printf("Warning: failed to publish catalog change: %v", err)
		}
	}
}
