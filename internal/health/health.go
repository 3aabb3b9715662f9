package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fleetdesk/fleetdesk/internal/redis"
	"github.com/fleetdesk/fleetdesk/internal/store"
	"github.com/fleetdesk/fleetdesk/internal/system"
)

type HealthServer struct {
	store       store.Store
	redisClient *redis.Client
	server      *http.Server
}

func NewHealthServer(st store.Store, redisClient *redis.Client) *HealthServer {
	return &HealthServer{
		store:       st,
		redisClient: redisClient,
	}
}

func (h *HealthServer) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.healthCheckHandler)

	h.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	return h.server.ListenAndServe()
}

func (h *HealthServer) Shutdown(ctx context.Context) error {
	if h.server != nil {
		return h.server.Shutdown(ctx)
	}
	return nil
}

func (h *HealthServer) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx := context.Background()

	status := map[string]interface{}{
		"status": "healthy",
		"store":  "connected",
		"redis":  "connected",
	}
	healthy := true

	if err := h.store.Ping(ctx); err != nil {
		status["store"] = "disconnected"
		status["error"] = err.Error()
		healthy = false
	}

	if err := h.redisClient.Ping(ctx); err != nil {
		status["redis"] = "disconnected"
		status["error"] = err.Error()
		healthy = false
	}

	if metrics, err := system.Collect(); err == nil {
		status["system"] = metrics
	}

	if !healthy {
		status["status"] = "unhealthy"
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(status)
}
