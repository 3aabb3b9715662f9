package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/fleetdesk/fleetdesk/internal/auth"
	"github.com/fleetdesk/fleetdesk/internal/config"
	"github.com/fleetdesk/fleetdesk/internal/engine"
	"github.com/fleetdesk/fleetdesk/internal/eventbus"
	"github.com/fleetdesk/fleetdesk/internal/health"
	"github.com/fleetdesk/fleetdesk/internal/httpapi"
	"github.com/fleetdesk/fleetdesk/internal/models"
	"github.com/fleetdesk/fleetdesk/internal/redis"
	"github.com/fleetdesk/fleetdesk/internal/store"
)

// Orchestrator manages the FleetDesk service lifecycle and coordinates
// the store, Redis, event bus, and HTTP server management.
//
// Lifecycle:
//  1. Start() - Connects the store and Redis, wires the engine, auth,
//     event bus, and HTTP/health servers
//  2. Run() - Starts all servers and blocks until context is cancelled
//  3. Stop() - Gracefully closes all connections and resources
type Orchestrator struct {
	config *config.Config

	// Core components
	store       store.Store
	searcher    *engine.Searcher
	redisClient *redis.Client

	// Event bus (optional)
	publisher  *eventbus.Publisher
	subscriber *eventbus.Subscriber

	// Servers
	httpServer   *httpapi.Server
	healthServer *health.HealthServer
}

// NewOrchestrator creates a new Orchestrator instance with the provided
// configuration. The orchestrator is not started until Start() is called.
func NewOrchestrator(cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		config: cfg,
	}
}

// Start initializes all service connections and prepares the
// orchestrator for operation. This method must be called before Run().
func (o *Orchestrator) Start() error {
	log.Printf("Starting FleetDesk Orchestrator...")

	if err := o.connectStore(); err != nil {
		return fmt.Errorf("failed to connect store: %w", err)
	}

	if err := o.connectRedis(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	o.searcher = engine.NewSearcher()

	if err := o.connectEventBus(); err != nil {
		log.Printf("Warning: event bus unavailable: %v", err)
		log.Printf("Catalog change fan-out will be disabled")
	}

	if err := o.bootstrapAdmin(); err != nil {
		return fmt.Errorf("failed to bootstrap admin user: %w", err)
	}

	o.initializeServers()

	log.Printf("FleetDesk Orchestrator started successfully")
	return nil
}

// Run starts the HTTP and health servers and blocks until the context
// is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	go func() {
		if err := o.httpServer.Start(":" + o.config.HTTPPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	go func() {
		log.Printf("Health check listening on :%s", o.config.HealthPort)
		if err := o.healthServer.Start(":" + o.config.HealthPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Health check server failed: %v", err)
		}
	}()

	<-ctx.Done()
	return nil
}

// Stop gracefully closes all connections and resources.
func (o *Orchestrator) Stop() {
	log.Printf("Stopping FleetDesk Orchestrator...")

	if o.httpServer != nil {
		if err := o.httpServer.Stop(); err != nil {
			log.Printf("Warning: HTTP server shutdown: %v", err)
		}
	}

	if o.healthServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := o.healthServer.Shutdown(ctx); err != nil {
			log.Printf("Warning: health server shutdown: %v", err)
		}
		cancel()
	}

	if o.subscriber != nil {
		o.subscriber.Close()
	}
	if o.publisher != nil {
		o.publisher.Close()
	}

	if o.redisClient != nil {
		o.redisClient.Close()
	}

	if o.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := o.store.Close(ctx); err != nil {
			log.Printf("Warning: store close: %v", err)
		}
		cancel()
	}

	log.Printf("FleetDesk Orchestrator stopped")
}

func (o *Orchestrator) connectStore() error {
	st, err := store.NewStore(o.config.StoreType, o.config.ConnectionString)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := st.Connect(ctx); err != nil {
		return err
	}

	log.Printf("Connected to %s store", o.config.StoreType)
	o.store = st
	return nil
}

func (o *Orchestrator) connectRedis() error {
	client, err := redis.NewClient(o.config.RedisAddr, o.config.RedisPassword, o.config.RedisDB)
	if err != nil {
		return err
	}
	o.redisClient = client
	return nil
}

func (o *Orchestrator) connectEventBus() error {
	if o.config.NATSURL == "" {
		log.Printf("NATS_URL not set, catalog events disabled")
		return nil
	}

	publisher, err := eventbus.NewPublisher(o.config.NATSURL)
	if err != nil {
		return err
	}
	o.publisher = publisher

	subscriber, err := eventbus.NewSubscriber(o.config.NATSURL, func(event eventbus.CatalogChangedEvent) {
		o.searcher.InvalidatePattern(event.Pattern)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.redisClient.InvalidateCategoryList(ctx); err != nil {
			log.Printf("Warning: failed to invalidate category cache: %v", err)
		}
	})
	if err != nil {
		return err
	}
	if err := subscriber.Start(); err != nil {
		return err
	}
	o.subscriber = subscriber

	return nil
}

// bootstrapAdmin creates the configured admin account on first start so
// a fresh deployment has a way to log in.
func (o *Orchestrator) bootstrapAdmin() error {
	if o.config.AdminUsername == "" || o.config.AdminPassword == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := o.store.GetUserByUsername(ctx, o.config.AdminUsername); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(o.config.AdminPassword)
	if err != nil {
		return err
	}

	user := models.NewUser(o.config.AdminUsername, hash, true)
	if err := o.store.CreateUser(ctx, user); err != nil {
		return err
	}

	log.Printf("Created bootstrap admin user %q", o.config.AdminUsername)
	return nil
}

func (o *Orchestrator) initializeServers() {
	tokenTTL := time.Duration(o.config.TokenTTLMinutes) * time.Minute
	authService := auth.NewService(o.store, o.redisClient, tokenTTL)

	o.httpServer = httpapi.NewServer(o.store, o.searcher, authService)
	o.httpServer.SetCategoryCache(o.redisClient)
	if o.publisher != nil {
		o.httpServer.SetPublisher(o.publisher)
	}

	o.healthServer = health.NewHealthServer(o.store, o.redisClient)
}
