// Package store provides the system with a range of adapters for
// different backing databases.
package store

import (
	"context"
	"errors"

	"github.com/fleetdesk/fleetdesk/internal/models"
)

var (
	// ErrNotConnected - Connect() not called | failed
	ErrNotConnected = errors.New("store: not connected to database")

	// ErrNotFound - no row/document for the given id
	ErrNotFound = errors.New("store: record not found")

	// ErrUnsupportedStore - fallback error for unknown store types
	ErrUnsupportedStore = errors.New("store: unsupported store type")
)

// Store defines what every backing database adapter has to do. The
// search engine only uses the read side (LoadAllRecords,
// GetCategoryList); the write side serves the admin CRUD endpoints.
type Store interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	Ping(ctx context.Context) error

	// Catalog read contract, consumed by the search engine.
	LoadAllRecords(ctx context.Context) ([]*models.TechMessageRecord, error)
	GetCategoryList(ctx context.Context) ([]string, error)

	// Tech message CRUD. Action tiers travel inside the record and are
	// replaced wholesale on update; deleting a record deletes its tiers.
	GetTechMessage(ctx context.Context, id string) (*models.TechMessageRecord, error)
	CreateTechMessage(ctx context.Context, record *models.TechMessageRecord) error
	UpdateTechMessage(ctx context.Context, record *models.TechMessageRecord) error
	DeleteTechMessage(ctx context.Context, id string) error

	// Device inventory CRUD.
	ListDevices(ctx context.Context) ([]*models.Device, error)
	GetDevice(ctx context.Context, id string) (*models.Device, error)
	CreateDevice(ctx context.Context, device *models.Device) error
	UpdateDevice(ctx context.Context, device *models.Device) error
	DeleteDevice(ctx context.Context, id string) error

	// Accounts.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error

	// Excel import rows.
	InsertImportRows(ctx context.Context, rows []*models.ImportRow) error
	SearchImportRows(ctx context.Context, query string, limit int) ([]*models.ImportRow, error)
}
