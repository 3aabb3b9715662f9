package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type DeviceStatus string

const (
	DeviceActive         DeviceStatus = "active"
	DeviceInactive       DeviceStatus = "inactive"
	DeviceDecommissioned DeviceStatus = "decommissioned"
)

var ErrDeviceNameRequired = errors.New("models: device name is required")

// Device is one inventory entry.
type Device struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	SerialNumber string            `json:"serial_number,omitempty"`
	DeviceType   string            `json:"device_type,omitempty"`
	Location     string            `json:"location,omitempty"`
	IPAddress    string            `json:"ip_address,omitempty"`
	Status       DeviceStatus      `json:"status"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func NewDevice(name string) *Device {
	now := time.Now().UTC()
	return &Device{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    DeviceActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (d *Device) Validate() error {
	if d.Name == "" {
		return ErrDeviceNameRequired
	}
	if d.Status == "" {
		d.Status = DeviceActive
	}
	return nil
}

// ImportRow is one spreadsheet row captured by an Excel upload, kept
// flat for substring search.
type ImportRow struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Sheet     string    `json:"sheet"`
	RowNumber int       `json:"row_number"`
	Columns   []string  `json:"columns"`
	CreatedAt time.Time `json:"created_at"`
}
