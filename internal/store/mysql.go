package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/fleetdesk/fleetdesk/internal/models"
)

type MySQLStore struct {
	connectionString string
	db               *sql.DB
}

func NewMySQLStore(connectionString string) *MySQLStore {
	return &MySQLStore{
		connectionString: connectionString,
		db:               nil,
	}
}

func (m *MySQLStore) Connect(ctx context.Context) error {
	db, err := sql.Open("mysql", m.connectionString)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect: %w", err)
	}

	m.db = db

	if err := m.initSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialise schema: %w", err)
	}
	return nil
}

func (m *MySQLStore) Close(ctx context.Context) error {
	if m.db != nil {
		err := m.db.Close()
		m.db = nil
		return err
	}
	return nil
}

func (m *MySQLStore) Ping(ctx context.Context) error {
	if m.db == nil {
		return ErrNotConnected
	}
	if err := m.db.PingContext(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

func (m *MySQLStore) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tech_messages (
			id          VARCHAR(36) PRIMARY KEY,
			category    VARCHAR(100) NOT NULL,
			severity    VARCHAR(16) NOT NULL,
			pattern     TEXT NOT NULL,
			description VARCHAR(500) NOT NULL DEFAULT '',
			created_at  DATETIME(6) NOT NULL,
			updated_at  DATETIME(6) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS action_tiers (
			id             VARCHAR(36) PRIMARY KEY,
			message_id     VARCHAR(36) NOT NULL,
			position       INT NOT NULL,
			occurrence_min INT NOT NULL,
			occurrence_max INT NULL,
			action_text    VARCHAR(500) NOT NULL,
			priority       INT NOT NULL,
			CONSTRAINT fk_action_tiers_message FOREIGN KEY (message_id)
				REFERENCES tech_messages(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS devices (
			id            VARCHAR(36) PRIMARY KEY,
			name          VARCHAR(255) NOT NULL,
			serial_number VARCHAR(255) NOT NULL DEFAULT '',
			device_type   VARCHAR(255) NOT NULL DEFAULT '',
			location      VARCHAR(255) NOT NULL DEFAULT '',
			ip_address    VARCHAR(64) NOT NULL DEFAULT '',
			status        VARCHAR(32) NOT NULL,
			metadata      JSON NULL,
			created_at    DATETIME(6) NOT NULL,
			updated_at    DATETIME(6) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id            VARCHAR(36) PRIMARY KEY,
			username      VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			admin         BOOLEAN NOT NULL DEFAULT FALSE,
			created_at    DATETIME(6) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS import_rows (
			id         VARCHAR(36) PRIMARY KEY,
			source     VARCHAR(255) NOT NULL,
			sheet      VARCHAR(255) NOT NULL,
			row_number INT NOT NULL,
			columns    JSON NOT NULL,
			row_text   TEXT NOT NULL,
			created_at DATETIME(6) NOT NULL
		)`,
	}

	for _, statement := range statements {
		if _, err := m.db.ExecContext(ctx, statement); err != nil {
			return err
		}
	}
	return nil
}

// ===== [CATALOG READ] =====

func (m *MySQLStore) LoadAllRecords(ctx context.Context) ([]*models.TechMessageRecord, error) {
	if m.db == nil {
		return nil, ErrNotConnected
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT id, category, severity, pattern, description, created_at, updated_at
		FROM tech_messages ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load tech messages: %w", err)
	}
	defer rows.Close()

	var records []*models.TechMessageRecord
	index := make(map[string]*models.TechMessageRecord)

	for rows.Next() {
		record := &models.TechMessageRecord{}
		if err := rows.Scan(&record.ID, &record.Category, &record.Severity,
			&record.Pattern, &record.Description, &record.CreatedAt, &record.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tech message: %w", err)
		}
		records = append(records, record)
		index[record.ID] = record
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tierRows, err := m.db.QueryContext(ctx, `
		SELECT id, message_id, occurrence_min, occurrence_max, action_text, priority
		FROM action_tiers ORDER BY message_id, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to load action tiers: %w", err)
	}
	defer tierRows.Close()

	for tierRows.Next() {
		var tier models.ActionTier
		var messageID string
		if err := tierRows.Scan(&tier.ID, &messageID, &tier.OccurrenceMin,
			&tier.OccurrenceMax, &tier.ActionText, &tier.Priority); err != nil {
			return nil, fmt.Errorf("failed to scan action tier: %w", err)
		}
		if record, ok := index[messageID]; ok {
			record.ActionTiers = append(record.ActionTiers, tier)
		}
	}

	return records, tierRows.Err()
}

func (m *MySQLStore) GetCategoryList(ctx context.Context) ([]string, error) {
	if m.db == nil {
		return nil, ErrNotConnected
	}

	rows, err := m.db.QueryContext(ctx, `SELECT DISTINCT category FROM tech_messages ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// ===== [TECH MESSAGE CRUD] =====

func (m *MySQLStore) GetTechMessage(ctx context.Context, id string) (*models.TechMessageRecord, error) {
	if m.db == nil {
		return nil, ErrNotConnected
	}

	record := &models.TechMessageRecord{}
	err := m.db.QueryRowContext(ctx, `
		SELECT id, category, severity, pattern, description, created_at, updated_at
		FROM tech_messages WHERE id = ?`, id).
		Scan(&record.ID, &record.Category, &record.Severity, &record.Pattern,
			&record.Description, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tech message: %w", err)
	}

	tierRows, err := m.db.QueryContext(ctx, `
		SELECT id, occurrence_min, occurrence_max, action_text, priority
		FROM action_tiers WHERE message_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load action tiers: %w", err)
	}
	defer tierRows.Close()

	for tierRows.Next() {
		var tier models.ActionTier
		if err := tierRows.Scan(&tier.ID, &tier.OccurrenceMin, &tier.OccurrenceMax,
			&tier.ActionText, &tier.Priority); err != nil {
			return nil, err
		}
		record.ActionTiers = append(record.ActionTiers, tier)
	}

	return record, tierRows.Err()
}

func (m *MySQLStore) CreateTechMessage(ctx context.Context, record *models.TechMessageRecord) error {
	if m.db == nil {
		return ErrNotConnected
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tech_messages (id, category, severity, pattern, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.Category, record.Severity, record.Pattern,
		record.Description, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert tech message: %w", err)
	}

	if err := insertTiersSQL(ctx, tx, record); err != nil {
		return err
	}

	return tx.Commit()
}

func (m *MySQLStore) UpdateTechMessage(ctx context.Context, record *models.TechMessageRecord) error {
	if m.db == nil {
		return ErrNotConnected
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE tech_messages
		SET category = ?, severity = ?, pattern = ?, description = ?, updated_at = ?
		WHERE id = ?`,
		record.Category, record.Severity, record.Pattern, record.Description,
		record.UpdatedAt, record.ID)
	if err != nil {
		return fmt.Errorf("failed to update tech message: %w", err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		// MySQL reports zero affected rows for no-op updates too, so
		// confirm the row exists before treating it as missing.
		var exists int
		if scanErr := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM tech_messages WHERE id = ?`, record.ID).Scan(&exists); scanErr == nil && exists == 0 {
			return ErrNotFound
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM action_tiers WHERE message_id = ?`, record.ID); err != nil {
		return fmt.Errorf("failed to clear action tiers: %w", err)
	}
	if err := insertTiersSQL(ctx, tx, record); err != nil {
		return err
	}

	return tx.Commit()
}

func insertTiersSQL(ctx context.Context, tx *sql.Tx, record *models.TechMessageRecord) error {
	for i, tier := range record.ActionTiers {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO action_tiers (id, message_id, position, occurrence_min, occurrence_max, action_text, priority)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			tier.ID, record.ID, i, tier.OccurrenceMin, tier.OccurrenceMax,
			tier.ActionText, tier.Priority)
		if err != nil {
			return fmt.Errorf("failed to insert action tier: %w", err)
		}
	}
	return nil
}

func (m *MySQLStore) DeleteTechMessage(ctx context.Context, id string) error {
	if m.db == nil {
		return ErrNotConnected
	}

	result, err := m.db.ExecContext(ctx, `DELETE FROM tech_messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tech message: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ===== [DEVICES] =====

func (m *MySQLStore) ListDevices(ctx context.Context) ([]*models.Device, error) {
	if m.db == nil {
		return nil, ErrNotConnected
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT id, name, serial_number, device_type, location, ip_address, status, metadata, created_at, updated_at
		FROM devices ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var devices []*models.Device
	for rows.Next() {
		device, err := scanDeviceSQL(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}
	return devices, rows.Err()
}

func (m *MySQLStore) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	if m.db == nil {
		return nil, ErrNotConnected
	}

	row := m.db.QueryRowContext(ctx, `
		SELECT id, name, serial_number, device_type, location, ip_address, status, metadata, created_at, updated_at
		FROM devices WHERE id = ?`, id)
	device, err := scanDeviceSQL(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return device, nil
}

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanDeviceSQL(row sqlScanner) (*models.Device, error) {
	device := &models.Device{}
	var metadata sql.NullString
	if err := row.Scan(&device.ID, &device.Name, &device.SerialNumber, &device.DeviceType,
		&device.Location, &device.IPAddress, &device.Status, &metadata,
		&device.CreatedAt, &device.UpdatedAt); err != nil {
		return nil, err
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &device.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal device metadata: %w", err)
		}
	}
	return device, nil
}

func (m *MySQLStore) CreateDevice(ctx context.Context, device *models.Device) error {
	if m.db == nil {
		return ErrNotConnected
	}

	metadata, err := json.Marshal(device.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal device metadata: %w", err)
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO devices (id, name, serial_number, device_type, location, ip_address, status, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		device.ID, device.Name, device.SerialNumber, device.DeviceType,
		device.Location, device.IPAddress, device.Status, string(metadata),
		device.CreatedAt, device.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert device: %w", err)
	}
	return nil
}

func (m *MySQLStore) UpdateDevice(ctx context.Context, device *models.Device) error {
	if m.db == nil {
		return ErrNotConnected
	}

	metadata, err := json.Marshal(device.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal device metadata: %w", err)
	}

	_, err = m.db.ExecContext(ctx, `
		UPDATE devices
		SET name = ?, serial_number = ?, device_type = ?, location = ?,
		    ip_address = ?, status = ?, metadata = ?, updated_at = ?
		WHERE id = ?`,
		device.Name, device.SerialNumber, device.DeviceType, device.Location,
		device.IPAddress, device.Status, string(metadata), device.UpdatedAt, device.ID)
	if err != nil {
		return fmt.Errorf("failed to update device: %w", err)
	}
	return nil
}

func (m *MySQLStore) DeleteDevice(ctx context.Context, id string) error {
	if m.db == nil {
		return ErrNotConnected
	}

	result, err := m.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ===== [USERS] =====

func (m *MySQLStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.db == nil {
		return nil, ErrNotConnected
	}

	user := &models.User{}
	err := m.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, admin, created_at
		FROM users WHERE username = ?`, username).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Admin, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (m *MySQLStore) CreateUser(ctx context.Context, user *models.User) error {
	if m.db == nil {
		return ErrNotConnected
	}

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, admin, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.PasswordHash, user.Admin, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// ===== [IMPORT ROWS] =====

func (m *MySQLStore) InsertImportRows(ctx context.Context, importRows []*models.ImportRow) error {
	if m.db == nil {
		return ErrNotConnected
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, row := range importRows {
		columns, err := json.Marshal(row.Columns)
		if err != nil {
			return fmt.Errorf("failed to marshal import row: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO import_rows (id, source, sheet, row_number, columns, row_text, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			row.ID, row.Source, row.Sheet, row.RowNumber, string(columns),
			strings.ToLower(strings.Join(row.Columns, " | ")), row.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert import row: %w", err)
		}
	}

	return tx.Commit()
}

func (m *MySQLStore) SearchImportRows(ctx context.Context, query string, limit int) ([]*models.ImportRow, error) {
	if m.db == nil {
		return nil, ErrNotConnected
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT id, source, sheet, row_number, columns, created_at
		FROM import_rows
		WHERE row_text LIKE CONCAT('%', ?, '%')
		ORDER BY source, sheet, row_number
		LIMIT ?`, strings.ToLower(query), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search import rows: %w", err)
	}
	defer rows.Close()

	var results []*models.ImportRow
	for rows.Next() {
		row := &models.ImportRow{}
		var columns string
		if err := rows.Scan(&row.ID, &row.Source, &row.Sheet, &row.RowNumber,
			&columns, &row.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(columns), &row.Columns); err != nil {
			return nil, fmt.Errorf("failed to unmarshal import row: %w", err)
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
