package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetdesk/fleetdesk/internal/models"
)

type PostgresStore struct {
	connectionString string
	pool             *pgxpool.Pool
}

func NewPostgresStore(connectionString string) *PostgresStore {
	return &PostgresStore{
		connectionString: connectionString,
		pool:             nil,
	}
}

func (p *PostgresStore) Connect(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, p.connectionString)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	p.pool = pool

	if err := p.initSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialise schema: %w", err)
	}

	return nil
}

func (p *PostgresStore) Close(ctx context.Context) error {
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
	return nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	if p.pool == nil {
		return ErrNotConnected
	}
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

func (p *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tech_messages (
		id          TEXT PRIMARY KEY,
		category    TEXT NOT NULL,
		severity    TEXT NOT NULL,
		pattern     TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS action_tiers (
		id             TEXT PRIMARY KEY,
		message_id     TEXT NOT NULL REFERENCES tech_messages(id) ON DELETE CASCADE,
		position       INT NOT NULL,
		occurrence_min INT NOT NULL,
		occurrence_max INT,
		action_text    TEXT NOT NULL,
		priority       INT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS devices (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		serial_number TEXT NOT NULL DEFAULT '',
		device_type   TEXT NOT NULL DEFAULT '',
		location      TEXT NOT NULL DEFAULT '',
		ip_address    TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL,
		metadata      JSONB,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		admin         BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS import_rows (
		id         TEXT PRIMARY KEY,
		source     TEXT NOT NULL,
		sheet      TEXT NOT NULL,
		row_number INT NOT NULL,
		columns    JSONB NOT NULL,
		row_text   TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);`

	_, err := p.pool.Exec(ctx, schema)
	return err
}

// ===== [CATALOG READ] =====

func (p *PostgresStore) LoadAllRecords(ctx context.Context) ([]*models.TechMessageRecord, error) {
	if p.pool == nil {
		return nil, ErrNotConnected
	}

	rows, err := p.pool.Query(ctx, `
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

	tierRows, err := p.pool.Query(ctx, `
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
	if err := tierRows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func (p *PostgresStore) GetCategoryList(ctx context.Context) ([]string, error) {
	if p.pool == nil {
		return nil, ErrNotConnected
	}

	rows, err := p.pool.Query(ctx, `SELECT DISTINCT category FROM tech_messages ORDER BY category`)
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

func (p *PostgresStore) GetTechMessage(ctx context.Context, id string) (*models.TechMessageRecord, error) {
	if p.pool == nil {
		return nil, ErrNotConnected
	}

	record := &models.TechMessageRecord{}
	err := p.pool.QueryRow(ctx, `
		SELECT id, category, severity, pattern, description, created_at, updated_at
		FROM tech_messages WHERE id = $1`, id).
		Scan(&record.ID, &record.Category, &record.Severity, &record.Pattern,
			&record.Description, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tech message: %w", err)
	}

	tierRows, err := p.pool.Query(ctx, `
		SELECT id, occurrence_min, occurrence_max, action_text, priority
		FROM action_tiers WHERE message_id = $1 ORDER BY position`, id)
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

func (p *PostgresStore) CreateTechMessage(ctx context.Context, record *models.TechMessageRecord) error {
	if p.pool == nil {
		return ErrNotConnected
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO tech_messages (id, category, severity, pattern, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		record.ID, record.Category, record.Severity, record.Pattern,
		record.Description, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert tech message: %w", err)
	}

	if err := insertTiersPgx(ctx, tx, record); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (p *PostgresStore) UpdateTechMessage(ctx context.Context, record *models.TechMessageRecord) error {
	if p.pool == nil {
		return ErrNotConnected
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE tech_messages
		SET category = $2, severity = $3, pattern = $4, description = $5, updated_at = $6
		WHERE id = $1`,
		record.ID, record.Category, record.Severity, record.Pattern,
		record.Description, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update tech message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	// Tiers are replaced wholesale so stored order stays creation order.
	if _, err := tx.Exec(ctx, `DELETE FROM action_tiers WHERE message_id = $1`, record.ID); err != nil {
		return fmt.Errorf("failed to clear action tiers: %w", err)
	}
	if err := insertTiersPgx(ctx, tx, record); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertTiersPgx(ctx context.Context, tx pgx.Tx, record *models.TechMessageRecord) error {
	for i, tier := range record.ActionTiers {
		_, err := tx.Exec(ctx, `
			INSERT INTO action_tiers (id, message_id, position, occurrence_min, occurrence_max, action_text, priority)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			tier.ID, record.ID, i, tier.OccurrenceMin, tier.OccurrenceMax,
			tier.ActionText, tier.Priority)
		if err != nil {
			return fmt.Errorf("failed to insert action tier: %w", err)
		}
	}
	return nil
}

func (p *PostgresStore) DeleteTechMessage(ctx context.Context, id string) error {
	if p.pool == nil {
		return ErrNotConnected
	}

	tag, err := p.pool.Exec(ctx, `DELETE FROM tech_messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tech message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ===== [DEVICES] =====

func (p *PostgresStore) ListDevices(ctx context.Context) ([]*models.Device, error) {
	if p.pool == nil {
		return nil, ErrNotConnected
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, name, serial_number, device_type, location, ip_address, status, metadata, created_at, updated_at
		FROM devices ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var devices []*models.Device
	for rows.Next() {
		device, err := scanDevicePgx(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}
	return devices, rows.Err()
}

func (p *PostgresStore) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	if p.pool == nil {
		return nil, ErrNotConnected
	}

	row := p.pool.QueryRow(ctx, `
		SELECT id, name, serial_number, device_type, location, ip_address, status, metadata, created_at, updated_at
		FROM devices WHERE id = $1`, id)
	device, err := scanDevicePgx(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return device, nil
}

func scanDevicePgx(row pgx.Row) (*models.Device, error) {
	device := &models.Device{}
	var metadata []byte
	if err := row.Scan(&device.ID, &device.Name, &device.SerialNumber, &device.DeviceType,
		&device.Location, &device.IPAddress, &device.Status, &metadata,
		&device.CreatedAt, &device.UpdatedAt); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &device.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal device metadata: %w", err)
		}
	}
	return device, nil
}

func (p *PostgresStore) CreateDevice(ctx context.Context, device *models.Device) error {
	if p.pool == nil {
		return ErrNotConnected
	}

	metadata, err := json.Marshal(device.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal device metadata: %w", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO devices (id, name, serial_number, device_type, location, ip_address, status, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		device.ID, device.Name, device.SerialNumber, device.DeviceType,
		device.Location, device.IPAddress, device.Status, metadata,
		device.CreatedAt, device.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert device: %w", err)
	}
	return nil
}

func (p *PostgresStore) UpdateDevice(ctx context.Context, device *models.Device) error {
	if p.pool == nil {
		return ErrNotConnected
	}

	metadata, err := json.Marshal(device.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal device metadata: %w", err)
	}

	tag, err := p.pool.Exec(ctx, `
		UPDATE devices
		SET name = $2, serial_number = $3, device_type = $4, location = $5,
		    ip_address = $6, status = $7, metadata = $8, updated_at = $9
		WHERE id = $1`,
		device.ID, device.Name, device.SerialNumber, device.DeviceType,
		device.Location, device.IPAddress, device.Status, metadata, device.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) DeleteDevice(ctx context.Context, id string) error {
	if p.pool == nil {
		return ErrNotConnected
	}

	tag, err := p.pool.Exec(ctx, `DELETE FROM devices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ===== [USERS] =====

func (p *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if p.pool == nil {
		return nil, ErrNotConnected
	}

	user := &models.User{}
	err := p.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, admin, created_at
		FROM users WHERE username = $1`, username).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Admin, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (p *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if p.pool == nil {
		return ErrNotConnected
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, admin, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Username, user.PasswordHash, user.Admin, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// ===== [IMPORT ROWS] =====

func (p *PostgresStore) InsertImportRows(ctx context.Context, importRows []*models.ImportRow) error {
	if p.pool == nil {
		return ErrNotConnected
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, row := range importRows {
		columns, err := json.Marshal(row.Columns)
		if err != nil {
			return fmt.Errorf("failed to marshal import row: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO import_rows (id, source, sheet, row_number, columns, row_text, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			row.ID, row.Source, row.Sheet, row.RowNumber, columns,
			strings.ToLower(strings.Join(row.Columns, " | ")), row.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert import row: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (p *PostgresStore) SearchImportRows(ctx context.Context, query string, limit int) ([]*models.ImportRow, error) {
	if p.pool == nil {
		return nil, ErrNotConnected
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, source, sheet, row_number, columns, created_at
		FROM import_rows
		WHERE row_text LIKE '%' || $1 || '%'
		ORDER BY source, sheet, row_number
		LIMIT $2`, strings.ToLower(query), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search import rows: %w", err)
	}
	defer rows.Close()

	var results []*models.ImportRow
	for rows.Next() {
		row := &models.ImportRow{}
		var columns []byte
		if err := rows.Scan(&row.ID, &row.Source, &row.Sheet, &row.RowNumber,
			&columns, &row.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(columns, &row.Columns); err != nil {
			return nil, fmt.Errorf("failed to unmarshal import row: %w", err)
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
