package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fleetdesk/fleetdesk/internal/models"
)

const mongoDatabase = "fleetdesk"

type MongoStore struct {
	connectionString string
	client           *mongo.Client
	db               *mongo.Database
}

// Mongo documents keep tiers embedded in the message, so record+tiers
// ownership and cascade delete come for free.
type mongoTier struct {
	ID            string `bson:"id"`
	OccurrenceMin int    `bson:"occurrence_min"`
	OccurrenceMax *int   `bson:"occurrence_max,omitempty"`
	ActionText    string `bson:"action_text"`
	Priority      int    `bson:"priority"`
}

type mongoTechMessage struct {
	ID          string      `bson:"_id"`
	Category    string      `bson:"category"`
	Severity    string      `bson:"severity"`
	Pattern     string      `bson:"pattern"`
	Description string      `bson:"description"`
	ActionTiers []mongoTier `bson:"action_tiers"`
	CreatedAt   time.Time   `bson:"created_at"`
	UpdatedAt   time.Time   `bson:"updated_at"`
}

type mongoDevice struct {
	ID           string            `bson:"_id"`
	Name         string            `bson:"name"`
	SerialNumber string            `bson:"serial_number"`
	DeviceType   string            `bson:"device_type"`
	Location     string            `bson:"location"`
	IPAddress    string            `bson:"ip_address"`
	Status       string            `bson:"status"`
	Metadata     map[string]string `bson:"metadata,omitempty"`
	CreatedAt    time.Time         `bson:"created_at"`
	UpdatedAt    time.Time         `bson:"updated_at"`
}

type mongoUser struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	PasswordHash string    `bson:"password_hash"`
	Admin        bool      `bson:"admin"`
	CreatedAt    time.Time `bson:"created_at"`
}

type mongoImportRow struct {
	ID        string    `bson:"_id"`
	Source    string    `bson:"source"`
	Sheet     string    `bson:"sheet"`
	RowNumber int       `bson:"row_number"`
	Columns   []string  `bson:"columns"`
	RowText   string    `bson:"row_text"`
	CreatedAt time.Time `bson:"created_at"`
}

func NewMongoStore(connectionString string) *MongoStore {
	return &MongoStore{
		connectionString: connectionString,
		client:           nil,
	}
}

func (m *MongoStore) Connect(ctx context.Context) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(m.connectionString))
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return fmt.Errorf("failed to connect: %w", err)
	}

	m.client = client
	m.db = client.Database(mongoDatabase)
	return nil
}

func (m *MongoStore) Close(ctx context.Context) error {
	if m.client != nil {
		err := m.client.Disconnect(ctx)
		m.client = nil
		m.db = nil
		return err
	}
	return nil
}

func (m *MongoStore) Ping(ctx context.Context) error {
	if m.client == nil {
		return ErrNotConnected
	}
	if err := m.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

func (m *MongoStore) messages() *mongo.Collection   { return m.db.Collection("tech_messages") }
func (m *MongoStore) devices() *mongo.Collection    { return m.db.Collection("devices") }
func (m *MongoStore) users() *mongo.Collection      { return m.db.Collection("users") }
func (m *MongoStore) importRows() *mongo.Collection { return m.db.Collection("import_rows") }

// ===== [CATALOG READ] =====

func (m *MongoStore) LoadAllRecords(ctx context.Context) ([]*models.TechMessageRecord, error) {
	if m.client == nil {
		return nil, ErrNotConnected
	}

	cursor, err := m.messages().Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to load tech messages: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*models.TechMessageRecord
	for cursor.Next(ctx) {
		var doc mongoTechMessage
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode tech message: %w", err)
		}
		records = append(records, doc.toModel())
	}
	return records, cursor.Err()
}

func (m *MongoStore) GetCategoryList(ctx context.Context) ([]string, error) {
	if m.client == nil {
		return nil, ErrNotConnected
	}

	values, err := m.messages().Distinct(ctx, "category", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	categories := make([]string, 0, len(values))
	for _, value := range values {
		if category, ok := value.(string); ok {
			categories = append(categories, category)
		}
	}
	return categories, nil
}

// ===== [TECH MESSAGE CRUD] =====

func (m *MongoStore) GetTechMessage(ctx context.Context, id string) (*models.TechMessageRecord, error) {
	if m.client == nil {
		return nil, ErrNotConnected
	}

	var doc mongoTechMessage
	err := m.messages().FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tech message: %w", err)
	}
	return doc.toModel(), nil
}

func (m *MongoStore) CreateTechMessage(ctx context.Context, record *models.TechMessageRecord) error {
	if m.client == nil {
		return ErrNotConnected
	}

	if _, err := m.messages().InsertOne(ctx, newMongoTechMessage(record)); err != nil {
		return fmt.Errorf("failed to insert tech message: %w", err)
	}
	return nil
}

func (m *MongoStore) UpdateTechMessage(ctx context.Context, record *models.TechMessageRecord) error {
	if m.client == nil {
		return ErrNotConnected
	}

	result, err := m.messages().ReplaceOne(ctx, bson.M{"_id": record.ID}, newMongoTechMessage(record))
	if err != nil {
		return fmt.Errorf("failed to update tech message: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStore) DeleteTechMessage(ctx context.Context, id string) error {
	if m.client == nil {
		return ErrNotConnected
	}

	result, err := m.messages().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete tech message: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ===== [DEVICES] =====

func (m *MongoStore) ListDevices(ctx context.Context) ([]*models.Device, error) {
	if m.client == nil {
		return nil, ErrNotConnected
	}

	cursor, err := m.devices().Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer cursor.Close(ctx)

	var devices []*models.Device
	for cursor.Next(ctx) {
		var doc mongoDevice
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode device: %w", err)
		}
		devices = append(devices, doc.toModel())
	}
	return devices, cursor.Err()
}

func (m *MongoStore) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	if m.client == nil {
		return nil, ErrNotConnected
	}

	var doc mongoDevice
	err := m.devices().FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return doc.toModel(), nil
}

func (m *MongoStore) CreateDevice(ctx context.Context, device *models.Device) error {
	if m.client == nil {
		return ErrNotConnected
	}

	if _, err := m.devices().InsertOne(ctx, newMongoDevice(device)); err != nil {
		return fmt.Errorf("failed to insert device: %w", err)
	}
	return nil
}

func (m *MongoStore) UpdateDevice(ctx context.Context, device *models.Device) error {
	if m.client == nil {
		return ErrNotConnected
	}

	result, err := m.devices().ReplaceOne(ctx, bson.M{"_id": device.ID}, newMongoDevice(device))
	if err != nil {
		return fmt.Errorf("failed to update device: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStore) DeleteDevice(ctx context.Context, id string) error {
	if m.client == nil {
		return ErrNotConnected
	}

	result, err := m.devices().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ===== [USERS] =====

func (m *MongoStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.client == nil {
		return nil, ErrNotConnected
	}

	var doc mongoUser
	err := m.users().FindOne(ctx, bson.M{"username": username}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &models.User{
		ID:           doc.ID,
		Username:     doc.Username,
		PasswordHash: doc.PasswordHash,
		Admin:        doc.Admin,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

func (m *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	if m.client == nil {
		return ErrNotConnected
	}

	doc := mongoUser{
		ID:           user.ID,
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		Admin:        user.Admin,
		CreatedAt:    user.CreatedAt,
	}
	if _, err := m.users().InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// ===== [IMPORT ROWS] =====

func (m *MongoStore) InsertImportRows(ctx context.Context, rows []*models.ImportRow) error {
	if m.client == nil {
		return ErrNotConnected
	}
	if len(rows) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, mongoImportRow{
			ID:        row.ID,
			Source:    row.Source,
			Sheet:     row.Sheet,
			RowNumber: row.RowNumber,
			Columns:   row.Columns,
			RowText:   strings.ToLower(strings.Join(row.Columns, " | ")),
			CreatedAt: row.CreatedAt,
		})
	}

	if _, err := m.importRows().InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert import rows: %w", err)
	}
	return nil
}

func (m *MongoStore) SearchImportRows(ctx context.Context, query string, limit int) ([]*models.ImportRow, error) {
	if m.client == nil {
		return nil, ErrNotConnected
	}
	if limit <= 0 {
		limit = 100
	}

	filter := bson.M{"row_text": primitive.Regex{
		Pattern: regexp.QuoteMeta(strings.ToLower(query)),
	}}
	cursor, err := m.importRows().Find(ctx, filter,
		options.Find().
			SetSort(bson.D{{Key: "source", Value: 1}, {Key: "sheet", Value: 1}, {Key: "row_number", Value: 1}}).
			SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to search import rows: %w", err)
	}
	defer cursor.Close(ctx)

	var results []*models.ImportRow
	for cursor.Next(ctx) {
		var doc mongoImportRow
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode import row: %w", err)
		}
		results = append(results, &models.ImportRow{
			ID:        doc.ID,
			Source:    doc.Source,
			Sheet:     doc.Sheet,
			RowNumber: doc.RowNumber,
			Columns:   doc.Columns,
			CreatedAt: doc.CreatedAt,
		})
	}
	return results, cursor.Err()
}

// ===== [DOCUMENT MAPPING] =====

func newMongoTechMessage(record *models.TechMessageRecord) mongoTechMessage {
	tiers := make([]mongoTier, 0, len(record.ActionTiers))
	for _, tier := range record.ActionTiers {
		tiers = append(tiers, mongoTier{
			ID:            tier.ID,
			OccurrenceMin: tier.OccurrenceMin,
			OccurrenceMax: tier.OccurrenceMax,
			ActionText:    tier.ActionText,
			Priority:      tier.Priority,
		})
	}
	return mongoTechMessage{
		ID:          record.ID,
		Category:    record.Category,
		Severity:    string(record.Severity),
		Pattern:     record.Pattern,
		Description: record.Description,
		ActionTiers: tiers,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

func (d mongoTechMessage) toModel() *models.TechMessageRecord {
	record := &models.TechMessageRecord{
		ID:          d.ID,
		Category:    d.Category,
		Severity:    models.Severity(d.Severity),
		Pattern:     d.Pattern,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	for _, tier := range d.ActionTiers {
		record.ActionTiers = append(record.ActionTiers, models.ActionTier{
			ID:            tier.ID,
			OccurrenceMin: tier.OccurrenceMin,
			OccurrenceMax: tier.OccurrenceMax,
			ActionText:    tier.ActionText,
			Priority:      tier.Priority,
		})
	}
	return record
}

func newMongoDevice(device *models.Device) mongoDevice {
	return mongoDevice{
		ID:           device.ID,
		Name:         device.Name,
		SerialNumber: device.SerialNumber,
		DeviceType:   device.DeviceType,
		Location:     device.Location,
		IPAddress:    device.IPAddress,
		Status:       string(device.Status),
		Metadata:     device.Metadata,
		CreatedAt:    device.CreatedAt,
		UpdatedAt:    device.UpdatedAt,
	}
}

func (d mongoDevice) toModel() *models.Device {
	return &models.Device{
		ID:           d.ID,
		Name:         d.Name,
		SerialNumber: d.SerialNumber,
		DeviceType:   d.DeviceType,
		Location:     d.Location,
		IPAddress:    d.IPAddress,
		Status:       models.DeviceStatus(d.Status),
		Metadata:     d.Metadata,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}
