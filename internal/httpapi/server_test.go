package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fleetdesk/fleetdesk/internal/engine"
	"github.com/fleetdesk/fleetdesk/internal/httpapi"
	"github.com/fleetdesk/fleetdesk/internal/models"
	"github.com/fleetdesk/fleetdesk/internal/store"
)

// fakeStore keeps everything in memory behind the store interface.
type fakeStore struct {
	records []*models.TechMessageRecord
	devices map[string]*models.Device
	users   map[string]*models.User
	rows    []*models.ImportRow
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		devices: make(map[string]*models.Device),
		users:   make(map[string]*models.User),
	}
}

func (f *fakeStore) Connect(ctx context.Context) error { return nil }
func (f *fakeStore) Close(ctx context.Context) error   { return nil }
func (f *fakeStore) Ping(ctx context.Context) error    { return nil }

func (f *fakeStore) LoadAllRecords(ctx context.Context) ([]*models.TechMessageRecord, error) {
	return f.records, nil
}

func (f *fakeStore) GetCategoryList(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var categories []string
	for _, record := range f.records {
		if !seen[record.Category] {
			seen[record.Category] = true
			categories = append(categories, record.Category)
		}
	}
	return categories, nil
}

func (f *fakeStore) GetTechMessage(ctx context.Context, id string) (*models.TechMessageRecord, error) {
	for _, record := range f.records {
		if record.ID == id {
			return record, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) CreateTechMessage(ctx context.Context, record *models.TechMessageRecord) error {
	f.records = append(f.records, record)
	return nil
}

func (f *fakeStore) UpdateTechMessage(ctx context.Context, record *models.TechMessageRecord) error {
	for i, existing := range f.records {
		if existing.ID == record.ID {
			f.records[i] = record
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) DeleteTechMessage(ctx context.Context, id string) error {
	for i, record := range f.records {
		if record.ID == id {
			f.records = append(f.records[:i], f.records[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) ListDevices(ctx context.Context) ([]*models.Device, error) {
	var devices []*models.Device
	for _, device := range f.devices {
		devices = append(devices, device)
	}
	return devices, nil
}

func (f *fakeStore) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	if device, ok := f.devices[id]; ok {
		return device, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) CreateDevice(ctx context.Context, device *models.Device) error {
	f.devices[device.ID] = device
	return nil
}

func (f *fakeStore) UpdateDevice(ctx context.Context, device *models.Device) error {
	if _, ok := f.devices[device.ID]; !ok {
		return store.ErrNotFound
	}
	f.devices[device.ID] = device
	return nil
}

func (f *fakeStore) DeleteDevice(ctx context.Context, id string) error {
	if _, ok := f.devices[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.devices, id)
	return nil
}

func (f *fakeStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if user, ok := f.users[username]; ok {
		return user, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) CreateUser(ctx context.Context, user *models.User) error {
	f.users[user.Username] = user
	return nil
}

func (f *fakeStore) InsertImportRows(ctx context.Context, rows []*models.ImportRow) error {
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakeStore) SearchImportRows(ctx context.Context, query string, limit int) ([]*models.ImportRow, error) {
	var results []*models.ImportRow
	for _, row := range f.rows {
		if strings.Contains(strings.ToLower(strings.Join(row.Columns, " | ")), strings.ToLower(query)) {
			results = append(results, row)
		}
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// stubAuth accepts one fixed token.
type stubAuth struct {
	admin bool
}

func (a *stubAuth) Login(ctx context.Context, username string, password string) (*models.Session, error) {
	return &models.Session{Token: "test-token", Username: username, Admin: a.admin,
		ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (a *stubAuth) Logout(ctx context.Context, token string) error { return nil }

func (a *stubAuth) Validate(ctx context.Context, token string) (*models.Session, error) {
	if token != "test-token" {
		return nil, assert.AnError
	}
	return &models.Session{Token: token, Username: "tester", Admin: a.admin}, nil
}

func newTestServer(st store.Store, admin bool) http.Handler {
	server := httpapi.NewServer(st, engine.NewSearcher(), &stubAuth{admin: admin})
	return server.Handler()
}

func doJSON(t *testing.T, handler http.Handler, method string, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Authorization", "Bearer test-token")
	request.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func seedTimeoutRecord(st *fakeStore) *models.TechMessageRecord {
	record := models.NewTechMessageRecord("Database", models.SeverityHigh, "connection timeout")
	record.ActionTiers = []models.ActionTier{
		{ID: "t1", OccurrenceMin: 1, OccurrenceMax: intPtr(5), ActionText: "check server", Priority: 1},
		{ID: "t2", OccurrenceMin: 6, ActionText: "escalate", Priority: 2},
	}
	st.records = append(st.records, record)
	return record
}

func intPtr(v int) *int { return &v }

func TestSearchEndpoint_ExactMatch(t *testing.T) {
	st := newFakeStore()
	seedTimeoutRecord(st)
	handler := newTestServer(st, false)

	recorder := doJSON(t, handler, http.MethodPost, "/api/tech-messages/search",
		models.SearchRequest{SearchText: "connection timeout error on db1", OccurrenceCount: intPtr(7)})

	assert.Equal(t, http.StatusOK, recorder.Code)

	var response models.SearchResponse
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.False(t, response.NoMatches)
	assert.Len(t, response.Matches, 1)
	assert.Equal(t, models.MatchTypeExact, response.Matches[0].MatchType)
	assert.Equal(t, 1.0, response.Matches[0].MatchScore)
	assert.NotNil(t, response.Matches[0].RecommendedAction)
	assert.Equal(t, "escalate", response.Matches[0].RecommendedAction.ActionText)
}

func TestSearchEndpoint_ShortTextIsClientError(t *testing.T) {
	st := newFakeStore()
	seedTimeoutRecord(st)
	handler := newTestServer(st, false)

	recorder := doJSON(t, handler, http.MethodPost, "/api/tech-messages/search",
		models.SearchRequest{SearchText: "db", MatchMode: models.MatchModeFuzzy})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestSearchEndpoint_NoMatchesFlag(t *testing.T) {
	st := newFakeStore()
	seedTimeoutRecord(st)
	handler := newTestServer(st, false)

	recorder := doJSON(t, handler, http.MethodPost, "/api/tech-messages/search",
		models.SearchRequest{SearchText: "zzz nothing here"})

	assert.Equal(t, http.StatusOK, recorder.Code)

	var response models.SearchResponse
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.True(t, response.NoMatches)
	assert.Empty(t, response.Matches)
}

func TestSearchEndpoint_RequiresToken(t *testing.T) {
	st := newFakeStore()
	handler := newTestServer(st, false)

	request := httptest.NewRequest(http.MethodPost, "/api/tech-messages/search",
		strings.NewReader(`{"searchText":"connection timeout"}`))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestCreateTechMessage_RejectsBadPattern(t *testing.T) {
	st := newFakeStore()
	handler := newTestServer(st, true)

	recorder := doJSON(t, handler, http.MethodPost, "/api/tech-messages",
		map[string]interface{}{
			"category": "Database",
			"severity": "HIGH",
			"pattern":  "([unclosed",
		})

	assert.Equal(t, http.StatusBadRequest, recorder.Code,
		"Uncompilable patterns are rejected at write time")
	assert.Empty(t, st.records)
}

func TestCreateTechMessage_RequiresAdmin(t *testing.T) {
	st := newFakeStore()
	handler := newTestServer(st, false)

	recorder := doJSON(t, handler, http.MethodPost, "/api/tech-messages",
		map[string]interface{}{
			"category": "Database",
			"severity": "HIGH",
			"pattern":  "timeout",
		})

	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestCreateTechMessage_AssignsIDs(t *testing.T) {
	st := newFakeStore()
	handler := newTestServer(st, true)

	recorder := doJSON(t, handler, http.MethodPost, "/api/tech-messages",
		map[string]interface{}{
			"category": "Database",
			"severity": "HIGH",
			"pattern":  "timeout",
			"action_tiers": []map[string]interface{}{
				{"occurrence_min": 1, "action_text": "check server", "priority": 1},
			},
		})

	assert.Equal(t, http.StatusCreated, recorder.Code)
	assert.Len(t, st.records, 1)
	assert.NotEmpty(t, st.records[0].ID)
	assert.NotEmpty(t, st.records[0].ActionTiers[0].ID)
}

func TestDeviceCRUD(t *testing.T) {
	st := newFakeStore()
	handler := newTestServer(st, false)

	recorder := doJSON(t, handler, http.MethodPost, "/api/devices",
		map[string]interface{}{"name": "core-switch-1", "location": "rack 4"})
	assert.Equal(t, http.StatusCreated, recorder.Code)

	var created models.Device
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)

	recorder = doJSON(t, handler, http.MethodGet, "/api/devices/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = doJSON(t, handler, http.MethodDelete, "/api/devices/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = doJSON(t, handler, http.MethodGet, "/api/devices/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestCategoriesEndpoint(t *testing.T) {
	st := newFakeStore()
	seedTimeoutRecord(st)
	handler := newTestServer(st, false)

	recorder := doJSON(t, handler, http.MethodGet, "/api/tech-messages/categories", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	var categories []string
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &categories))
	assert.Equal(t, []string{"Database"}, categories)
}

func TestImportSearch_RequiresQuery(t *testing.T) {
	st := newFakeStore()
	handler := newTestServer(st, false)

	recorder := doJSON(t, handler, http.MethodGet, "/api/imports/search", nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
