package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/petconnect/petconnect-api/config"
	"github.com/petconnect/petconnect-api/models"
	"github.com/petconnect/petconnect-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withAlertDispatcher delivers outbox events immediately so saved records schedule their alerts
func withAlertDispatcher(t *testing.T, m *marketplace) {
	dispatcher := services.NewDispatcher(m.db, 3)
	services.RegisterHandlers(dispatcher, services.NewMockPublisher(), services.NewAlertScheduler(m.db))
	services.SetDispatcher(dispatcher)
	t.Cleanup(func() { services.SetDispatcher(nil) })
}

func createRecordViaAPI(t *testing.T, m *marketplace, body map[string]interface{}) map[string]interface{} {
	w, response := performRequest(t, http.MethodPost, "/api/v1/pets/:id/health-records", fmt.Sprintf("/api/v1/pets/%d/health-records", m.pet.ID),
		m.customer, CreateHealthRecord, body)
	require.Equal(t, http.StatusCreated, w.Code, "body: %v", response)
	return response["data"].(map[string]interface{})
}

// performUpload posts a multipart form with one "document" file
func performUpload(t *testing.T, route, path string, user models.User, handler gin.HandlerFunc, filename string, content []byte, fields map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("document", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	router := setupTestRouter()
	router.POST(route, mockAuthMiddleware(user.Auth0ID, user.Role, "mock-token"), handler)

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "body: %s", w.Body.String())
	return w, response
}

func TestCreateHealthRecord_SchedulesAlert(t *testing.T) {
	m := seedMarketplace(t)
	withAlertDispatcher(t, m)

	record := createRecordViaAPI(t, m, map[string]interface{}{
		"type":          "vaccine",
		"name":          "DHPP",
		"applied_at":    time.Now().Format(time.RFC3339),
		"next_due_date": time.Now().AddDate(0, 0, 30).Format(time.RFC3339),
	})
	assert.Equal(t, "DHPP", record["name"])

	w, response := performRequest(t, http.MethodGet, "/api/v1/pets/:id/alerts", fmt.Sprintf("/api/v1/pets/%d/alerts", m.pet.ID),
		m.customer, ListAlerts, nil)
	require.Equal(t, http.StatusOK, w.Code)
	alerts := response["data"].([]interface{})
	require.Len(t, alerts, 1)
	alert := alerts[0].(map[string]interface{})
	assert.Equal(t, "vaccine", alert["alert_type"])
	assert.Equal(t, "high", alert["priority"])
	assert.Equal(t, "pending", alert["status"])
	assert.Equal(t, "Próxima vacuna: DHPP", alert["title"])
}

func TestCreateHealthRecord_NoAlertInsideLeadWindow(t *testing.T) {
	m := seedMarketplace(t)
	withAlertDispatcher(t, m)

	createRecordViaAPI(t, m, map[string]interface{}{
		"type":          "deworming",
		"name":          "Drontal",
		"next_due_date": time.Now().AddDate(0, 0, 3).Format(time.RFC3339),
	})

	var count int64
	m.db.Model(&models.MedicalAlert{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreateHealthRecord_Validation(t *testing.T) {
	m := seedMarketplace(t)
	route := "/api/v1/pets/:id/health-records"
	path := fmt.Sprintf("/api/v1/pets/%d/health-records", m.pet.ID)

	tests := []struct {
		name         string
		user         models.User
		path         string
		body         map[string]interface{}
		expectedCode int
		errorCode    string
	}{
		{"unknown type", m.customer, path, map[string]interface{}{"type": "surgery", "name": "X"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing name", m.customer, path, map[string]interface{}{"type": "vaccine"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{
			"next due before applied", m.customer, path,
			map[string]interface{}{
				"type":          "vaccine",
				"name":          "Rabia",
				"applied_at":    time.Now().Format(time.RFC3339),
				"next_due_date": time.Now().AddDate(0, 0, -1).Format(time.RFC3339),
			},
			http.StatusBadRequest, "VALIDATION_ERROR",
		},
		{"someone else's pet", m.other, path, map[string]interface{}{"type": "vaccine", "name": "Rabia"}, http.StatusForbidden, "FORBIDDEN"},
		{"unknown pet", m.customer, "/api/v1/pets/9999/health-records", map[string]interface{}{"type": "vaccine", "name": "Rabia"}, http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, response := performRequest(t, http.MethodPost, route, tt.path, tt.user, CreateHealthRecord, tt.body)
			assert.Equal(t, tt.expectedCode, w.Code)
			assert.Equal(t, tt.errorCode, errorCode(response))
		})
	}
}

func TestListHealthRecords_FilterByType(t *testing.T) {
	m := seedMarketplace(t)
	createRecordViaAPI(t, m, map[string]interface{}{"type": "vaccine", "name": "Rabia"})
	createRecordViaAPI(t, m, map[string]interface{}{"type": "weight", "name": "Control", "weight_kg": 12.4})

	w, response := performRequest(t, http.MethodGet, "/api/v1/pets/:id/health-records", fmt.Sprintf("/api/v1/pets/%d/health-records?type=weight", m.pet.ID),
		m.customer, ListHealthRecords, nil)

	require.Equal(t, http.StatusOK, w.Code)
	records := response["data"].([]interface{})
	require.Len(t, records, 1)
	assert.Equal(t, "Control", records[0].(map[string]interface{})["name"])
}

func TestAlertQueueThroughAPI(t *testing.T) {
	m := seedMarketplace(t)
	withAlertDispatcher(t, m)
	for i, name := range []string{"DHPP", "Leptospirosis"} {
		createRecordViaAPI(t, m, map[string]interface{}{
			"type":          "vaccine",
			"name":          name,
			"next_due_date": time.Now().AddDate(0, 0, 20+10*i).Format(time.RFC3339),
		})
	}
	nextRoute := "/api/v1/pets/:id/alerts/next"
	nextPath := fmt.Sprintf("/api/v1/pets/%d/alerts/next", m.pet.ID)

	w, response := performRequest(t, http.MethodGet, nextRoute, nextPath, m.customer, GetNextAlert, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cursor := response["data"].(map[string]interface{})
	assert.Equal(t, float64(2), cursor["total"])
	first := cursor["alert"].(map[string]interface{})
	assert.Equal(t, "Próxima vacuna: DHPP", first["title"])

	// resolving the first alert shortens the queue
	w, response = performRequest(t, http.MethodPatch, "/api/v1/alerts/:id", fmt.Sprintf("/api/v1/alerts/%d", uint(first["id"].(float64))),
		m.customer, ResolveAlert, map[string]interface{}{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code, "body: %v", response)
	resolved := response["data"].(map[string]interface{})
	assert.Equal(t, "completed", resolved["status"])
	assert.NotNil(t, resolved["completed_at"])

	// an index past the end starts over
	w, response = performRequest(t, http.MethodGet, nextRoute, nextPath+"?index=1", m.customer, GetNextAlert, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cursor = response["data"].(map[string]interface{})
	assert.Equal(t, float64(0), cursor["index"])
	assert.Equal(t, float64(1), cursor["total"])
	assert.Equal(t, "Próxima vacuna: Leptospirosis", cursor["alert"].(map[string]interface{})["title"])

	w, response = performRequest(t, http.MethodGet, nextRoute, nextPath+"?index=abc", m.customer, GetNextAlert, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(response))
}

func TestResolveAlert_AdvancesClientQueue(t *testing.T) {
	m := seedMarketplace(t)
	withAlertDispatcher(t, m)
	for i, name := range []string{"DHPP", "Leptospirosis"} {
		createRecordViaAPI(t, m, map[string]interface{}{
			"type":          "vaccine",
			"name":          name,
			"next_due_date": time.Now().AddDate(0, 0, 20+10*i).Format(time.RFC3339),
		})
	}
	var pending []models.MedicalAlert
	require.NoError(t, m.db.Order("due_date ASC").Find(&pending).Error)
	require.Len(t, pending, 2)
	route := "/api/v1/alerts/:id"

	w, response := performRequest(t, http.MethodPatch, route, fmt.Sprintf("/api/v1/alerts/%d", pending[0].ID),
		m.customer, ResolveAlert, map[string]interface{}{"status": "dismissed", "index": 0})
	require.Equal(t, http.StatusOK, w.Code, "body: %v", response)
	assert.Equal(t, "dismissed", response["data"].(map[string]interface{})["status"])
	queue := response["queue"].(map[string]interface{})
	assert.Equal(t, float64(1), queue["index"])
	assert.Equal(t, "Próxima vacuna: Leptospirosis", queue["alert"].(map[string]interface{})["title"])

	w, response = performRequest(t, http.MethodPatch, route, fmt.Sprintf("/api/v1/alerts/%d", pending[1].ID),
		m.customer, ResolveAlert, map[string]interface{}{"status": "completed", "index": 1})
	require.Equal(t, http.StatusOK, w.Code, "body: %v", response)
	queue = response["queue"].(map[string]interface{})
	assert.Equal(t, float64(2), queue["index"])
	assert.Nil(t, queue["alert"])

	w, response = performRequest(t, http.MethodPatch, route, fmt.Sprintf("/api/v1/alerts/%d", pending[1].ID),
		m.customer, ResolveAlert, map[string]interface{}{"status": "completed", "index": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(response))
}

func TestListAlerts_UnknownStatus(t *testing.T) {
	m := seedMarketplace(t)
	route := "/api/v1/pets/:id/alerts"
	path := fmt.Sprintf("/api/v1/pets/%d/alerts", m.pet.ID)

	w, response := performRequest(t, http.MethodGet, route, path+"?status=snoozed", m.customer, ListAlerts, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_STATUS", errorCode(response))

	w, response = performRequest(t, http.MethodGet, route, path+"?status=pending", m.customer, ListAlerts, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, response["data"])
}

func TestResolveAlert_Rejections(t *testing.T) {
	m := seedMarketplace(t)
	withAlertDispatcher(t, m)
	createRecordViaAPI(t, m, map[string]interface{}{
		"type":          "vaccine",
		"name":          "Rabia",
		"next_due_date": time.Now().AddDate(0, 0, 30).Format(time.RFC3339),
	})
	var alert models.MedicalAlert
	require.NoError(t, m.db.First(&alert).Error)
	route := "/api/v1/alerts/:id"
	path := fmt.Sprintf("/api/v1/alerts/%d", alert.ID)

	w, response := performRequest(t, http.MethodPatch, route, path, m.customer, ResolveAlert, map[string]interface{}{"status": "pending"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_STATUS", errorCode(response))

	w, response = performRequest(t, http.MethodPatch, route, path, m.other, ResolveAlert, map[string]interface{}{"status": "dismissed"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(response))

	w, _ = performRequest(t, http.MethodPatch, route, path, m.customer, ResolveAlert, map[string]interface{}{"status": "dismissed"})
	require.Equal(t, http.StatusOK, w.Code)

	w, response = performRequest(t, http.MethodPatch, route, path, m.customer, ResolveAlert, map[string]interface{}{"status": "completed"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_RESOLVED", errorCode(response))
}

func TestUploadHealthDocument(t *testing.T) {
	m := seedMarketplace(t)
	store := services.NewMockObjectStore()
	services.SetDocumentService(services.NewDocumentService(store))
	t.Cleanup(func() { services.SetDocumentService(nil) })

	record := createRecordViaAPI(t, m, map[string]interface{}{"type": "vaccine", "name": "Rabia"})
	route := "/api/v1/health-records/:id/document"
	path := fmt.Sprintf("/api/v1/health-records/%d/document", uint(record["id"].(float64)))

	w, response := performUpload(t, route, path, m.customer, UploadHealthDocument, "carnet.png", []byte("fake png"), nil)

	require.Equal(t, http.StatusOK, w.Code, "body: %v", response)
	data := response["data"].(map[string]interface{})
	key := data["document_s3_key"].(string)
	assert.Contains(t, key, fmt.Sprintf("health-documents/%d/", m.pet.ID))
	assert.True(t, store.Exists(key))
	assert.Contains(t, data["document_url"], "?mock=true")

	w, response = performUpload(t, route, path, m.customer, UploadHealthDocument, "carnet.pdf", []byte("fake pdf"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FILE_FORMAT", errorCode(response))

	w, response = performUpload(t, route, path, m.other, UploadHealthDocument, "carnet.png", []byte("fake png"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(response))
}

func TestUploadHealthDocument_StorageNotConfigured(t *testing.T) {
	m := seedMarketplace(t)
	record := createRecordViaAPI(t, m, map[string]interface{}{"type": "vaccine", "name": "Rabia"})

	w, response := performUpload(t, "/api/v1/health-records/:id/document", fmt.Sprintf("/api/v1/health-records/%d/document", uint(record["id"].(float64))),
		m.customer, UploadHealthDocument, "carnet.png", []byte("fake png"), nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", errorCode(response))
}

func TestScanHealthDocument(t *testing.T) {
	m := seedMarketplace(t)
	vision := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, "vaccine", req["hint"])
		assert.NotEmpty(t, req["image"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"Vacuna DHPP aplicada 2026-03-01 revacunar 2027-03-01"}`))
	}))
	defer vision.Close()
	config.SetConfig(&config.Config{VisionURL: vision.URL})
	t.Cleanup(func() { config.SetConfig(nil) })

	route := "/api/v1/pets/:id/health-records/scan"
	path := fmt.Sprintf("/api/v1/pets/%d/health-records/scan", m.pet.ID)

	w, response := performUpload(t, route, path, m.customer, ScanHealthDocument, "carnet.jpg", []byte("fake jpg"), map[string]string{"type": "vaccine"})

	require.Equal(t, http.StatusOK, w.Code, "body: %v", response)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "vaccine", data["type"])
	assert.Equal(t, "DHPP", data["name"])
	assert.Equal(t, "2026-03-01T00:00:00Z", data["applied_at"])
	assert.Equal(t, "2027-03-01T00:00:00Z", data["next_due_date"])

	w, response = performUpload(t, route, path, m.other, ScanHealthDocument, "carnet.jpg", []byte("fake jpg"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(response))

	w, response = performUpload(t, route, path, m.customer, ScanHealthDocument, "carnet.jpg", []byte("fake jpg"), map[string]string{"type": "allergy"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(response))
}

func TestScanHealthDocument_VisionNotConfigured(t *testing.T) {
	m := seedMarketplace(t)

	w, response := performUpload(t, "/api/v1/pets/:id/health-records/scan", fmt.Sprintf("/api/v1/pets/%d/health-records/scan", m.pet.ID),
		m.customer, ScanHealthDocument, "carnet.png", []byte("fake png"), nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", errorCode(response))
}
