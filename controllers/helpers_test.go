package controllers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/petconnect/petconnect-api/config"
	"github.com/petconnect/petconnect-api/middleware"
	"github.com/petconnect/petconnect-api/models"
	"github.com/petconnect/petconnect-api/services"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB opens a migrated in-memory database
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// each pooled connection to :memory: would see its own empty database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// mockAuthMiddleware sets the same context keys as middleware.EnsureValidToken
func mockAuthMiddleware(auth0ID, role, accessToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", auth0ID)
		c.Set("access_token", accessToken)
		c.Set("validated_claims", &validator.ValidatedClaims{
			CustomClaims: &middleware.CustomClaims{Role: role},
		})
		c.Next()
	}
}

// marketplace is a seeded database with one partner business and two customers
type marketplace struct {
	db          *gorm.DB
	customer    models.User
	other       models.User
	partnerUser models.User
	partner     models.Partner
	pet         models.Pet
}

func seedMarketplace(t *testing.T) *marketplace {
	db := setupTestDB(t)
	config.SetDB(db)
	services.SetDispatcher(nil)
	services.SetDocumentService(nil)

	m := &marketplace{db: db}
	m.customer = models.User{Auth0ID: "auth0|customer", Name: "Lucía", Email: "lucia@example.com", Role: models.RoleCustomer}
	require.NoError(t, db.Create(&m.customer).Error)
	m.other = models.User{Auth0ID: "auth0|other", Name: "Mateo", Email: "mateo@example.com", Role: models.RoleCustomer}
	require.NoError(t, db.Create(&m.other).Error)
	m.partnerUser = models.User{Auth0ID: "auth0|partner", Name: "Vet Centro", Email: "vet@example.com", Role: models.RolePartner}
	require.NoError(t, db.Create(&m.partnerUser).Error)

	m.partner = models.Partner{OwnerID: m.partnerUser.ID, Name: "Veterinaria Centro", Category: models.CategoryVeterinary}
	require.NoError(t, db.Create(&m.partner).Error)
	m.pet = models.Pet{OwnerID: m.customer.ID, Name: "Toby", Species: "dog", Breed: "beagle"}
	require.NoError(t, db.Create(&m.pet).Error)
	return m
}

// performRequest sends a JSON request through a router with the caller authenticated
func performRequest(t *testing.T, method, route, path string, user models.User, handler gin.HandlerFunc, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	router := setupTestRouter()
	router.Handle(method, route, mockAuthMiddleware(user.Auth0ID, user.Role, "mock-token"), handler)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "body: %s", w.Body.String())
	return w, response
}

func errorCode(response map[string]interface{}) string {
	errData, ok := response["error"].(map[string]interface{})
	if !ok {
		return ""
	}
	code, _ := errData["code"].(string)
	return code
}

