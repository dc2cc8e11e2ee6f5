package services

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
	"testing"
	"time"

	"github.com/petconnect/petconnect-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// every pooled connection to :memory: would open its own empty database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// testFixture is a marketplace with one partner business and two customers
type testFixture struct {
	db          *gorm.DB
	customer    models.User
	other       models.User
	partnerUser models.User
	partner     models.Partner
	pet         models.Pet
}

func newTestFixture(t *testing.T) *testFixture {
	db := setupServiceTestDB(t)
	f := &testFixture{db: db}

	f.customer = models.User{Auth0ID: "auth0|customer", Name: "Lucía", Email: "lucia@example.com", Role: models.RoleCustomer}
	require.NoError(t, db.Create(&f.customer).Error)

	f.other = models.User{Auth0ID: "auth0|other", Name: "Mateo", Email: "mateo@example.com", Role: models.RoleCustomer}
	require.NoError(t, db.Create(&f.other).Error)

	f.partnerUser = models.User{Auth0ID: "auth0|partner", Name: "Vet Centro", Email: "vet@example.com", Role: models.RolePartner}
	require.NoError(t, db.Create(&f.partnerUser).Error)

	f.partner = models.Partner{OwnerID: f.partnerUser.ID, Name: "Veterinaria Centro", Category: models.CategoryVeterinary}
	require.NoError(t, db.Create(&f.partner).Error)

	weight := 12.5
	f.pet = models.Pet{OwnerID: f.customer.ID, Name: "Toby", Species: "dog", Breed: "beagle", WeightKg: &weight}
	require.NoError(t, db.Create(&f.pet).Error)

	return f
}

// secondPartner adds another business with its own owner
func (f *testFixture) secondPartner(t *testing.T) (models.User, models.Partner) {
	owner := models.User{Auth0ID: "auth0|groomer", Name: "Peluquería", Email: "groomer@example.com", Role: models.RolePartner}
	require.NoError(t, f.db.Create(&owner).Error)
	partner := models.Partner{OwnerID: owner.ID, Name: "Peluquería Canina", Category: models.CategoryGrooming}
	require.NoError(t, f.db.Create(&partner).Error)
	return owner, partner
}

// newTestDispatcher wires a dispatcher the way main does, with a mock broker
func newTestDispatcher(db *gorm.DB, maxAttempts int) (*Dispatcher, *MockPublisher) {
	pub := NewMockPublisher()
	d := NewDispatcher(db, maxAttempts)
	RegisterHandlers(d, pub, NewAlertScheduler(db))
	return d, pub
}

func outboxEvents(t *testing.T, db *gorm.DB, kind string) []models.OutboxEvent {
	var events []models.OutboxEvent
	require.NoError(t, db.Where("kind = ?", kind).Order("created_at ASC").Find(&events).Error)
	return events
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func daysFromNow(days int) *time.Time {
	d := time.Now().AddDate(0, 0, days)
	return &d
}

// createTestFileHeader builds a multipart.FileHeader as gin would hand it over
func createTestFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="document"; filename="`+filename+`"`)
	h.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(int64(len(content)) + 1024)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	require.Len(t, form.File["document"], 1)
	return form.File["document"][0]
}
