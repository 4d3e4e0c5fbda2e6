package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	healthsvc "wheelhub-backend/internal/application/health"
	"wheelhub-backend/internal/config"
	"wheelhub-backend/internal/infrastructure/database"
	"wheelhub-backend/internal/infrastructure/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memBlobs struct{}

func (memBlobs) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	return "https://cdn.test/" + key, nil
}

func (memBlobs) SignUpload(ctx context.Context, key string) (string, string, error) {
	return "https://cdn.test/upload/" + key, "https://cdn.test/" + key, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                 "test",
		JWTSecret:           "router-test-secret",
		TokenTTL:            time.Hour,
		MinListingImages:    1,
		UploadFailurePolicy: "skipSlot",
		RateLimitPerMinute:  1000,
		HealthAdminKey:      "k",
	}
}

func setupApp(t *testing.T) *fiber.App {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	comps := &Components{
		DB:       db,
		Rdb:      rdb,
		Listings: store.NewGormListingStore(db),
		Blobs:    memBlobs{},
		Pingers:  map[string]healthsvc.Pinger{"postgres": healthsvc.GormPinger{DB: db}},
	}
	t.Cleanup(func() {
		comps.Close(context.Background())
		mr.Close()
	})

	app, err := NewApp(testConfig(), comps)
	require.NoError(t, err)
	return app
}

func send(t *testing.T, app *fiber.App, method, path string, body interface{}, header map[string]string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	_ = json.Unmarshal(b, &out)
	return resp, out
}

func TestNewApp_RejectsUnknownUploadPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.UploadFailurePolicy = "retryForever"
	_, err := NewApp(cfg, &Components{})
	assert.Error(t, err)
}

func TestRoutes_EndToEnd(t *testing.T) {
	app := setupApp(t)

	resp, out := send(t, app, "POST", "/api/v1/auth/register",
		map[string]string{"name": "Rae", "email": "rae@example.com", "password": "wheels-4-all"}, nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-Id"))
	token, _ := out["data"].(map[string]interface{})["token"].(string)
	require.NotEmpty(t, token)
	bearer := map[string]string{"Authorization": "Bearer " + token}

	resp, out = send(t, app, "GET", "/api/v1/auth/me", nil, bearer)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	me := out["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, "Rae", me["name"])
	assert.Equal(t, "rae@example.com", me["email"])

	resp, _ = send(t, app, "GET", "/api/v1/auth/me", nil, map[string]string{"Authorization": "Bearer " + token + "x"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	listing := map[string]interface{}{
		"type": "sale", "name": "Estate Car", "manufacturer": "Skoda", "model": "Octavia",
		"year": 2019, "mileage": 61000, "fuelType": "Diesel", "transmission": "Manual",
		"description": "Full history.", "regularPrice": 11500,
		"images": []string{"https://cdn.test/a.jpg"},
	}
	resp, _ = send(t, app, "POST", "/api/v1/listings", listing, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, out = send(t, app, "POST", "/api/v1/listings", listing, bearer)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	created := out["data"].(map[string]interface{})["listing"].(map[string]interface{})
	id := created["id"].(string)
	assert.NotContains(t, created, "discountedPrice")

	resp, out = send(t, app, "GET", "/api/v1/listings/search?manufacturer=Sko", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	found := out["data"].(map[string]interface{})["listings"].([]interface{})
	require.Len(t, found, 1)

	resp, _ = send(t, app, "GET", "/api/v1/listings/"+id+"/edit", nil, bearer)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, out = send(t, app, "POST", "/api/v1/uploads/listing-image", map[string]string{"file_name": "rear.jpg"}, bearer)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	path := out["data"].(map[string]interface{})["path"].(string)
	assert.Contains(t, path, "-rear.jpg-")

	resp, out = send(t, app, "GET", "/api/v1/users/profile", nil, bearer)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Rae", out["data"].(map[string]interface{})["user"].(map[string]interface{})["name"])

	resp, _ = send(t, app, "DELETE", "/api/v1/listings/"+id, nil, bearer)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, out = send(t, app, "GET", "/health/json", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "wheelhub-api", out["service"])
	traffic := out["traffic"].(map[string]interface{})
	assert.NotZero(t, traffic["totalRequests"])
	byArea := traffic["byArea"].(map[string]interface{})
	assert.NotZero(t, byArea["listings"])
	assert.NotZero(t, byArea["auth"])
}
