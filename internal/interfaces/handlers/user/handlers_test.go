package user

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	usersvc "wheelhub-backend/internal/application/user"
	"wheelhub-backend/internal/domain"
	"wheelhub-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupUserTest(t *testing.T) (*Handlers, *redis.Client, *gorm.DB) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}))
	return &Handlers{Service: &usersvc.Service{DB: db}}, rdb, db
}

func newApp(h *Handlers, rdb *redis.Client) *fiber.App {
	app := fiber.New()
	app.Use(middleware.SessionStore(rdb))
	app.Use(middleware.RequireAuth(nil))
	app.Get("/profile", h.GetProfile)
	app.Put("/profile", h.UpdateProfile)
	return app
}

func seedSession(t *testing.T, rdb *redis.Client, sid string, u domain.User) string {
	t.Helper()
	b, _ := json.Marshal(map[string]interface{}{"user": map[string]interface{}{
		"user_id": u.UserID.String(), "name": u.Name, "email": u.Email,
	}})
	require.NoError(t, rdb.Set(context.Background(), middleware.SessionRedisPrefix+sid, b, 0).Err())
	return middleware.SessionCookieName + "=s:" + sid
}

func body(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	b, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestProfile_RequiresAuth(t *testing.T) {
	h, rdb, _ := setupUserTest(t)
	app := newApp(h, rdb)

	resp, err := app.Test(httptest.NewRequest("GET", "/profile", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestGetProfile(t *testing.T) {
	h, rdb, db := setupUserTest(t)
	u := domain.User{UserID: uuid.New(), Name: "Avery", Email: "avery@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&u).Error)
	app := newApp(h, rdb)

	req := httptest.NewRequest("GET", "/profile", nil)
	req.Header.Set("Cookie", seedSession(t, rdb, "s1", u))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	user := body(t, resp)["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, "Avery", user["name"])
	assert.NotContains(t, user, "password_hash")
}

func TestGetProfile_DeletedAccount(t *testing.T) {
	h, rdb, _ := setupUserTest(t)
	app := newApp(h, rdb)

	req := httptest.NewRequest("GET", "/profile", nil)
	req.Header.Set("Cookie", seedSession(t, rdb, "s1", domain.User{UserID: uuid.New(), Name: "Gone"}))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestUpdateProfile_RefreshesSession(t *testing.T) {
	h, rdb, db := setupUserTest(t)
	u := domain.User{UserID: uuid.New(), Name: "Avery", Email: "avery@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&u).Error)
	app := newApp(h, rdb)
	cookie := seedSession(t, rdb, "s1", u)

	payload, _ := json.Marshal(map[string]string{"name": "Avery Q", "email": "AQ@Example.com"})
	req := httptest.NewRequest("PUT", "/profile", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", cookie)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stored domain.User
	require.NoError(t, db.First(&stored, "user_id = ?", u.UserID).Error)
	assert.Equal(t, "Avery Q", stored.Name)
	assert.Equal(t, "aq@example.com", stored.Email)

	raw, err := rdb.Get(context.Background(), middleware.SessionRedisPrefix+"s1").Result()
	require.NoError(t, err)
	assert.Contains(t, raw, "Avery Q")
}

func TestUpdateProfile_Conflicts(t *testing.T) {
	h, rdb, db := setupUserTest(t)
	a := domain.User{UserID: uuid.New(), Name: "Avery", Email: "avery@example.com", PasswordHash: "x"}
	b := domain.User{UserID: uuid.New(), Name: "Blake", Email: "blake@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&a).Error)
	require.NoError(t, db.Create(&b).Error)
	app := newApp(h, rdb)
	cookie := seedSession(t, rdb, "s1", a)

	cases := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{"name taken", map[string]string{"name": "Blake", "email": "avery@example.com"}, fiber.StatusConflict},
		{"email taken", map[string]string{"name": "Avery", "email": "blake@example.com"}, fiber.StatusConflict},
		{"bad email", map[string]string{"name": "Avery", "email": "nope"}, fiber.StatusBadRequest},
		{"blank name", map[string]string{"name": "  ", "email": "avery@example.com"}, fiber.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload, _ := json.Marshal(tc.body)
			req := httptest.NewRequest("PUT", "/profile", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Cookie", cookie)
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
