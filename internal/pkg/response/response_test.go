package response

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, h fiber.Handler) (int, map[string]interface{}) {
	t.Helper()
	app := fiber.New()
	app.Get("/", h)
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestSuccess_DefaultsMetadata(t *testing.T) {
	code, body := call(t, func(c *fiber.Ctx) error {
		return Success(c, "ok", fiber.Map{"n": 1}, nil)
	})
	assert.Equal(t, 200, code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, map[string]interface{}{}, body["metadata"])
}

func TestSuccess_PageMetaKeepsEmptyCursor(t *testing.T) {
	_, body := call(t, func(c *fiber.Ctx) error {
		return Success(c, "Listings found", nil, PageMeta{HasMore: false, Count: 3})
	})
	meta := body["metadata"].(map[string]interface{})
	assert.Equal(t, "", meta["nextCursor"])
	assert.Equal(t, false, meta["hasMore"])
	assert.Equal(t, float64(3), meta["count"])
}

func TestInvalid_CarriesFields(t *testing.T) {
	code, body := call(t, func(c *fiber.Ctx) error {
		return Invalid(c, "Please fix the highlighted fields.", map[string]string{"year": "Year is required."})
	})
	assert.Equal(t, 400, code)
	e := body["error"].(map[string]interface{})
	assert.Equal(t, float64(400), e["statusCode"])
	assert.Equal(t, map[string]interface{}{"year": "Year is required."}, e["details"])
}

func TestInternal_HidesCause(t *testing.T) {
	code, body := call(t, Internal)
	assert.Equal(t, 500, code)
	assert.Equal(t, "Internal Server Error", body["error"].(map[string]interface{})["message"])
}
