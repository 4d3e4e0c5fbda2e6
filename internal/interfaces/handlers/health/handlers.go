package health

import (
	"encoding/json"
	"strconv"
	"time"

	healthsvc "wheelhub-backend/internal/application/health"
	"wheelhub-backend/internal/middleware"
	"wheelhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const ServiceName = "wheelhub-api"

type Handlers struct {
	Rdb *redis.Client
	// Deps are pinged on every /health/json, keyed by the name shown in the report.
	Deps           map[string]healthsvc.Pinger
	HealthAdminKey string
}

// Reset GET /reset?key=...: wipe the counters and restart the uptime clock.
func (h *Handlers) Reset(c *fiber.Ctx) error {
	if key := c.Query("key"); key == "" || key != h.HealthAdminKey {
		return response.Forbidden(c, "Unauthorized")
	}
	ctx := c.Context()
	_, err := h.Rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, middleware.HealthKeys...)
		p.Set(ctx, middleware.KeyStartTime, strconv.FormatInt(time.Now().UnixMilli(), 10), 0)
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("health/reset: redis")
		return response.Internal(c)
	}
	return response.Success(c, "Stats reset successfully", fiber.Map{"success": true}, nil)
}

// JSON GET /health/json: 200 when every dependency answers, 503 otherwise.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	result := healthsvc.CollectHealth(c.Context(), h.Rdb, h.Deps)
	status := fiber.StatusOK
	if result.Status != "ok" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{
		"service":      ServiceName,
		"status":       result.Status,
		"runtime":      result.Runtime,
		"traffic":      result.Traffic,
		"dependencies": result.Dependencies,
	})
}

// Errors GET /health/errors?limit=n: newest server errors first, at most ErrorLogSize.
func (h *Handlers) Errors(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", middleware.ErrorLogSize)
	if limit < 1 || limit > middleware.ErrorLogSize {
		limit = middleware.ErrorLogSize
	}
	entries, err := h.Rdb.LRange(c.Context(), middleware.KeyErrorLog, 0, int64(limit-1)).Result()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON([]interface{}{})
	}
	out := make([]map[string]interface{}, 0, len(entries))
	for _, s := range entries {
		var m map[string]interface{}
		if json.Unmarshal([]byte(s), &m) == nil {
			out = append(out, m)
		}
	}
	return c.JSON(out)
}
