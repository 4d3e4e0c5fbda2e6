package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Redis keys for the request counters read by the health endpoints.
const (
	KeyReqTotal  = "health:global:req_total"
	KeyReqErrors = "health:global:req_errors"
	KeyResTime   = "health:global:res_time_total"
	KeyResCount  = "health:global:res_count"
	KeyStartTime = "health:global:start_time"
	KeyLastReq   = "health:global:last_request"
	KeyErrorLog  = "health:global:error_log"
	// KeyReqByArea is a hash of API area (listings, auth, users, uploads) to request count.
	KeyReqByArea = "health:global:req_by_area"

	ErrorLogSize = 50
	apiPrefix    = "/api/v1/"
)

// HealthKeys lists every counter key; a stats reset deletes all of them.
var HealthKeys = []string{KeyReqTotal, KeyReqErrors, KeyResTime, KeyResCount, KeyStartTime, KeyLastReq, KeyErrorLog, KeyReqByArea}

// RequestArea is the first path segment under /api/v1, or "other".
func RequestArea(path string) string {
	if !strings.HasPrefix(path, apiPrefix) {
		return "other"
	}
	rest := strings.TrimPrefix(path, apiPrefix)
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return "other"
	}
	return rest
}

// HealthMarker counts requests per API area in Redis and pushes server errors onto a capped log.
// Health probes and the favicon are not counted.
func HealthMarker(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/" || strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/favicon") {
			return c.Next()
		}

		start := time.Now()
		method, url := c.Method(), c.OriginalURL()
		last, _ := json.Marshal(map[string]interface{}{"time": start, "ip": c.IP(), "path": url, "method": method})
		ctx := context.Background()
		_, _ = rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, KeyLastReq, last, 0)
			p.Incr(ctx, KeyReqTotal)
			p.HIncrBy(ctx, KeyReqByArea, RequestArea(path), 1)
			return nil
		})

		err := c.Next()

		status := c.Response().StatusCode()
		failed := status >= fiber.StatusInternalServerError || serverError(err)
		_, _ = rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
			p.Incr(ctx, KeyResCount)
			p.IncrByFloat(ctx, KeyResTime, float64(time.Since(start).Milliseconds()))
			if !failed {
				return nil
			}
			entry := map[string]interface{}{
				"time":     start.UTC(),
				"path":     url,
				"method":   method,
				"status":   status,
				"trace_id": GetTraceID(c),
			}
			if err != nil {
				entry["message"] = err.Error()
			}
			eb, _ := json.Marshal(entry)
			p.Incr(ctx, KeyReqErrors)
			p.LPush(ctx, KeyErrorLog, eb)
			p.LTrim(ctx, KeyErrorLog, 0, ErrorLogSize-1)
			return nil
		})
		return err
	}
}

func serverError(err error) bool {
	if err == nil {
		return false
	}
	var fe *fiber.Error
	return !errors.As(err, &fe) || fe.Code >= fiber.StatusInternalServerError
}
