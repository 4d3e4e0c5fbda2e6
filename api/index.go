package handler

import (
	"context"
	"net/http"
	"sync"

	"wheelhub-backend/bootstrap"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog/log"
)

var (
	once    sync.Once
	serve   http.HandlerFunc
	bootErr error
)

// Handler is the serverless entry point; the platform rewrites every path to it.
// The app is built on the first invocation and reused while the instance stays warm.
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		app, _, _, err := bootstrap.New(context.Background())
		if err != nil {
			bootErr = err
			log.Error().Err(err).Msg("serverless: app bootstrap failed")
			return
		}
		serve = adaptor.FiberApp(app)
	})
	if bootErr != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"error","error":{"message":"Service unavailable","statusCode":503,"details":{}}}`))
		return
	}
	r.RequestURI = r.URL.String()
	serve(w, r)
}
