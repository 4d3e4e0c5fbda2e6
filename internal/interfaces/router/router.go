package router

import (
	"context"
	"fmt"

	authsvc "wheelhub-backend/internal/application/auth"
	healthsvc "wheelhub-backend/internal/application/health"
	listsvc "wheelhub-backend/internal/application/listings"
	uploadsvc "wheelhub-backend/internal/application/uploads"
	usersvc "wheelhub-backend/internal/application/user"
	"wheelhub-backend/internal/config"
	"wheelhub-backend/internal/infrastructure/database"
	"wheelhub-backend/internal/infrastructure/store"
	authhandler "wheelhub-backend/internal/interfaces/handlers/auth"
	healthhandler "wheelhub-backend/internal/interfaces/handlers/health"
	listhandler "wheelhub-backend/internal/interfaces/handlers/listings"
	uploadhandler "wheelhub-backend/internal/interfaces/handlers/uploads"
	userhandler "wheelhub-backend/internal/interfaces/handlers/user"
	"wheelhub-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// bodyLimit fits six 2MB images plus the text fields of a multipart submission.
const bodyLimit = 16 * 1024 * 1024

// BlobStore is what a storage backend offers: server-side puts and signed direct uploads.
type BlobStore interface {
	listsvc.BlobStore
	uploadsvc.Signer
}

// Components are the connected backends the HTTP app is built on.
type Components struct {
	DB       *gorm.DB
	Rdb      *redis.Client
	Mongo    *mongo.Client
	Listings listsvc.Store
	Blobs    BlobStore
	Pingers  map[string]healthsvc.Pinger
}

// Close releases the connections held by c.
func (c *Components) Close(ctx context.Context) {
	if c.Mongo != nil {
		if err := c.Mongo.Disconnect(ctx); err != nil {
			log.Error().Err(err).Msg("mongo disconnect")
		}
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if c.Rdb != nil {
		_ = c.Rdb.Close()
	}
}

// CreateApp connects every backend named by cfg and builds the app on top of them.
func CreateApp(ctx context.Context, cfg *config.Config) (*fiber.App, *Components, error) {
	comps, err := Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	app, err := NewApp(cfg, comps)
	if err != nil {
		comps.Close(ctx)
		return nil, nil, err
	}
	return app, comps, nil
}

// Connect opens Redis, the user database, the listing store and the blob store.
func Connect(ctx context.Context, cfg *config.Config) (*Components, error) {
	comps := &Components{Pingers: map[string]healthsvc.Pinger{}}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	comps.Rdb = redis.NewClient(opt)

	if cfg.DatabaseURL != "" {
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			comps.Close(ctx)
			return nil, fmt.Errorf("open database: %w", err)
		}
		comps.DB = db
		comps.Pingers["postgres"] = healthsvc.GormPinger{DB: db}
		if err := database.Migrate(ctx, db); err != nil {
			comps.Close(ctx)
			return nil, err
		}
	}

	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, err := database.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			comps.Close(ctx)
			return nil, err
		}
		comps.Mongo = client
		comps.Pingers["mongo"] = healthsvc.MongoPinger{Client: client}
		ms := store.NewMongoListingStore(client.Database(cfg.MongoDatabase))
		if err := ms.EnsureIndexes(ctx); err != nil {
			comps.Close(ctx)
			return nil, err
		}
		comps.Listings = ms
	default:
		if comps.DB == nil {
			comps.Close(ctx)
			return nil, fmt.Errorf("STORE_DRIVER %s needs DATABASE_URL", cfg.StoreDriver)
		}
		comps.Listings = store.NewGormListingStore(comps.DB)
	}

	switch cfg.BlobDriver {
	case config.BlobS3:
		bs, err := uploadsvc.NewS3BlobStore(ctx, uploadsvc.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			comps.Close(ctx)
			return nil, err
		}
		comps.Blobs = bs
	default:
		comps.Blobs = &uploadsvc.SupabaseBlobStore{
			Client: uploadsvc.NewHTTPClient(cfg.SupabaseURL, cfg.SupabaseSecretKey),
			Bucket: cfg.SupabaseBucket,
		}
	}
	return comps, nil
}

// NewApp wires middleware, handlers and routes over already connected components.
func NewApp(cfg *config.Config, comps *Components) (*fiber.App, error) {
	policy, err := listsvc.ParseUploadPolicy(cfg.UploadFailurePolicy)
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
		BodyLimit:               bodyLimit,
	})

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.IsProduction(),
	}
	tokens := authsvc.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	requireAuth := middleware.RequireAuth(tokens)

	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix:  cfg.FrontendURLEndsWith,
		DevPassword:    cfg.DevPassword,
		AllowLocalhost: !cfg.IsProduction(),
	}))
	app.Use(middleware.SessionStore(comps.Rdb))
	app.Use(middleware.OptionalAuth(tokens))
	app.Use(middleware.HealthMarker(comps.Rdb))
	app.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimitPerMinute, 0)))

	hh := &healthhandler.Handlers{
		Rdb:            comps.Rdb,
		Deps:           comps.Pingers,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	api := app.Group("/api/v1")

	var userFinder authsvc.UserFinder
	if comps.DB != nil {
		userFinder = &authsvc.GormUserFinder{DB: comps.DB}
	}
	ah := &authhandler.Handlers{
		UserFinder: userFinder,
		DB:         comps.DB,
		Tokens:     tokens,
		Rdb:        comps.Rdb,
		Config:     sessionCfg,
	}
	ag := api.Group("/auth")
	ag.Post("/login", ah.Login)
	ag.Post("/register", ah.Register)
	ag.Get("/me", ah.Me)
	ag.Delete("/logout", ah.Logout)
	ag.Delete("/sessions", requireAuth, ah.LogoutAll)

	if comps.DB != nil {
		uh := &userhandler.Handlers{Service: &usersvc.Service{DB: comps.DB}}
		ug := api.Group("/users", requireAuth)
		ug.Get("/profile", uh.GetProfile)
		ug.Put("/profile", uh.UpdateProfile)
	}

	ls := &listsvc.Service{
		Store:        comps.Listings,
		Blobs:        comps.Blobs,
		Validator:    listsvc.NewValidator(cfg.MinListingImages),
		UploadPolicy: policy,
	}
	lh := &listhandler.Handlers{Service: ls, Config: sessionCfg}
	lg := api.Group("/listings")
	lg.Get("/search", lh.Search)
	lg.Get("/home", lh.Home)
	lg.Get("/category/:category", lh.Category)
	lg.Get("/category/:category/more", lh.CategoryMore)
	lg.Get("/offers", lh.Offers)
	lg.Get("/offers/more", lh.OffersMore)
	lg.Get("/mine", requireAuth, lh.Mine)
	lg.Get("/:listing_id", lh.Get)
	lg.Get("/:listing_id/edit", requireAuth, lh.Edit)
	lg.Post("/", requireAuth, lh.Create)
	lg.Put("/:listing_id", requireAuth, lh.Update)
	lg.Delete("/:listing_id", requireAuth, lh.Delete)

	uph := &uploadhandler.Handlers{Service: &uploadsvc.Service{Signer: comps.Blobs}}
	upg := api.Group("/uploads", requireAuth)
	upg.Post("/listing-image", uph.UploadListingImage)

	return app, nil
}
