package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env      string
	Port     string
	LogLevel string

	SessionSecret string
	JWTSecret     string
	TokenTTL      time.Duration

	DatabaseURL   string
	RedisURL      string
	StoreDriver   string // postgres or mongo
	MongoURI      string
	MongoDatabase string

	BlobDriver        string // supabase or s3
	SupabaseURL       string
	SupabaseSecretKey string // must be the service_role key, not the anon key
	SupabaseBucket    string
	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKey       string
	S3SecretKey       string
	S3PublicURL       string

	MinListingImages    int
	UploadFailurePolicy string
	RateLimitPerMinute  int

	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string
}

const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	BlobSupabase  = "supabase"
	BlobS3        = "s3"
)

func init() {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("TOKEN_TTL", "24h")
	viper.SetDefault("STORE_DRIVER", StorePostgres)
	viper.SetDefault("MONGO_DATABASE", "wheelhub")
	viper.SetDefault("BLOB_DRIVER", BlobSupabase)
	viper.SetDefault("SUPABASE_BUCKET", "listing-images")
	viper.SetDefault("S3_REGION", "us-east-1")
	viper.SetDefault("MIN_LISTING_IMAGES", 1)
	viper.SetDefault("UPLOAD_FAILURE_POLICY", "skipSlot")
	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 60)
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Env:      viper.GetString("APP_ENV"),
		Port:     viper.GetString("PORT"),
		LogLevel: viper.GetString("LOG_LEVEL"),

		SessionSecret: viper.GetString("SESSION_SECRET"),
		JWTSecret:     viper.GetString("JWT_SECRET"),
		TokenTTL:      viper.GetDuration("TOKEN_TTL"),

		DatabaseURL:   viper.GetString("DATABASE_URL"),
		RedisURL:      viper.GetString("REDIS_URL"),
		StoreDriver:   strings.ToLower(viper.GetString("STORE_DRIVER")),
		MongoURI:      viper.GetString("MONGO_URI"),
		MongoDatabase: viper.GetString("MONGO_DATABASE"),

		BlobDriver:        strings.ToLower(viper.GetString("BLOB_DRIVER")),
		SupabaseURL:       viper.GetString("SUPABASE_URL"),
		SupabaseSecretKey: viper.GetString("SUPABASE_SECRET_KEY"),
		SupabaseBucket:    viper.GetString("SUPABASE_BUCKET"),
		S3Bucket:          viper.GetString("S3_BUCKET"),
		S3Region:          viper.GetString("S3_REGION"),
		S3Endpoint:        viper.GetString("S3_ENDPOINT"),
		S3AccessKey:       viper.GetString("S3_ACCESS_KEY"),
		S3SecretKey:       viper.GetString("S3_SECRET_KEY"),
		S3PublicURL:       viper.GetString("S3_PUBLIC_URL"),

		MinListingImages:    viper.GetInt("MIN_LISTING_IMAGES"),
		UploadFailurePolicy: viper.GetString("UPLOAD_FAILURE_POLICY"),
		RateLimitPerMinute:  viper.GetInt("RATE_LIMIT_PER_MINUTE"),

		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   viper.GetBool("ALLOW_CROSS_SITE_DEV"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StorePostgres, StoreMongo:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.BlobDriver {
	case BlobSupabase, BlobS3:
	default:
		return fmt.Errorf("config: unknown BLOB_DRIVER %q", c.BlobDriver)
	}
	if c.MinListingImages < 0 || c.MinListingImages > 1 {
		return fmt.Errorf("config: MIN_LISTING_IMAGES must be 0 or 1, got %d", c.MinListingImages)
	}
	if c.IsProduction() && c.SessionSecret == "" {
		return fmt.Errorf("config: SESSION_SECRET is required in production")
	}
	return nil
}
