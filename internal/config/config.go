// Package config centralizes how HoloHeri reads environment variables and
// exposes them as strongly typed Go values.
package config

import (
	"crypto/rand"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Config represents runtime configuration for the API server, the worker and
// the CLI. Everything the service layer needs (base URL, upload directory,
// token secret, CORS origin) is injected from here at startup.
type Config struct {
	Environment string
	Address     string
	// APIBaseURL is the public origin that prefixes stored media URLs,
	// e.g. http://localhost:4000 -> http://localhost:4000/uploads/thumb-1.png.
	APIBaseURL     string
	RoutePrefix    string
	UploadDir      string
	MaxBodyBytes   int64
	RequestTimeout time.Duration
	CORSOrigin     string

	JWTSecret    []byte
	GeneratedJWT bool
	TokenTTL     time.Duration
	UsersFile    string
	RequireAuth  bool

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3UseSSL    bool

	LegacyHost     string
	ReclaimWorkers int
	LogDir         string
}

const (
	defaultEnvironment    = "dev"
	defaultAddress        = ":4000"
	defaultAPIBaseURL     = "http://localhost:4000"
	defaultRoutePrefix    = "/api/holoheri"
	defaultUploadDir      = "uploads"
	defaultMaxBodyBytes   = 200 << 20 // 200 MiB
	defaultRequestTimeout = 10 * time.Minute
	defaultCORSOrigin     = "http://localhost:5173"
	defaultTokenTTL       = 7 * 24 * time.Hour
	defaultUsersFile      = "data/user.json"
	defaultS3Bucket       = "heritage-glbs"
	defaultLegacyHost     = "localhost:3000"
	defaultReclaimWorkers = 2
	defaultLogDir         = "."
)

// Load reads configuration from environment variables falling back to
// defaults. Callers are expected to have loaded any .env file beforehand.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:    readEnv("HOLOHERI_ENVIRONMENT", defaultEnvironment),
		Address:        readEnv("HOLOHERI_ADDRESS", defaultAddress),
		APIBaseURL:     strings.TrimRight(readEnv("HOLOHERI_API_BASE_URL", defaultAPIBaseURL), "/"),
		RoutePrefix:    normalizePrefix(readEnv("HOLOHERI_ROUTE_PREFIX", defaultRoutePrefix)),
		UploadDir:      readEnv("HOLOHERI_UPLOAD_DIR", defaultUploadDir),
		MaxBodyBytes:   parseInt64("HOLOHERI_MAX_BODY_BYTES", defaultMaxBodyBytes),
		RequestTimeout: parseDuration("HOLOHERI_REQUEST_TIMEOUT", defaultRequestTimeout),
		CORSOrigin:     readEnv("HOLOHERI_CORS_ORIGIN", defaultCORSOrigin),
		JWTSecret:      parseSecret("HOLOHERI_JWT_SECRET"),
		TokenTTL:       parseDuration("HOLOHERI_TOKEN_TTL", defaultTokenTTL),
		UsersFile:      readEnv("HOLOHERI_USERS_FILE", defaultUsersFile),
		RequireAuth:    parseBool("HOLOHERI_REQUIRE_AUTH", false),
		DatabaseURL:    readEnv("HOLOHERI_DATABASE_URL", ""),
		RedisAddr:      readEnv("HOLOHERI_REDIS_ADDR", ""),
		RedisPassword:  readEnv("HOLOHERI_REDIS_PASSWORD", ""),
		RedisDB:        parseInt("HOLOHERI_REDIS_DB", 0),
		S3Endpoint:     readEnv("HOLOHERI_S3_ENDPOINT", ""),
		S3AccessKey:    readEnv("HOLOHERI_S3_ACCESS_KEY", ""),
		S3SecretKey:    readEnv("HOLOHERI_S3_SECRET_KEY", ""),
		S3Bucket:       readEnv("HOLOHERI_S3_BUCKET", defaultS3Bucket),
		S3Region:       readEnv("HOLOHERI_S3_REGION", ""),
		S3UseSSL:       parseBool("HOLOHERI_S3_USE_SSL", false),
		LegacyHost:     readEnv("HOLOHERI_LEGACY_HOST", defaultLegacyHost),
		ReclaimWorkers: parseInt("HOLOHERI_RECLAIM_WORKERS", defaultReclaimWorkers),
		LogDir:         readEnv("HOLOHERI_LOG_DIR", defaultLogDir),
	}
	if cfg.JWTSecret == nil {
		// Tokens signed with a random secret do not survive a restart.
		cfg.JWTSecret = randomSecret()
		cfg.GeneratedJWT = true
	}
	if cfg.ReclaimWorkers <= 0 {
		cfg.ReclaimWorkers = defaultReclaimWorkers
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields that have no sensible fallback.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Address, validation.Required),
		validation.Field(&c.APIBaseURL, validation.Required, is.URL),
		validation.Field(&c.UploadDir, validation.Required),
		validation.Field(&c.S3Bucket, validation.When(c.S3Endpoint != "", validation.Required)),
	)
}

// QueueEnabled reports whether background jobs go through Redis/asynq
// instead of the in-process reclaim pool.
func (c *Config) QueueEnabled() bool {
	return c.RedisAddr != ""
}

// MirrorEnabled reports whether 3D models are mirrored to the object store.
// Mirroring only runs through the queue.
func (c *Config) MirrorEnabled() bool {
	return c.QueueEnabled() && c.S3Endpoint != ""
}

func normalizePrefix(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseInt64(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseSecret(key string) []byte {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return []byte(v)
	}
	return nil
}

func randomSecret() []byte {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return []byte("fallback_secret_key")
	}
	return buf
}
