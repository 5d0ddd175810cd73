package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	JWT       JWTConfig
	Storage   StorageConfig
	S3        S3Config
	GCS       GCSConfig
	Metadata  MetadataConfig
	Firestore FirestoreConfig
	Redis     RedisConfig
	Log       LogConfig
	CORS      CORSConfig
	Ingest    IngestConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Environment     string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// JWTConfig holds the settings used to verify bearer tokens.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// StorageConfig selects the blob store backend.
type StorageConfig struct {
	Provider string `mapstructure:"provider"` // s3 or gcs
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// GCSConfig holds Google Cloud Storage settings.
type GCSConfig struct {
	Bucket          string `mapstructure:"bucket"`
	CredentialsFile string `mapstructure:"credentials_file"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
}

// MetadataConfig selects the page asset metadata backend.
type MetadataConfig struct {
	Provider string `mapstructure:"provider"` // postgres or firestore
}

// FirestoreConfig holds Firestore settings.
type FirestoreConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	Collection      string `mapstructure:"collection"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// RedisConfig holds settings for the shared progress store. An empty Addr disables it.
type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	Prefix      string        `mapstructure:"prefix"`
	ProgressTTL time.Duration `mapstructure:"progress_ttl"`
}

// Enabled reports whether a Redis address is configured.
func (r *RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// IngestConfig holds document ingestion tunables.
type IngestConfig struct {
	BatchSize        int           `mapstructure:"batch_size"`
	HiResScale       float64       `mapstructure:"hires_scale"`
	ThumbnailScale   float64       `mapstructure:"thumbnail_scale"`
	HiResQuality     float64       `mapstructure:"hires_quality"`
	ThumbnailQuality float64       `mapstructure:"thumbnail_quality"`
	PageTimeout      time.Duration `mapstructure:"page_timeout"`
	JobTimeout       time.Duration `mapstructure:"job_timeout"`
	MaxFileSizeMB    int64         `mapstructure:"max_file_size_mb"`
	QueueSize        int           `mapstructure:"queue_size"`
	QueueConcurrency int           `mapstructure:"queue_concurrency"`
}

// Validate checks the ingestion tunables for values the pipeline cannot run with.
func (i *IngestConfig) Validate() error {
	var errs []error
	if i.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("ingest.batch_size must be >= 1, got %d", i.BatchSize))
	}
	if i.HiResScale <= 0 || i.ThumbnailScale <= 0 {
		errs = append(errs, fmt.Errorf("ingest scales must be > 0, got hires=%v thumbnail=%v", i.HiResScale, i.ThumbnailScale))
	}
	if i.HiResQuality <= 0 || i.HiResQuality > 1 || i.ThumbnailQuality <= 0 || i.ThumbnailQuality > 1 {
		errs = append(errs, fmt.Errorf("ingest qualities must be in (0,1], got hires=%v thumbnail=%v", i.HiResQuality, i.ThumbnailQuality))
	}
	if i.PageTimeout <= 0 || i.JobTimeout <= 0 {
		errs = append(errs, errors.New("ingest.page_timeout and ingest.job_timeout must be positive"))
	}
	if i.QueueSize < 1 || i.QueueConcurrency < 1 {
		errs = append(errs, errors.New("ingest.queue_size and ingest.queue_concurrency must be >= 1"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Load reads configuration from environment variables with the LIBRIS_ prefix.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("LIBRIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "libris")
	v.SetDefault("db.password", "libris_secret")
	v.SetDefault("db.name", "libris_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// JWT defaults
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.issuer", "libris")

	// Storage defaults
	v.SetDefault("storage.provider", "s3")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "libris-pages")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.public_base_url", "")
	v.SetDefault("gcs.bucket", "libris-pages")
	v.SetDefault("gcs.credentials_file", "")
	v.SetDefault("gcs.public_base_url", "")

	// Metadata defaults
	v.SetDefault("metadata.provider", "postgres")
	v.SetDefault("firestore.project_id", "")
	v.SetDefault("firestore.collection", "page_assets")
	v.SetDefault("firestore.credentials_file", "")

	// Redis defaults (disabled unless addr is set)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "libris:")
	v.SetDefault("redis.progress_ttl", "24h")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Ingest defaults
	v.SetDefault("ingest.batch_size", 3)
	v.SetDefault("ingest.hires_scale", 2.0)
	v.SetDefault("ingest.thumbnail_scale", 0.3)
	v.SetDefault("ingest.hires_quality", 0.9)
	v.SetDefault("ingest.thumbnail_quality", 0.7)
	v.SetDefault("ingest.page_timeout", "2m")
	v.SetDefault("ingest.job_timeout", "30m")
	v.SetDefault("ingest.max_file_size_mb", 100)
	v.SetDefault("ingest.queue_size", 64)
	v.SetDefault("ingest.queue_concurrency", 2)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                "LIBRIS_SERVER_PORT",
		"server.read_timeout":        "LIBRIS_SERVER_READ_TIMEOUT",
		"server.write_timeout":       "LIBRIS_SERVER_WRITE_TIMEOUT",
		"server.shutdown_timeout":    "LIBRIS_SERVER_SHUTDOWN_TIMEOUT",
		"server.environment":         "LIBRIS_SERVER_ENVIRONMENT",
		"db.host":                    "LIBRIS_DB_HOST",
		"db.port":                    "LIBRIS_DB_PORT",
		"db.user":                    "LIBRIS_DB_USER",
		"db.password":                "LIBRIS_DB_PASSWORD",
		"db.name":                    "LIBRIS_DB_NAME",
		"db.sslmode":                 "LIBRIS_DB_SSLMODE",
		"db.max_open":                "LIBRIS_DB_MAX_OPEN",
		"db.max_idle":                "LIBRIS_DB_MAX_IDLE",
		"jwt.secret":                 "LIBRIS_JWT_SECRET",
		"jwt.issuer":                 "LIBRIS_JWT_ISSUER",
		"storage.provider":           "LIBRIS_STORAGE_PROVIDER",
		"s3.region":                  "LIBRIS_S3_REGION",
		"s3.bucket":                  "LIBRIS_S3_BUCKET",
		"s3.endpoint":                "LIBRIS_S3_ENDPOINT",
		"s3.access_key":              "LIBRIS_S3_ACCESS_KEY",
		"s3.secret_key":              "LIBRIS_S3_SECRET_KEY",
		"s3.public_base_url":         "LIBRIS_S3_PUBLIC_BASE_URL",
		"gcs.bucket":                 "LIBRIS_GCS_BUCKET",
		"gcs.credentials_file":       "LIBRIS_GCS_CREDENTIALS_FILE",
		"gcs.public_base_url":        "LIBRIS_GCS_PUBLIC_BASE_URL",
		"metadata.provider":          "LIBRIS_METADATA_PROVIDER",
		"firestore.project_id":       "LIBRIS_FIRESTORE_PROJECT_ID",
		"firestore.collection":       "LIBRIS_FIRESTORE_COLLECTION",
		"firestore.credentials_file": "LIBRIS_FIRESTORE_CREDENTIALS_FILE",
		"redis.addr":                 "LIBRIS_REDIS_ADDR",
		"redis.password":             "LIBRIS_REDIS_PASSWORD",
		"redis.db":                   "LIBRIS_REDIS_DB",
		"redis.prefix":               "LIBRIS_REDIS_PREFIX",
		"redis.progress_ttl":         "LIBRIS_REDIS_PROGRESS_TTL",
		"log.level":                  "LIBRIS_LOG_LEVEL",
		"log.format":                 "LIBRIS_LOG_FORMAT",
		"cors.allowed_origins":       "LIBRIS_CORS_ALLOWED_ORIGINS",
		"ingest.batch_size":          "LIBRIS_INGEST_BATCH_SIZE",
		"ingest.hires_scale":         "LIBRIS_INGEST_HIRES_SCALE",
		"ingest.thumbnail_scale":     "LIBRIS_INGEST_THUMBNAIL_SCALE",
		"ingest.hires_quality":       "LIBRIS_INGEST_HIRES_QUALITY",
		"ingest.thumbnail_quality":   "LIBRIS_INGEST_THUMBNAIL_QUALITY",
		"ingest.page_timeout":        "LIBRIS_INGEST_PAGE_TIMEOUT",
		"ingest.job_timeout":         "LIBRIS_INGEST_JOB_TIMEOUT",
		"ingest.max_file_size_mb":    "LIBRIS_INGEST_MAX_FILE_SIZE_MB",
		"ingest.queue_size":          "LIBRIS_INGEST_QUEUE_SIZE",
		"ingest.queue_concurrency":   "LIBRIS_INGEST_QUEUE_CONCURRENCY",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if LIBRIS_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("LIBRIS_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:            serverPort,
		ReadTimeout:     v.GetDuration("server.read_timeout"),
		WriteTimeout:    v.GetDuration("server.write_timeout"),
		ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		Environment:     v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.JWT = JWTConfig{
		Secret: v.GetString("jwt.secret"),
		Issuer: v.GetString("jwt.issuer"),
	}
	cfg.Storage = StorageConfig{
		Provider: strings.ToLower(v.GetString("storage.provider")),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		PublicBaseURL: v.GetString("s3.public_base_url"),
	}
	cfg.GCS = GCSConfig{
		Bucket:          v.GetString("gcs.bucket"),
		CredentialsFile: v.GetString("gcs.credentials_file"),
		PublicBaseURL:   v.GetString("gcs.public_base_url"),
	}
	cfg.Metadata = MetadataConfig{
		Provider: strings.ToLower(v.GetString("metadata.provider")),
	}
	cfg.Firestore = FirestoreConfig{
		ProjectID:       v.GetString("firestore.project_id"),
		Collection:      v.GetString("firestore.collection"),
		CredentialsFile: v.GetString("firestore.credentials_file"),
	}
	cfg.Redis = RedisConfig{
		Addr:        v.GetString("redis.addr"),
		Password:    v.GetString("redis.password"),
		DB:          v.GetInt("redis.db"),
		Prefix:      v.GetString("redis.prefix"),
		ProgressTTL: v.GetDuration("redis.progress_ttl"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	cfg.Ingest = IngestConfig{
		BatchSize:        v.GetInt("ingest.batch_size"),
		HiResScale:       v.GetFloat64("ingest.hires_scale"),
		ThumbnailScale:   v.GetFloat64("ingest.thumbnail_scale"),
		HiResQuality:     v.GetFloat64("ingest.hires_quality"),
		ThumbnailQuality: v.GetFloat64("ingest.thumbnail_quality"),
		PageTimeout:      v.GetDuration("ingest.page_timeout"),
		JobTimeout:       v.GetDuration("ingest.job_timeout"),
		MaxFileSizeMB:    v.GetInt64("ingest.max_file_size_mb"),
		QueueSize:        v.GetInt("ingest.queue_size"),
		QueueConcurrency: v.GetInt("ingest.queue_concurrency"),
	}
	if err := cfg.Ingest.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Storage.Provider {
	case "s3", "gcs":
	default:
		return nil, fmt.Errorf("config: unknown storage.provider %q", cfg.Storage.Provider)
	}
	switch cfg.Metadata.Provider {
	case "postgres", "firestore":
	default:
		return nil, fmt.Errorf("config: unknown metadata.provider %q", cfg.Metadata.Provider)
	}

	return cfg, nil
}
