package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "PRINTFORGE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "PRINTFORGE_DB_DSN"
	EnvDBHost = "PRINTFORGE_DB_HOST"
	EnvDBUser = "PRINTFORGE_DB_USER"
	EnvDBName = "PRINTFORGE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	AuthRateLimit AuthRateLimitConfig
	Password      PasswordConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Media         MediaConfig
	PubSub        PubSubConfig
	Imports       ImportsConfig
	Detection     DetectionConfig
	Quality       QualityConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PRINTFORGE_APP_ENV" required:"true"`
	Port         string `envconfig:"PRINTFORGE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PRINTFORGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PRINTFORGE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PRINTFORGE_DB_DSN"`
	Driver string `envconfig:"PRINTFORGE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PRINTFORGE_DB_HOST"`
	LegacyPort     int    `envconfig:"PRINTFORGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PRINTFORGE_DB_USER"`
	LegacyPassword string `envconfig:"PRINTFORGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"PRINTFORGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"PRINTFORGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PRINTFORGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PRINTFORGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PRINTFORGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PRINTFORGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PRINTFORGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PRINTFORGE_REDIS_ADDR"`
	Password     string        `envconfig:"PRINTFORGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"PRINTFORGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PRINTFORGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PRINTFORGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PRINTFORGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PRINTFORGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PRINTFORGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"PRINTFORGE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"PRINTFORGE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"PRINTFORGE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"PRINTFORGE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"PRINTFORGE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"PRINTFORGE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PRINTFORGE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PRINTFORGE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PRINTFORGE_JWT_EXPIRATION_MINUTES" required:"true"`
	SessionTTLMinutes int    `envconfig:"PRINTFORGE_SESSION_TTL_MINUTES" default:"43200"`
}

// SessionTTL returns the session lifetime configured in minutes.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PRINTFORGE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PRINTFORGE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PRINTFORGE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PRINTFORGE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PRINTFORGE_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	AutoMigrate  bool `envconfig:"PRINTFORGE_AUTO_MIGRATE" default:"false"`
	AsyncImports bool `envconfig:"PRINTFORGE_FEATURE_ASYNC_IMPORTS" default:"true"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PRINTFORGE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"PRINTFORGE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PRINTFORGE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"PRINTFORGE_GCS_BUCKET_NAME" required:"true"`
	UploadURLExpiry   time.Duration `envconfig:"PRINTFORGE_GCS_UPLOAD_URL_EXPIRY" default:"15m"`
	DownloadURLExpiry time.Duration `envconfig:"PRINTFORGE_GCS_DOWNLOAD_URL_EXPIRY" default:"1h"`
}

type MediaConfig struct {
	MaxUploadMB      int `envconfig:"PRINTFORGE_MAX_UPLOAD_MB" default:"50"`
	MaxArchiveMB     int `envconfig:"PRINTFORGE_MAX_ARCHIVE_MB" default:"200"`
	ImageMaxWidthPX  int `envconfig:"PRINTFORGE_MEDIA_IMAGE_MAX_WIDTH" default:"8192"`
	ImageMaxHeightPX int `envconfig:"PRINTFORGE_MEDIA_IMAGE_MAX_HEIGHT" default:"8192"`
}

type PubSubConfig struct {
	MediaTopic          string `envconfig:"PRINTFORGE_PUBSUB_MEDIA_TOPIC" required:"true"`
	MediaSubscription   string `envconfig:"PRINTFORGE_PUBSUB_MEDIA_SUBSCRIPTION" required:"true"`
	ImportsTopic        string `envconfig:"PRINTFORGE_PUBSUB_IMPORTS_TOPIC" required:"true"`
	ImportsSubscription string `envconfig:"PRINTFORGE_PUBSUB_IMPORTS_SUBSCRIPTION" required:"true"`
}

type ImportsConfig struct {
	Concurrency     int           `envconfig:"PRINTFORGE_IMPORT_CONCURRENCY" default:"4"`
	MaxRows         int           `envconfig:"PRINTFORGE_IMPORT_MAX_ROWS" default:"5000"`
	RetryAttempts   int           `envconfig:"PRINTFORGE_IMPORT_RETRY_ATTEMPTS" default:"3"`
	RetryBaseDelay  time.Duration `envconfig:"PRINTFORGE_IMPORT_RETRY_BASE_DELAY" default:"250ms"`
	ItemTimeout     time.Duration `envconfig:"PRINTFORGE_IMPORT_ITEM_TIMEOUT" default:"30s"`
	RollbackDefault bool          `envconfig:"PRINTFORGE_IMPORT_ROLLBACK_ON_FAILURE" default:"false"`
}

type DetectionConfig struct {
	MinGreen      int     `envconfig:"PRINTFORGE_DETECT_MIN_GREEN" default:"100"`
	Dominance     int     `envconfig:"PRINTFORGE_DETECT_DOMINANCE" default:"40"`
	CoverageFloor float64 `envconfig:"PRINTFORGE_DETECT_COVERAGE_FLOOR" default:"0.5"`
}

type QualityConfig struct {
	MinWidthPX        int     `envconfig:"PRINTFORGE_QUALITY_MIN_WIDTH" default:"800"`
	MinHeightPX       int     `envconfig:"PRINTFORGE_QUALITY_MIN_HEIGHT" default:"800"`
	WarnScore         float64 `envconfig:"PRINTFORGE_QUALITY_WARN_SCORE" default:"70"`
	FailScore         float64 `envconfig:"PRINTFORGE_QUALITY_FAIL_SCORE" default:"40"`
	SharpnessFloor    float64 `envconfig:"PRINTFORGE_QUALITY_SHARPNESS_FLOOR" default:"25"`
	BlockinessCeiling float64 `envconfig:"PRINTFORGE_QUALITY_BLOCKINESS_CEILING" default:"60"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
