package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const (
	BackendSQL       = "sql"
	BackendFirestore = "firestore"

	PhotosLocal = "local"
	PhotosMinio = "minio"
)

type Config struct {
	Port string `envconfig:"PORT" default:"8080"`

	StoreBackend string `envconfig:"STORE_BACKEND" default:"sql"`
	DatabaseURL  string `envconfig:"DATABASE_URL" default:"sqlite://ballotbox.db"`
	// DBDriver picks the database/sql driver behind gorm's postgres dialector:
	// "pgx" (jackc/pgx stdlib) or "postgres" (lib/pq).
	DBDriver       string        `envconfig:"DB_DRIVER" default:"pgx"`
	DBMaxOpenConns int           `envconfig:"DB_MAX_OPEN_CONNS" default:"100"`
	DBMaxIdleConns int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	DBSlowQuery    time.Duration `envconfig:"DB_SLOW_QUERY" default:"1s"`

	FirebaseProjectID       string `envconfig:"FIREBASE_PROJECT_ID"`
	FirebaseCredentials     string `envconfig:"FIREBASE_CREDENTIALS"`
	FirebaseCredentialsFile string `envconfig:"FIREBASE_CREDENTIALS_FILE"`

	// GoogleClientID is the OAuth client Google ID tokens must be issued to;
	// Google sign-in is off when empty.
	GoogleClientID string `envconfig:"GOOGLE_CLIENT_ID"`

	JWTSecret   string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL    time.Duration `envconfig:"TOKEN_TTL" default:"72h"`
	AdminEmails []string      `envconfig:"ADMIN_EMAILS"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
	LogLevel    string   `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string   `envconfig:"LOG_FORMAT" default:"text"`

	VoteRateLimit float64 `envconfig:"VOTE_RATE_LIMIT" default:"1"`
	VoteRateBurst int     `envconfig:"VOTE_RATE_BURST" default:"3"`

	PhotoBackend  string `envconfig:"PHOTO_BACKEND" default:"local"`
	PhotoDir      string `envconfig:"PHOTO_DIR" default:"./media"`
	PhotoBaseURL  string `envconfig:"PHOTO_BASE_URL"`
	PhotoMaxBytes int64  `envconfig:"PHOTO_MAX_BYTES" default:"5242880"`
	S3Endpoint    string `envconfig:"S3_ENDPOINT"`
	S3AccessKey   string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey   string `envconfig:"S3_SECRET_KEY"`
	S3Bucket      string `envconfig:"S3_BUCKET" default:"ballotbox"`
	S3Region      string `envconfig:"S3_REGION" default:"us-east-1"`
	S3UseSSL      bool   `envconfig:"S3_USE_SSL" default:"true"`

	TwilioAccountSID string   `envconfig:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string   `envconfig:"TWILIO_AUTH_TOKEN"`
	TwilioFrom       string   `envconfig:"TWILIO_FROM"`
	AdminPhones      []string `envconfig:"ADMIN_PHONES"`
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "read environment")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendSQL:
		if !strings.HasPrefix(c.DatabaseURL, "postgres://") &&
			!strings.HasPrefix(c.DatabaseURL, "postgresql://") &&
			!strings.HasPrefix(c.DatabaseURL, "sqlite://") {
			return errors.New("DATABASE_URL must start with postgres://, postgresql:// or sqlite://")
		}
		if c.DBDriver != "pgx" && c.DBDriver != "postgres" {
			return errors.Errorf("DB_DRIVER must be pgx or postgres, got %q", c.DBDriver)
		}
	case BackendFirestore:
		if c.FirebaseProjectID == "" && c.FirebaseCredentials == "" && c.FirebaseCredentialsFile == "" {
			return errors.New("STORE_BACKEND=firestore needs FIREBASE_PROJECT_ID or credentials")
		}
	default:
		return errors.Errorf("STORE_BACKEND must be sql or firestore, got %q", c.StoreBackend)
	}

	switch c.PhotoBackend {
	case PhotosLocal:
	case PhotosMinio:
		if c.S3Endpoint == "" || c.S3AccessKey == "" || c.S3SecretKey == "" {
			return errors.New("PHOTO_BACKEND=minio needs S3_ENDPOINT, S3_ACCESS_KEY and S3_SECRET_KEY")
		}
	default:
		return errors.Errorf("PHOTO_BACKEND must be local or minio, got %q", c.PhotoBackend)
	}

	if len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	if c.VoteRateLimit <= 0 || c.VoteRateBurst <= 0 {
		return errors.New("VOTE_RATE_LIMIT and VOTE_RATE_BURST must be positive")
	}
	return nil
}

// FirebaseEnabled reports whether a Firebase app can be initialised.
func (c Config) FirebaseEnabled() bool {
	return c.FirebaseProjectID != "" || c.FirebaseCredentials != "" || c.FirebaseCredentialsFile != ""
}

func (c Config) TwilioEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFrom != "" && len(c.AdminPhones) > 0
}

func (c Config) IsAdminEmail(email string) bool {
	for _, e := range c.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(e), strings.TrimSpace(email)) {
			return true
		}
	}
	return false
}
