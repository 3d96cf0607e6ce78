package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// DefaultJWTSecret is the fallback signing secret. Tokens signed with it can
// be forged by anyone who has read this file.
const DefaultJWTSecret = "your-secret-key"

var ErrDefaultSecret = errors.New("JWT_SECRET must be set in production")

type Database struct {
	Driver     string `envconfig:"DB_DRIVER"   default:"postgres"`
	Host       string `envconfig:"PGHOST"      default:"localhost"`
	Port       string `envconfig:"PGPORT"      default:"5432"`
	User       string `envconfig:"PGUSER"      default:"postgres"`
	Password   string `envconfig:"PGPASSWORD"  default:"postgres"`
	Name       string `envconfig:"PGDATABASE"  default:"rental"`
	SSLMode    string `envconfig:"PGSSLMODE"   default:"disable"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"rental.db"`
}

func (d Database) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type Config struct {
	Database

	Env         string `envconfig:"ENV"          default:"development"`
	Port        string `envconfig:"PORT"         default:"8080"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`

	JWTSecret  string        `envconfig:"JWT_SECRET"  default:"your-secret-key"`
	JWTTTL     time.Duration `envconfig:"JWT_TTL"     default:"1h"`
	BcryptCost int           `envconfig:"BCRYPT_COST" default:"10"`

	UploadDir      string `envconfig:"UPLOAD_DIR"       default:"public/uploads"`
	MaxImageWidth  int    `envconfig:"MAX_IMAGE_WIDTH"  default:"1920"`
	MaxImagePixels int    `envconfig:"MAX_IMAGE_PIXELS" default:"40000000"`
	MaxUploadMB    int64  `envconfig:"MAX_UPLOAD_MB"    default:"32"`

	RedisAddr string        `envconfig:"REDIS_ADDR"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"10m"`

	CORSOrigins      []string `envconfig:"CORS_ORIGINS"       default:"*"`
	AuthRateLimit    float64  `envconfig:"AUTH_RATE_LIMIT"    default:"5"`
	AllowAdminSignup bool     `envconfig:"ALLOW_ADMIN_SIGNUP" default:"false"`

	StrictTransitions bool `envconfig:"STRICT_TRANSITIONS" default:"false"`
	TraceStdout       bool `envconfig:"TRACE_STDOUT"       default:"false"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return c, err
	}
	if c.JWTSecret == "" {
		c.JWTSecret = DefaultJWTSecret
	}
	if c.Production() && c.UsesDefaultSecret() {
		return c, ErrDefaultSecret
	}
	return c, nil
}

func (c Config) Production() bool {
	return c.Env == "production"
}

func (c Config) UsesDefaultSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}

func (c Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}
