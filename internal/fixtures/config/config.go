package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

// ClearMode selects how a collection is emptied.
type ClearMode string

const (
	// ClearModeRemove deletes every document and keeps the collection with its indexes.
	ClearModeRemove ClearMode = "remove"
	// ClearModeDrop drops the collection; the next insert recreates it.
	ClearModeDrop ClearMode = "drop"
)

// LoaderConfig describes the target database of a loader. It is not modified after Validate.
type LoaderConfig struct {
	// Database is a database name, or a full mongodb:// / mongodb+srv:// locator naming the database in its path.
	Database   string `env:"FIXTURES_DATABASE"`
	Host       string `env:"FIXTURES_HOST" envDefault:"localhost"`
	Port       int    `env:"FIXTURES_PORT" envDefault:"27017"`
	Username   string `env:"FIXTURES_USER"`
	Password   string `env:"FIXTURES_PASSWORD"`
	AuthSource string `env:"FIXTURES_AUTH_SOURCE"`
	// Safe is kept for compatibility with older fixture setups. Writes are always acknowledged.
	Safe           bool          `env:"FIXTURES_SAFE" envDefault:"true"`
	ClearMode      ClearMode     `env:"FIXTURES_CLEAR_MODE" envDefault:"remove"`
	ConnectTimeout time.Duration `env:"FIXTURES_CONNECT_TIMEOUT" envDefault:"10s"`
	// BaseDir anchors relative fixture paths. Empty means the process working directory.
	// The seeding API only loads paths inside BaseDir and refuses paths when it is empty.
	BaseDir string `env:"FIXTURES_BASE_DIR"`
}

// ServerConfig holds the seeding API configuration
type ServerConfig struct {
	Host         string        `env:"SERVER_HOST" envDefault:"localhost"`
	Port         string        `env:"SERVER_PORT" envDefault:"3030"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"60s"`
	// RateLimit caps seeding calls per client and minute. 0 disables the limit.
	RateLimit int `env:"SERVER_RATE_LIMIT" envDefault:"600"`
	// JWTSecret enables bearer token checks on the seeding routes when set.
	JWTSecret string `env:"SEED_JWT_SECRET"`
	JWTIssuer string `env:"SEED_JWT_ISSUER" envDefault:"mongo-fixtures"`
	// CORSOrigins lists browser origins allowed to call the API. Empty allows any origin
	// when JWTSecret is set and none otherwise.
	CORSOrigins string `env:"SERVER_CORS_ORIGINS"`
}

// RedisConfig configures the optional Redis Streams event sink
type RedisConfig struct {
	Addr         string `env:"REDIS_ADDR"`
	Password     string `env:"REDIS_PASSWORD"`
	DB           int    `env:"REDIS_DB" envDefault:"0"`
	Stream       string `env:"REDIS_STREAM" envDefault:"fixtures:events"`
	StreamMaxLen int64  `env:"REDIS_STREAM_MAX_LEN" envDefault:"10000"`
	EnableTLS    bool   `env:"REDIS_TLS" envDefault:"false"`
	// PublishRetries is how often a failed stream write is retried before the event is dropped.
	PublishRetries int           `env:"REDIS_PUBLISH_RETRIES" envDefault:"2"`
	RetryDelay     time.Duration `env:"REDIS_RETRY_DELAY" envDefault:"100ms"`
}

// LogConfig selects the logging backend
type LogConfig struct {
	Backend string `env:"LOG_BACKEND" envDefault:"logrus"`
	Level   string `env:"LOG_LEVEL" envDefault:"info"`
	Format  string `env:"LOG_FORMAT" envDefault:"text"`
}

// Config is the full process configuration
type Config struct {
	Loader LoaderConfig
	Server ServerConfig
	Redis  RedisConfig
	Log    LogConfig
}

// Load reads the whole configuration from environment variables.
// The loader section is validated by the caller once command line overrides are applied.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.New("failed to load configuration from environment: " + err.Error())
	}
	return cfg, nil
}

// DefaultLoaderConfig returns a local development configuration for database.
func DefaultLoaderConfig(database string) LoaderConfig {
	return LoaderConfig{
		Database:       database,
		Host:           "localhost",
		Port:           27017,
		Safe:           true,
		ClearMode:      ClearModeRemove,
		ConnectTimeout: 10 * time.Second,
	}
}

// Validate checks the configuration and fills derived defaults.
func (c *LoaderConfig) Validate() error {
	if strings.TrimSpace(c.Database) == "" {
		return errors.New("database name or locator is required")
	}
	if c.IsLocator() {
		cs, err := connstring.ParseAndValidate(c.Database)
		if err != nil {
			return fmt.Errorf("invalid database locator: %w", err)
		}
		if cs.Database == "" {
			return errors.New("database locator must name a database in its path")
		}
	} else if strings.ContainsAny(c.Database, `/\. "$`) {
		return fmt.Errorf("invalid database name %q", c.Database)
	}
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 27017
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Password != "" && c.Username == "" {
		return errors.New("a password requires a user")
	}
	switch c.ClearMode {
	case "":
		c.ClearMode = ClearModeRemove
	case ClearModeRemove, ClearModeDrop:
	default:
		return fmt.Errorf("unknown clear mode %q (want %q or %q)", c.ClearMode, ClearModeRemove, ClearModeDrop)
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	c.Safe = true
	return nil
}

// IsLocator reports whether Database is a full connection string
func (c LoaderConfig) IsLocator() bool {
	return strings.HasPrefix(c.Database, "mongodb://") || strings.HasPrefix(c.Database, "mongodb+srv://")
}

// URI returns the connection string used to reach the server
func (c LoaderConfig) URI() string {
	if c.IsLocator() {
		return c.Database
	}
	return "mongodb://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DatabaseName returns the name of the target database
func (c LoaderConfig) DatabaseName() string {
	if !c.IsLocator() {
		return c.Database
	}
	cs, err := connstring.ParseAndValidate(c.Database)
	if err != nil {
		return ""
	}
	return cs.Database
}

// HasCredentials reports whether explicit credentials were configured
func (c LoaderConfig) HasCredentials() bool {
	return c.Username != ""
}

// Redacted returns URI with any password removed, for logs
func (c LoaderConfig) Redacted() string {
	uri := c.URI()
	schemeEnd := strings.Index(uri, "://")
	at := strings.LastIndex(uri, "@")
	if schemeEnd < 0 || at < schemeEnd {
		return uri
	}
	userInfo := uri[schemeEnd+3 : at]
	if i := strings.Index(userInfo, ":"); i >= 0 {
		userInfo = userInfo[:i] + ":***"
	}
	return uri[:schemeEnd+3] + userInfo + uri[at:]
}

// Enabled reports whether the Redis sink is configured
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// Addr returns the listen address of the seeding API
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}
