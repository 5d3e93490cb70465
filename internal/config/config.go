package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server    ServerConfig    `env:",prefix=SERVER_"`
	Postgres  PostgresConfig  `env:",prefix=POSTGRES_"`
	Redis     RedisConfig     `env:",prefix=REDIS_"`
	Discord   DiscordConfig   `env:",prefix=DISCORD_"`
	Admin     AdminConfig     `env:",prefix=ADMIN_"`
	State     StateConfig     `env:",prefix=STATE_"`
	Reconcile ReconcileConfig `env:",prefix=RECONCILE_"`
	Security  SecurityConfig  `env:",prefix="`
	Env       string          `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port        string   `env:"PORT,default=3000"`
	Host        string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout Duration `env:"READ_TIMEOUT,default=15s"`
	// Reconciliation runs are answered synchronously, so the write
	// timeout has to cover a full pass over all users.
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=30m"`
}

type PostgresConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=rejoin"`
	Password string `env:"PASSWORD,default=rejoin_password"`
	DBName   string `env:"DB,default=rejoin_db"`
	SSLMode  string `env:"SSLMODE,default=disable"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type DiscordConfig struct {
	ClientID       string   `env:"CLIENT_ID,required"`
	ClientSecret   string   `env:"CLIENT_SECRET,required"`
	RedirectURI    string   `env:"REDIRECT_URI,required"`
	BotToken       string   `env:"BOT_TOKEN,required"`
	APIBaseURL     string   `env:"API_BASE_URL,default=https://discord.com/api/v10"`
	AuthorizeURL   string   `env:"AUTHORIZE_URL,default=https://discord.com/oauth2/authorize"`
	Scopes         []string `env:"SCOPES,default=identify,email,guilds.join"`
	RequestTimeout Duration `env:"REQUEST_TIMEOUT,default=10s"`
}

type AdminConfig struct {
	// APIKeyHash is the bcrypt hash of the key expected in X-API-Key.
	APIKeyHash string `env:"API_KEY_HASH,required"`
}

type StateConfig struct {
	Secret string   `env:"SECRET,required"`
	TTL    Duration `env:"TTL,default=10m"`
}

type ReconcileConfig struct {
	Delay          Duration `env:"DELAY,default=250ms"`
	ExpirySkew     Duration `env:"EXPIRY_SKEW,default=60s"`
	LockTTL        Duration `env:"LOCK_TTL,default=5m"`
	WelcomeMessage string   `env:"WELCOME_MESSAGE,default=You have been restored to the new server. Welcome!"`
}

type SecurityConfig struct {
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// URL returns the PostgreSQL connection URL used by migrations
func (p PostgresConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     p.Host + ":" + p.Port,
		Path:     p.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(p.SSLMode),
	}
	return u.String()
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load loads configuration from a .env file, if present, and environment variables
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}

func (c *Config) validate() error {
	// Secret signs the OAuth state parameter
	if len(c.State.Secret) < 32 {
		return fmt.Errorf("STATE_SECRET must be at least 32 characters long")
	}

	if c.Reconcile.Delay.Duration < 0 {
		return fmt.Errorf("RECONCILE_DELAY must not be negative")
	}

	if c.Reconcile.LockTTL.Duration < time.Second {
		return fmt.Errorf("RECONCILE_LOCK_TTL must be at least 1s")
	}

	if c.Discord.RequestTimeout.Duration <= 0 {
		return fmt.Errorf("DISCORD_REQUEST_TIMEOUT must be positive")
	}

	return nil
}

// LoadPostgres loads only the PostgreSQL section, for tools that do not talk to Discord
func LoadPostgres(ctx context.Context) (*PostgresConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	var config struct {
		Postgres PostgresConfig `env:",prefix=POSTGRES_"`
	}

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return &config.Postgres, nil
}
