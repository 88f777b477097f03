package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	PublicURL    string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

// DSN renders the connection parameters as a postgres URL.
func (c PostgresConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{c.SSLMode}}.Encode()
	}
	return u.String()
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	Group    string
	Consumer string
}

type StorageConfig struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	BucketProducts string
	UseSSL         bool
	Region         string
	PresignTTL     time.Duration
}

type Argon2Config struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

type SecurityConfig struct {
	SessionSecret string
	SessionTTL    time.Duration
	CookieName    string
	SecureCookies bool
	MaxSessions   int
	Argon2        Argon2Config
}

type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string
	Scopes             []string
	StateTTL           time.Duration
}

type QueueConfig struct {
	ClaimInterval time.Duration
}

type LoggingConfig struct {
	Level string
}

type AppConfig struct {
	Environment string
	HTTP        HTTPConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	Storage     StorageConfig
	Security    SecurityConfig
	OAuth       OAuthConfig
	Queues      QueueConfig
	Logging     LoggingConfig
}

// legacyEnv maps config keys to the environment names of the original deployment.
var legacyEnv = map[string]string{
	"postgres.user":            "PG_USER",
	"postgres.host":            "PG_HOST",
	"postgres.database":        "PG_DATABASE",
	"postgres.password":        "PG_PASSWORD",
	"postgres.port":            "PG_PORT",
	"security.sessionsecret":   "SECRET",
	"oauth.googleclientid":     "CLIENT_ID",
	"oauth.googleclientsecret": "CLIENT_SECRET",
	"oauth.googlecallbackurl":  "CALLBACK_URL",
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("AURENIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func bindEnv(v *viper.Viper) error {
	for key, legacy := range legacyEnv {
		prefixed := "AURENIX_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	for _, key := range []string{"storage.endpoint", "storage.accesskey", "storage.secretkey", "redis.password"} {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 3000)
	v.SetDefault("http.publicurl", "http://localhost:3000")
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 5)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "auth:events")
	v.SetDefault("redis.group", "auth-audit")
	v.SetDefault("redis.consumer", "worker-1")

	v.SetDefault("storage.endpoint", "127.0.0.1:9000")
	v.SetDefault("storage.bucketproducts", "aurenix-products")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.presignttl", "1h")

	v.SetDefault("security.sessionttl", "720h") // 30 days
	v.SetDefault("security.cookiename", "aurenix_session")
	v.SetDefault("security.securecookies", false)
	v.SetDefault("security.maxsessions", 10)
	v.SetDefault("security.argon2.time", 3)
	v.SetDefault("security.argon2.memory", 64*1024)
	v.SetDefault("security.argon2.threads", 2)
	v.SetDefault("security.argon2.keylen", 32)
	v.SetDefault("security.argon2.saltlen", 16)

	v.SetDefault("oauth.scopes", "profile,email")
	v.SetDefault("oauth.statettl", "10m")

	v.SetDefault("queues.claiminterval", "30s")

	v.SetDefault("logging.level", "")
}

// Validate reports every required process-start option that is missing.
func (c *AppConfig) Validate() error {
	var missing []string
	check := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}

	check("postgres.host", c.Postgres.Host)
	check("postgres.user", c.Postgres.User)
	check("postgres.password", c.Postgres.Password)
	check("postgres.database", c.Postgres.Database)
	if c.Postgres.Port <= 0 {
		missing = append(missing, "postgres.port")
	}
	check("security.sessionsecret", c.Security.SessionSecret)
	check("oauth.googleclientid", c.OAuth.GoogleClientID)
	check("oauth.googleclientsecret", c.OAuth.GoogleClientSecret)
	check("oauth.googlecallbackurl", c.OAuth.GoogleCallbackURL)

	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	if c.Security.SessionTTL <= 0 {
		return errors.New("security.sessionttl must be positive")
	}
	return nil
}
