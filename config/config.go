package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	auth "github.com/goliatone/go-token-auth"
)

// EnvPrefix is prepended to every environment variable, AUTHD_AUTH_SIGNING_KEY
// maps to auth.signing_key.
const EnvPrefix = "AUTHD"

const (
	RevocationBackendSQL    = "sql"
	RevocationBackendRedis  = "redis"
	RevocationBackendMemory = "memory"
)

type BaseConfig struct {
	Server      Server      `mapstructure:"server" json:"server"`
	Auth        Auth        `mapstructure:"auth" json:"auth"`
	Persistence Persistence `mapstructure:"persistence" json:"persistence"`
	Revocation  Revocation  `mapstructure:"revocation" json:"revocation"`
	Redis       Redis       `mapstructure:"redis" json:"redis"`
	Log         Log         `mapstructure:"log" json:"log"`
	Phone       Phone       `mapstructure:"phone" json:"phone"`
}

type Server struct {
	Addr                      string   `mapstructure:"addr" json:"addr"`
	AppName                   string   `mapstructure:"app_name" json:"app_name"`
	Debug                     bool     `mapstructure:"debug" json:"debug"`
	PublicPaths               []string `mapstructure:"public_paths" json:"public_paths"`
	ShutdownTimeoutExpression string   `mapstructure:"shutdown_timeout" json:"shutdown_timeout"`
}

type Auth struct {
	SigningKey  string   `mapstructure:"signing_key" json:"signing_key"`
	TokenTTLMs  int64    `mapstructure:"token_ttl_ms" json:"token_ttl_ms"`
	Issuer      string   `mapstructure:"issuer" json:"issuer"`
	Audience    []string `mapstructure:"audience" json:"audience"`
	ContextKey  string   `mapstructure:"context_key" json:"context_key"`
	TokenLookup string   `mapstructure:"token_lookup" json:"token_lookup"`
	AuthScheme  string   `mapstructure:"auth_scheme" json:"auth_scheme"`
	BcryptCost  int      `mapstructure:"bcrypt_cost" json:"bcrypt_cost"`
}

var _ auth.Config = Auth{}

type Persistence struct {
	Driver                string `mapstructure:"driver" json:"driver"`
	DSN                   string `mapstructure:"dsn" json:"dsn"`
	Debug                 bool   `mapstructure:"debug" json:"debug"`
	MaxOpenConns          int    `mapstructure:"max_open_conns" json:"max_open_conns"`
	PingTimeoutExpression string `mapstructure:"ping_timeout" json:"ping_timeout"`
	AutoMigrate           bool   `mapstructure:"auto_migrate" json:"auto_migrate"`
	OtelIdentifier        string `mapstructure:"otel_identifier" json:"otel_identifier"`
}

type Revocation struct {
	Backend     string `mapstructure:"backend" json:"backend"`
	CacheSize   int    `mapstructure:"cache_size" json:"cache_size"`
	RedisPrefix string `mapstructure:"redis_prefix" json:"redis_prefix"`
}

type Redis struct {
	Addr     string `mapstructure:"addr" json:"addr"`
	Password string `mapstructure:"password" json:"password"`
	DB       int    `mapstructure:"db" json:"db"`
}

type Log struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

type Phone struct {
	Region string `mapstructure:"region" json:"region"`
}

// SetDefaults registers every key so AutomaticEnv can resolve it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.app_name", "authd")
	v.SetDefault("server.debug", false)
	v.SetDefault("server.public_paths", auth.DefaultPublicPaths)
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl_ms", auth.DefaultTokenTTL.Milliseconds())
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", []string{})
	v.SetDefault("auth.context_key", auth.DefaultContextKey)
	v.SetDefault("auth.token_lookup", "header:Authorization")
	v.SetDefault("auth.auth_scheme", "Bearer")
	v.SetDefault("auth.bcrypt_cost", 0)

	v.SetDefault("persistence.driver", "sqlite")
	v.SetDefault("persistence.dsn", "file:authd.db?cache=shared")
	v.SetDefault("persistence.debug", false)
	v.SetDefault("persistence.max_open_conns", 0)
	v.SetDefault("persistence.ping_timeout", "5s")
	v.SetDefault("persistence.auto_migrate", true)

	v.SetDefault("revocation.backend", RevocationBackendSQL)
	v.SetDefault("revocation.cache_size", auth.DefaultRevocationCacheSize)
	v.SetDefault("revocation.redis_prefix", "tokenauth:revoked")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("phone.region", auth.DefaultPhoneRegion)
}

// BindEnv wires AUTHD_* variables plus the deployment variables
// JWT_SECRET_KEY and JWT_EXPIRATION_TIME (milliseconds).
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	_ = v.BindEnv("auth.signing_key", EnvPrefix+"_AUTH_SIGNING_KEY", "JWT_SECRET_KEY")
	_ = v.BindEnv("auth.token_ttl_ms", EnvPrefix+"_AUTH_TOKEN_TTL_MS", "JWT_EXPIRATION_TIME")
}

// Load reads defaults, the optional config file and the environment into
// a validated BaseConfig.
func Load(v *viper.Viper) (*BaseConfig, error) {
	if v == nil {
		v = viper.New()
		BindEnv(v)
	}

	SetDefaults(v)

	cfg := &BaseConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (s Server) GetShutdownTimeout() time.Duration {
	dur, err := time.ParseDuration(s.ShutdownTimeoutExpression)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", s.ShutdownTimeoutExpression),
		)
	}
	return dur
}

func (p Persistence) GetDebug() bool {
	return p.Debug
}

func (p Persistence) GetDriver() string {
	return p.Driver
}

func (p Persistence) GetDSN() string {
	return p.DSN
}

// GetServer returns the DSN, the connection string the persistence client expects
func (p Persistence) GetServer() string {
	return p.DSN
}

func (p Persistence) GetMaxOpenConns() int {
	return p.MaxOpenConns
}

func (p Persistence) GetOtelIdentifier() string {
	return p.OtelIdentifier
}

func (p Persistence) GetPingTimeout() time.Duration {
	dur, err := time.ParseDuration(p.PingTimeoutExpression)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", p.PingTimeoutExpression),
		)
	}
	return dur
}

func (a Auth) GetSigningKey() string {
	return a.SigningKey
}

func (a Auth) GetTokenTTL() time.Duration {
	return time.Duration(a.TokenTTLMs) * time.Millisecond
}

func (a Auth) GetIssuer() string {
	return a.Issuer
}

func (a Auth) GetAudience() []string {
	return a.Audience
}

func (a Auth) GetContextKey() string {
	return a.ContextKey
}

func (a Auth) GetTokenLookup() string {
	return a.TokenLookup
}

func (a Auth) GetAuthScheme() string {
	return a.AuthScheme
}

// Redacted returns a copy safe to print
func (c BaseConfig) Redacted() BaseConfig {
	out := c
	if out.Auth.SigningKey != "" {
		out.Auth.SigningKey = "***"
	}
	if out.Persistence.DSN != "" {
		out.Persistence.DSN = "***"
	}
	if out.Redis.Password != "" {
		out.Redis.Password = "***"
	}
	return out
}
