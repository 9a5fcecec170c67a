package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jwalitptl/cabinet-api/pkg/logger"
	"github.com/jwalitptl/cabinet-api/pkg/security"
)

type Config struct {
	Server    ServerConfig            `mapstructure:"server"`
	Mongo     MongoConfig             `mapstructure:"mongo"`
	Neo4j     Neo4jConfig             `mapstructure:"neo4j"`
	JWT       JWTConfig               `mapstructure:"jwt"`
	Password  security.PasswordPolicy `mapstructure:"password"`
	Auth      AuthConfig              `mapstructure:"auth"`
	RateLimit RateLimitConfig         `mapstructure:"rate_limit"`
	CORS      CORSConfig              `mapstructure:"cors"`
	Log       logger.Config           `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	MaxPoolSize    uint64        `mapstructure:"max_pool_size"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type Neo4jConfig struct {
	URI                          string        `mapstructure:"uri"`
	User                         string        `mapstructure:"user"`
	Password                     string        `mapstructure:"password"`
	Database                     string        `mapstructure:"database"`
	MaxConnectionPoolSize        int           `mapstructure:"max_connection_pool_size"`
	MaxConnectionLifetime        time.Duration `mapstructure:"max_connection_lifetime"`
	ConnectionAcquisitionTimeout time.Duration `mapstructure:"connection_acquisition_timeout"`
	Breaker                      BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig tunes the circuit breaker guarding graph sessions.
type BreakerConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
	Timeout             time.Duration `mapstructure:"timeout"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

type AuthConfig struct {
	AllowAdminRegistration bool `mapstructure:"allow_admin_registration"`
	HashIterations         int  `mapstructure:"hash_iterations"`
}

type RateLimitConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Requests   int           `mapstructure:"requests"`
	Period     time.Duration `mapstructure:"period"`
	Burst      int           `mapstructure:"burst"`
	StorageURL string        `mapstructure:"storage_url"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// envBindings keeps the variable names the deployment already exports.
var envBindings = map[string]string{
	"server.port":            "PORT",
	"mongo.uri":              "MONGO_URI",
	"mongo.database":         "MONGO_DATABASE",
	"neo4j.uri":              "NEO4J_URI",
	"neo4j.user":             "NEO4J_USER",
	"neo4j.password":         "NEO4J_PASSWORD",
	"jwt.secret":             "JWT_SECRET_KEY",
	"log.level":              "LOG_LEVEL",
	"rate_limit.storage_url": "RATELIMIT_STORAGE_URL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "cabinet_medical")
	v.SetDefault("mongo.max_pool_size", 50)
	v.SetDefault("mongo.connect_timeout", 30*time.Second)

	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("neo4j.user", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "")
	v.SetDefault("neo4j.max_connection_pool_size", 50)
	v.SetDefault("neo4j.max_connection_lifetime", time.Hour)
	v.SetDefault("neo4j.connection_acquisition_timeout", 60*time.Second)
	v.SetDefault("neo4j.breaker.enabled", true)
	v.SetDefault("neo4j.breaker.consecutive_failures", 3)
	v.SetDefault("neo4j.breaker.timeout", 10*time.Second)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_ttl", time.Hour)
	v.SetDefault("jwt.refresh_ttl", 30*24*time.Hour)

	policy := security.DefaultPasswordPolicy()
	v.SetDefault("password.min_length", policy.MinLength)
	v.SetDefault("password.require_uppercase", false)
	v.SetDefault("password.require_lowercase", false)
	v.SetDefault("password.require_digits", false)
	v.SetDefault("password.require_special", false)

	v.SetDefault("auth.allow_admin_registration", true)
	v.SetDefault("auth.hash_iterations", security.DefaultIterations)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.period", time.Minute)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("rate_limit.storage_url", "memory://")

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// LoadConfig reads config.yml from . or ./config when present, then applies the environment.
func LoadConfig() (*Config, error) {
	return Load(viper.New(), ".", "./config")
}

func Load(v *viper.Viper, paths ...string) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	switch {
	case c.JWT.Secret == "":
		return errors.New("jwt.secret (JWT_SECRET_KEY) is required")
	case c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0:
		return errors.New("jwt token lifetimes must be positive")
	case c.Password.MinLength < 1:
		return errors.New("password.min_length must be at least 1")
	case c.RateLimit.Enabled && (c.RateLimit.Requests < 1 || c.RateLimit.Period <= 0):
		return errors.New("rate_limit requests and period must be positive")
	}
	return nil
}
