package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hand/redislock/lib/logging"
	"github.com/hand/redislock/lib/store/rstore"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// --------------------------------------------------------------------------
// Keys and defaults
// --------------------------------------------------------------------------

const (
	EnvPrefix = "redislock"

	KeyHost         = "host"
	KeyPort         = "port"
	KeyPassword     = "password"
	KeyDB           = "db"
	KeyPoolSize     = "pool-size"
	KeyDialTimeout  = "dial-timeout"
	KeyStore        = "store"
	KeyKeyPrefix    = "key-prefix"
	KeyLease        = "lease"
	KeyWait         = "wait"
	KeyStoreRetries = "store-retries"
	KeyLogLevel     = "log-level"
	KeyBreaker      = "breaker"
)

type StoreType string

const (
	StoreRedis StoreType = "redis"
	StoreLocal StoreType = "local"
)

// Defaults mirror the stock Redis client settings
const (
	DefaultHost         = "localhost"
	DefaultPort         = 6379
	DefaultPoolSize     = 0 // 0 = go-redis default (10 per CPU)
	DefaultDialTimeout  = 5 * time.Second
	DefaultKeyPrefix    = "lock:"
	DefaultLease        = 30 * time.Second
	DefaultWait         = time.Duration(0)
	DefaultStoreRetries = 3
	DefaultLogLevel     = "info"
)

// --------------------------------------------------------------------------
// Config struct
// --------------------------------------------------------------------------

// Config holds all configuration parameters of the redislock command
type Config struct {
	// store connection
	Store       StoreType
	Host        string
	Port        int
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
	Breaker     bool

	// lock defaults
	KeyPrefix    string
	Lease        time.Duration
	Wait         time.Duration
	StoreRetries int

	// Logging configuration
	LogLevel string
}

// SetDefaults registers the default of every key with v
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyStore, string(StoreRedis))
	v.SetDefault(KeyHost, DefaultHost)
	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyPassword, "")
	v.SetDefault(KeyDB, 0)
	v.SetDefault(KeyPoolSize, DefaultPoolSize)
	v.SetDefault(KeyDialTimeout, DefaultDialTimeout)
	v.SetDefault(KeyBreaker, false)
	v.SetDefault(KeyKeyPrefix, DefaultKeyPrefix)
	v.SetDefault(KeyLease, DefaultLease)
	v.SetDefault(KeyWait, DefaultWait)
	v.SetDefault(KeyStoreRetries, DefaultStoreRetries)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
}

// InitEnv loads .env files and makes v read REDISLOCK_* environment variables
func InitEnv(v *viper.Viper) {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// Load reads the configuration from v and validates it
func Load(v *viper.Viper) (*Config, error) {
	c := &Config{
		Store:        StoreType(strings.ToLower(v.GetString(KeyStore))),
		Host:         v.GetString(KeyHost),
		Port:         v.GetInt(KeyPort),
		Password:     v.GetString(KeyPassword),
		DB:           v.GetInt(KeyDB),
		PoolSize:     v.GetInt(KeyPoolSize),
		DialTimeout:  v.GetDuration(KeyDialTimeout),
		Breaker:      v.GetBool(KeyBreaker),
		KeyPrefix:    v.GetString(KeyKeyPrefix),
		Lease:        v.GetDuration(KeyLease),
		Wait:         v.GetDuration(KeyWait),
		StoreRetries: v.GetInt(KeyStoreRetries),
		LogLevel:     v.GetString(KeyLogLevel),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks all values, returning every problem found
func (c *Config) Validate() error {
	var errs []error

	switch c.Store {
	case StoreRedis:
		if c.Host == "" {
			errs = append(errs, errors.New("host must not be empty"))
		}
		if c.Port <= 0 || c.Port > 65535 {
			errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
		}
		if c.DB < 0 {
			errs = append(errs, fmt.Errorf("db must not be negative, got %d", c.DB))
		}
		if c.PoolSize < 0 {
			errs = append(errs, fmt.Errorf("pool-size must not be negative, got %d", c.PoolSize))
		}
		if c.DialTimeout < 0 {
			errs = append(errs, fmt.Errorf("dial-timeout must not be negative, got %v", c.DialTimeout))
		}
	case StoreLocal:
	default:
		errs = append(errs, fmt.Errorf("invalid store %q, must be one of redis, local", c.Store))
	}

	if c.Lease < time.Millisecond {
		errs = append(errs, fmt.Errorf("lease must be at least 1ms, got %v", c.Lease))
	}
	if c.Wait < 0 {
		errs = append(errs, fmt.Errorf("wait must not be negative, got %v", c.Wait))
	}
	if c.StoreRetries < 0 {
		errs = append(errs, fmt.Errorf("store-retries must not be negative, got %d", c.StoreRetries))
	}
	if _, err := logging.ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Addr returns host:port
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// RedisConfig converts the connection settings into an rstore.Config
func (c *Config) RedisConfig() rstore.Config {
	return rstore.Config{
		Addrs:       []string{c.Addr()},
		Password:    c.Password,
		DB:          c.DB,
		PoolSize:    c.PoolSize,
		DialTimeout: c.DialTimeout,
		Breaker:     c.Breaker,
	}
}

// String returns a formatted string representation of the configuration
func (c *Config) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Store")
	addField("Type", string(c.Store))
	if c.Store == StoreRedis {
		addField("Address", c.Addr())
		addField("Password", mask(c.Password))
		addField("Database", strconv.Itoa(c.DB))
		poolSize := "default"
		if c.PoolSize > 0 {
			poolSize = strconv.Itoa(c.PoolSize)
		}
		addField("Pool Size", poolSize)
		addField("Dial Timeout", c.DialTimeout.String())
		addField("Circuit Breaker", strconv.FormatBool(c.Breaker))
	}

	addSection("Locks")
	addField("Key Prefix", c.KeyPrefix)
	addField("Lease", c.Lease.String())
	wait := "no wait"
	if c.Wait > 0 {
		wait = c.Wait.String()
	}
	addField("Wait", wait)
	addField("Store Retries", strconv.Itoa(c.StoreRetries))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

func mask(secret string) string {
	if secret == "" {
		return "(none)"
	}
	return "********"
}
