package util

import (
	"context"
	"fmt"
	"strings"

	"github.com/hand/redislock/lib/config"
	"github.com/hand/redislock/lib/db"
	"github.com/hand/redislock/lib/db/engines/maple"
	"github.com/hand/redislock/lib/lockmgr"
	"github.com/hand/redislock/lib/logging"
	"github.com/hand/redislock/lib/store"
	"github.com/hand/redislock/lib/store/lstore"
	"github.com/hand/redislock/lib/store/rstore"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupStoreFlags adds the store connection flags to a command
func SetupStoreFlags(cmd *cobra.Command) {
	key := config.KeyStore
	cmd.PersistentFlags().String(key, string(config.StoreRedis), WrapString("Which store to use (redis, local). The local store only coordinates within this process"))

	key = config.KeyHost
	cmd.PersistentFlags().String(key, config.DefaultHost, WrapString("Host of the Redis server"))

	key = config.KeyPort
	cmd.PersistentFlags().Int(key, config.DefaultPort, WrapString("Port of the Redis server"))

	key = config.KeyPassword
	cmd.PersistentFlags().String(key, "", WrapString("Password of the Redis server (prefer the REDISLOCK_PASSWORD environment variable)"))

	key = config.KeyDB
	cmd.PersistentFlags().Int(key, 0, WrapString("Redis database number"))

	key = config.KeyPoolSize
	cmd.PersistentFlags().Int(key, config.DefaultPoolSize, WrapString("Maximum number of connections to Redis (0 for the client default)"))

	key = config.KeyDialTimeout
	cmd.PersistentFlags().Duration(key, config.DefaultDialTimeout, WrapString("Timeout for establishing a connection to Redis"))

	key = config.KeyBreaker
	cmd.PersistentFlags().Bool(key, false, WrapString("Whether to stop calling Redis for a while after repeated connection failures"))

	key = config.KeyLogLevel
	cmd.PersistentFlags().String(key, config.DefaultLogLevel, WrapString("Log level (debug, info, warn, error)"))
}

// SetupLockFlags adds the lock flags to a command
func SetupLockFlags(cmd *cobra.Command) {
	key := config.KeyKeyPrefix
	cmd.PersistentFlags().String(key, config.DefaultKeyPrefix, WrapString("Prefix put in front of every lock name to form the store key"))

	key = config.KeyLease
	cmd.PersistentFlags().Duration(key, config.DefaultLease, WrapString("Lease of the lock. The lock is renewed every lease/3 while held"))

	key = config.KeyWait
	cmd.PersistentFlags().Duration(key, config.DefaultWait, WrapString("How long to wait for a held lock (0 to fail immediately)"))

	key = config.KeyStoreRetries
	cmd.PersistentFlags().Int(key, config.DefaultStoreRetries, WrapString("How many times to retry a store call when the store is unreachable"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	config.SetDefaults(viper.GetViper())
	config.InitEnv(viper.GetViper())
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetConfig binds the flags of cmd, loads the configuration and applies the log level
func GetConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := BindCommandFlags(cmd); err != nil {
		return nil, err
	}
	conf, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := logging.InitLoggers(conf.LogLevel); err != nil {
		return nil, err
	}
	return conf, nil
}

// NewStore creates the store selected by the configuration
func NewStore(ctx context.Context, conf *config.Config) (store.IStore, error) {
	switch conf.Store {
	case config.StoreRedis:
		return rstore.NewRedisStore(ctx, conf.RedisConfig())
	case config.StoreLocal:
		return lstore.NewLocalStore(func() db.KVDB { return maple.NewMapleDB(nil) }), nil
	default:
		return nil, fmt.Errorf("invalid store %s", conf.Store)
	}
}

// NewLockManager creates a lock manager with the configured prefix and retries
func NewLockManager(conf *config.Config, s store.IStore) lockmgr.ILockManager {
	return lockmgr.NewLockManager(s,
		lockmgr.WithKeyPrefix(conf.KeyPrefix),
		lockmgr.WithStoreRetries(conf.StoreRetries),
	)
}

// WaitPolicy returns the configured wait policy
func WaitPolicy(conf *config.Config) lockmgr.WaitPolicy {
	if conf.Wait <= 0 {
		return lockmgr.NoWait()
	}
	return lockmgr.WaitUpTo(conf.Wait)
}
