// Package config holds the runtime configuration of the redislock command.
//
// Values come from command-line flags, environment variables prefixed with
// REDISLOCK_ (dashes become underscores, so key-prefix is read from
// REDISLOCK_KEY_PREFIX) and optional .env / .env.local files, in that order
// of precedence. Load reads them all through viper.
package config
