// Package cmd implements the command-line interface of redislock.
//
// The package is organized into subpackages:
//
//   - lock: Commands that take a lock (run a command while holding it, show its owner)
//   - util: Shared utilities for flags, configuration and store setup (internal use)
//
// The root package itself provides the version and check commands.
// See redislock -help for a list of all commands.
package cmd
