// Package logging provides the named component loggers used throughout redislock.
//
// Every component asks for its own logger with CreateLogger("lockmgr"),
// CreateLogger("rstore") and so on. Output is a single line per entry:
//
//	2026/01/02 15:04:05 | INFO  | lockmgr         | lock "jobs" acquired
//
// Loggers are backed by zap. Levels of all loggers created through
// CreateLogger are changed together with InitLoggers, so a command can
// create its loggers first and apply the configured level later.
package logging
