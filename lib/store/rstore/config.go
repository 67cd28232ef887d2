package rstore

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNoAddress is returned when the config names no Redis address.
	ErrNoAddress = errors.New("redis store: at least one address is required")
	// ErrInvalidPoolSize is returned for a negative pool size.
	ErrInvalidPoolSize = errors.New("redis store: pool size cannot be negative")
)

// Config holds the connection settings of a Redis store.
type Config struct {
	// Addrs lists host:port pairs. One address means a standalone server,
	// several mean a cluster.
	Addrs    []string
	Username string
	Password string
	DB       int

	// PoolSize is the maximum number of socket connections (0 = go-redis default).
	PoolSize int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Breaker enables a circuit breaker around every store call.
	Breaker bool
}

// Validate checks the config for obvious mistakes.
func (c Config) Validate() error {
	if len(c.Addrs) == 0 || c.Addrs[0] == "" {
		return ErrNoAddress
	}
	if c.PoolSize < 0 {
		return ErrInvalidPoolSize
	}
	return nil
}

func (c Config) universalOptions() *redis.UniversalOptions {
	return &redis.UniversalOptions{
		Addrs:        c.Addrs,
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}
