package store

import (
	"fmt"
	"time"
)

// BackendType names a Backend implementation.
type BackendType string

const (
	// BackendRedis talks to a Redis server with the RediSearch module (default).
	BackendRedis BackendType = "redis"

	// BackendMemory keeps everything in process, backed by bleve.
	// Used for tests and for running without a Redis server.
	BackendMemory BackendType = "memory"
)

// Options selects and configures a Backend.
type Options struct {
	Type         string
	Addr         string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// New creates the Backend named by opts.Type.
//
// type options:
//   - "redis" (default): Redis with RediSearch at opts.Addr
//   - "memory": in-process bleve indexes, nothing persists
func New(opts Options) (Backend, error) {
	switch BackendType(opts.Type) {
	case BackendRedis, "":
		return NewRedisBackend(RedisOptions{
			Addr:         opts.Addr,
			Username:     opts.Username,
			Password:     opts.Password,
			DB:           opts.DB,
			DialTimeout:  opts.DialTimeout,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
		}), nil

	case BackendMemory:
		return NewMemoryBackend(), nil

	default:
		return nil, fmt.Errorf("unknown backend: %s (valid options: redis, memory)", opts.Type)
	}
}
