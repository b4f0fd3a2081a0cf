package state

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendBolt   = "bolt"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Backend  string
	Path     string // bolt file
	RedisURL string
	Profile  string // redis key namespace
}

// Open returns the Store described by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendBolt, "":
		return OpenBolt(opts.Path)
	case BackendRedis:
		return OpenRedis(ctx, opts.RedisURL, opts.Profile)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown state backend %q (expected bolt, redis or memory)", opts.Backend)
	}
}
