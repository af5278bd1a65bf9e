package commands

import (
	"github.com/go-redis/redis/v8"
)

// Flags holds the global relayctl options.
type Flags struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
	LogLevel      string

	// Redis is connected in the root Before hook for commands that need it.
	Redis *redis.Client
}
