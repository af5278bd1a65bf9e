package commands

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	redisstate "github.com/Owskar/collaborative-code-editor/internal/infra/state/redis"
)

// NewRootCmd builds the relayctl command tree.
func NewRootCmd(flags *Flags, version string) *cli.Command {
	app := &cli.Command{
		Name:      "relayctl",
		Usage:     "Operator tool for the collaborative editing relay",
		UsageText: "relayctl [global options] command [command options]",
		Version:   version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "redis-addr",
				Usage:       "Redis address holding update logs",
				Sources:     cli.EnvVars("REDIS_ADDR"),
				Value:       "localhost:6379",
				Destination: &flags.RedisAddr,
			},
			&cli.StringFlag{
				Name:        "redis-password",
				Usage:       "Redis password",
				Sources:     cli.EnvVars("REDIS_PASSWORD"),
				Destination: &flags.RedisPassword,
			},
			&cli.IntFlag{
				Name:        "redis-db",
				Usage:       "Redis database number",
				Sources:     cli.EnvVars("REDIS_DB"),
				Destination: &flags.RedisDB,
			},
			&cli.StringFlag{
				Name:        "key-prefix",
				Usage:       "Redis key prefix used by the relay",
				Sources:     cli.EnvVars("REDIS_KEY_PREFIX"),
				Value:       redisstate.DefaultKeyPrefix,
				Destination: &flags.KeyPrefix,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Sources:     cli.EnvVars("LOG_LEVEL"),
				Value:       "warn",
				Destination: &flags.LogLevel,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			level, err := logrus.ParseLevel(flags.LogLevel)
			if err != nil {
				return ctx, fmt.Errorf("failed to parse log level: %w", err)
			}
			logrus.SetLevel(level)
			return ctx, nil
		},
	}

	app = NewLogCmd(flags).Register(app)
	app = NewColorCmd().Register(app)
	return app
}
