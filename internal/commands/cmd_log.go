package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/Owskar/collaborative-code-editor/internal/infra/setup"
	redisstate "github.com/Owskar/collaborative-code-editor/internal/infra/state/redis"
)

// LogCmd inspects per-document update logs.
type LogCmd struct {
	flags *Flags
	start int
	stop  int
}

func NewLogCmd(flags *Flags) *LogCmd {
	return &LogCmd{flags: flags}
}

// Register adds the log command to the application
func (cmd *LogCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:   "log",
		Usage:  "Inspect document update logs",
		Before: cmd.connect,
		After:  cmd.disconnect,
		Commands: []*cli.Command{
			{
				Name:      "dump",
				Usage:     "Print a document's stored updates in order",
				UsageText: "relayctl log dump [--start N] [--stop N] <documentId>",
				Description: `Prints one line per stored update: its 1-based log position, a tab, and the
update exactly as clients sent it. --start and --stop are 0-based inclusive
list indexes; negative values count from the end.`,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:        "start",
						Usage:       "first index to print",
						Value:       0,
						Destination: &cmd.start,
					},
					&cli.IntFlag{
						Name:        "stop",
						Usage:       "last index to print",
						Value:       -1,
						Destination: &cmd.stop,
					},
				},
				Action: cmd.runDump,
			},
			{
				Name:      "len",
				Usage:     "Print the number of stored updates for a document",
				UsageText: "relayctl log len <documentId>",
				Action:    cmd.runLen,
			},
		},
	})
	return app
}

func (cmd *LogCmd) connect(ctx context.Context, _ *cli.Command) (context.Context, error) {
	if cmd.flags.Redis != nil {
		return ctx, nil
	}
	client, err := setup.InitRedis(setup.RedisOptions{
		Addr:     cmd.flags.RedisAddr,
		Password: cmd.flags.RedisPassword,
		DB:       cmd.flags.RedisDB,
		PoolSize: 2,
	})
	if err != nil {
		return ctx, err
	}
	cmd.flags.Redis = client
	return ctx, nil
}

func (cmd *LogCmd) disconnect(context.Context, *cli.Command) error {
	if cmd.flags.Redis == nil {
		return nil
	}
	err := cmd.flags.Redis.Close()
	cmd.flags.Redis = nil
	return err
}

func documentArg(c *cli.Command) (string, error) {
	if c.Args().Len() < 1 || c.Args().First() == "" {
		return "", errors.New("document id is required")
	}
	return c.Args().First(), nil
}

func (cmd *LogCmd) runDump(ctx context.Context, c *cli.Command) error {
	documentID, err := documentArg(c)
	if err != nil {
		return err
	}
	handle, err := redisstate.NewRedisUpdateLog(cmd.flags.Redis, cmd.flags.KeyPrefix).Open(ctx, documentID)
	if err != nil {
		return fmt.Errorf("open update log: %w", err)
	}
	defer handle.Close()

	var offset int64
	if cmd.start >= 0 {
		offset = int64(cmd.start)
	} else {
		n, err := handle.Len(ctx)
		if err != nil {
			return fmt.Errorf("read log length: %w", err)
		}
		offset = max(n+int64(cmd.start), 0)
	}

	records, err := handle.ReadRange(ctx, int64(cmd.start), int64(cmd.stop))
	if err != nil {
		return fmt.Errorf("read update log: %w", err)
	}

	out := c.Root().Writer
	for i, rec := range records {
		_, _ = fmt.Fprintf(out, "%d\t%s\n", offset+int64(i)+1, rec)
	}
	return nil
}

func (cmd *LogCmd) runLen(ctx context.Context, c *cli.Command) error {
	documentID, err := documentArg(c)
	if err != nil {
		return err
	}
	handle, err := redisstate.NewRedisUpdateLog(cmd.flags.Redis, cmd.flags.KeyPrefix).Open(ctx, documentID)
	if err != nil {
		return fmt.Errorf("open update log: %w", err)
	}
	defer handle.Close()

	n, err := handle.Len(ctx)
	if err != nil {
		return fmt.Errorf("read log length: %w", err)
	}
	_, _ = fmt.Fprintln(c.Root().Writer, n)
	return nil
}
