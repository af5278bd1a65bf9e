package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/Owskar/collaborative-code-editor/internal/domain"
	"github.com/Owskar/collaborative-code-editor/internal/presence"
)

// ColorCmd prints the presence color assigned to identities.
type ColorCmd struct{}

func NewColorCmd() *ColorCmd {
	return &ColorCmd{}
}

// Register adds the color command to the application
func (cmd *ColorCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "color",
		Usage:       "Print the presence color for one or more identities",
		UsageText:   "relayctl color [identity...]",
		Description: "With no arguments, prints the color of the anonymous identity.",
		Action:      cmd.run,
	})
	return app
}

func (cmd *ColorCmd) run(_ context.Context, c *cli.Command) error {
	identities := c.Args().Slice()
	if len(identities) == 0 {
		identities = []string{domain.AnonymousUserID}
	}
	out := c.Root().Writer
	for _, id := range identities {
		_, _ = fmt.Fprintf(out, "%s\t%s\n", id, presence.ColorFor(id))
	}
	return nil
}
