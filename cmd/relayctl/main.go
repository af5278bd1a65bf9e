package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/Owskar/collaborative-code-editor/internal/commands"
)

// Populated at build-time via -ldflags.
var version = "dev"

func main() {
	logrus.SetOutput(os.Stderr)

	app := commands.NewRootCmd(&commands.Flags{}, version)
	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "relayctl: %v\n", err)
		os.Exit(1)
	}
}
