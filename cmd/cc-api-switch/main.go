package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/afero"

	"github.com/hugolld/cc-api-switcher/internal/cli"
)

func main() {
	level := slog.LevelWarn
	if os.Getenv("CC_API_SWITCHER_DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	app := &cli.App{
		Fs:       afero.NewOsFs(),
		Logger:   logger,
		Prompter: cli.NewPromptUI(),
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}

	if err := cli.NewRootCommand(app).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
