package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	app "github.com/arcadehub/tictactoe-backend/internal"
	"github.com/arcadehub/tictactoe-backend/internal/config"
)

// Boots the game server: config from the working directory, a JSON logger
// at the configured level, then the application loop. Any failure surfaces
// as a nonzero exit.
func main() {
	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "recovered from panic: %v\n", err)
			os.Exit(1)
		}
	}()

	conf := initConfig()
	logger := initLogger(conf)

	if err := app.RunApp(logger, conf); err != nil {
		panic(fmt.Errorf("app run failed: %w", err))
	}
}

// initConfig loads config.yml from the directory the server is started in.
func initConfig() *config.Config {
	baseDir, err := os.Getwd()
	if err != nil {
		panic(fmt.Errorf("failed to get current directory: %w", err))
	}

	return config.MustLoad(filepath.Join(baseDir, "config.yml"))
}

// initLogger builds the process-wide slog logger writing JSON to stdout.
// Anything but an explicit "debug" runs at info.
func initLogger(conf *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if conf.LogLevel == "debug" {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
