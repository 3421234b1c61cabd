// Command stubnode is a minimal node for exercising the smoketest harness
// without a real node distribution. It reads node.conf from the working
// directory, fills the artemis state directory, and serves the Node RPC
// service until SIGTERM or SIGINT.
//
// Environment:
//
//	STUBNODE_STARTUP_DELAY  delay before the RPC port opens (time.ParseDuration)
//	STUBNODE_LOG_LEVEL      slog level, default INFO
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giantswarm/smoketest/internal/stubnode"
)

const (
	startupDelayEnv = "STUBNODE_STARTUP_DELAY"
	logLevelEnv     = "STUBNODE_LOG_LEVEL"
)

func main() {
	dir := flag.String("dir", "", "node directory holding node.conf (default: working directory)")
	journals := flag.Int("journal-files", 0, "number of journal files to preallocate")
	flag.Parse()

	log := newLogger()

	delay, err := startupDelay()
	if err != nil {
		log.Error("invalid startup delay", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer stop()

	err = stubnode.Run(ctx, stubnode.Options{
		Dir:          *dir,
		StartupDelay: delay,
		JournalFiles: *journals,
		Logger:       log,
	})
	if err != nil {
		log.Error("node stopped", "error", err)
		stop()
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv(logLevelEnv))); err != nil {
		level = slog.LevelInfo
	}
	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("component", "stubnode")
}

func startupDelay() (time.Duration, error) {
	v := os.Getenv(startupDelayEnv)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", startupDelayEnv, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %v", startupDelayEnv, d)
	}
	return d, nil
}
