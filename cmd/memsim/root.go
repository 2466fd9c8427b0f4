package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

var (
	// Global flags
	logLevel        string
	memoryLatency   int
	cacheConfigPath string
	scriptPath      string
)

var rootCmd = &cobra.Command{
	Use:   "memsim",
	Short: "Simulate a heap allocator and a multi-level cache",
	Long: `memsim is an interactive simulator for two operating system memory
subsystems: a block-list heap allocator with first, best and worst fit
placement, and a set-associative cache hierarchy with FIFO or LRU
replacement and write-back accounting.

Example:
  memsim
  memsim --script session.txt
  memsim --cache-config caches.yaml --memory-latency 200`,
	Version:       "0.1.0",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Engine log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().IntVar(&memoryLatency, "memory-latency", 0, "Main memory latency in cycles (default 100)")
	rootCmd.PersistentFlags().StringVar(&cacheConfigPath, "cache-config", "", "YAML file with default answers for 'init cache'")
	rootCmd.PersistentFlags().StringVar(&scriptPath, "script", "", "Read commands from a file instead of stdin")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func parseLogLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}

	return slog.LevelInfo, errors.Newf("unknown log level %q", name)
}

func runSession(stdin io.Reader, stdout, stderr io.Writer) error {
	level, err := parseLogLevel(logLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	options := SessionOptions{
		MemoryLatency: memoryLatency,
		CacheDefaults: DefaultCacheFile(),
		Interactive:   true,
	}

	if cacheConfigPath != "" {
		options.CacheDefaults, err = LoadCacheFile(cacheConfigPath)
		if err != nil {
			return err
		}
	}

	in := stdin
	if scriptPath != "" {
		script, err := os.Open(scriptPath)
		if err != nil {
			return errors.Wrap(err, "failed to open script")
		}
		defer script.Close()

		in = script
		options.Interactive = false
	}

	session := NewSession(in, stdout, logger, options)
	return session.Run()
}
