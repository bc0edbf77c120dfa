package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dext/tap-intercom/internal/pipeline"
	"github.com/dext/tap-intercom/pkg/clients"
	"github.com/dext/tap-intercom/pkg/config"
	"github.com/dext/tap-intercom/pkg/logger"
	"github.com/dext/tap-intercom/pkg/tap/auth"
	"github.com/dext/tap-intercom/pkg/tap/state"
	"github.com/dext/tap-intercom/pkg/tap/streams"
)

var version = "1.0.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "tap-intercom",
		Short: "tap-intercom - Intercom extraction connector",
		Long: `tap-intercom extracts conversations, contacts, tickets, and workspace
resources from the Intercom API, emitting schema-tagged record and state
messages on stdout for downstream loaders.`,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tap-intercom v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "streams",
		Short: "List streams in the catalog",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available streams:")
			for _, name := range streams.Names() {
				fmt.Printf("  - %s\n", name)
			}
		},
	})

	var configFile, stateFile, logLevel string
	var selected []string

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a sync",
		Long: `Run a sync against the configured workspace. Records and state are
written to stdout; logs go to stderr.

Example:
  tap-intercom sync --config config.yaml --state state.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(configFile, stateFile, logLevel, selected)
		},
	}
	syncCmd.Flags().StringVarP(&configFile, "config", "c", "", "path to the configuration file (required)")
	syncCmd.Flags().StringVarP(&stateFile, "state", "s", "", "path to the state file; updated after the sync")
	syncCmd.Flags().StringSliceVar(&selected, "streams", nil, "subset of streams to sync (default: all)")
	syncCmd.Flags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	_ = syncCmd.MarkFlagRequired("config")
	root.AddCommand(syncCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runSync(configFile, stateFile, logLevel string, selected []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if len(selected) > 0 {
		cfg.Catalog.Streams = selected
	}
	if logLevel != "" {
		cfg.Observability.LogLevel = logLevel
	}

	if err := logger.Init(logger.Config{Level: cfg.Observability.LogLevel}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transport, err := auth.NewTransport(ctx, cfg.Credentials)
	if err != nil {
		return err
	}
	client := clients.NewClient(cfg, transport)

	store := state.NewStore()
	if stateFile != "" {
		store, err = state.LoadFile(stateFile)
		if err != nil {
			return err
		}
	}

	runner, err := pipeline.New(cfg, client, store, os.Stdout)
	if err != nil {
		return err
	}

	runErr := runner.Run(ctx)
	if stateFile != "" {
		if err := store.SaveFile(stateFile); err != nil {
			logger.Get().Error("failed to persist state", zap.Error(err))
			if runErr == nil {
				runErr = err
			}
		}
	}
	return runErr
}
