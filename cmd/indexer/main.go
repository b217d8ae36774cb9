package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tokenScope/internal/chain"
	"tokenScope/internal/config"
	"tokenScope/internal/erc721"
	"tokenScope/internal/pipeline"
	"tokenScope/internal/storage"
	"tokenScope/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "ERC-721 transfer and approval indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the materialization pipeline",
		RunE:  runIndexer,
	}

	runCmd.Flags().String("rpc", "", "chain RPC URL")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN (empty selects the in-memory store)")
	runCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	runCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	runCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	runCmd.Flags().Duration("fetch-timeout", 30*time.Second, "tokenURI call timeout per attempt")
	runCmd.Flags().Int("fetch-attempts", 3, "tokenURI attempts before giving up")
	runCmd.Flags().Int("max-retries", 5, "chain RPC retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial chain RPC retry backoff")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if len(cfg.Contracts) == 0 {
		return fmt.Errorf("at least one tracked contract is required")
	}

	tracked := make([]erc721.TrackedContract, 0, len(cfg.Contracts))
	for _, contract := range cfg.Contracts {
		tracked = append(tracked, erc721.TrackedContract{
			Address:     contract.Address,
			Name:        contract.Name,
			Symbol:      contract.Symbol,
			TotalSupply: contract.TotalSupply,
		})
	}
	registry, err := erc721.NewRegistry(tracked)
	if err != nil {
		return err
	}

	decoder, err := erc721.NewDecoder()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	var store storage.Store
	if cfg.PGDSN != "" {
		pgStore, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pgStore.Close()
		store = pgStore
	} else {
		logger.Warn("no pg dsn configured, using in-memory store")
		store = storage.NewMemoryStore()
	}

	fetcher := erc721.NewURIFetcher(chainClient, registry, cfg.FetchTimeout, cfg.FetchAttempts, logger)
	materializer := pipeline.NewMaterializer(decoder, registry, fetcher, store, logger)

	runner := pipeline.NewRunner(pipeline.RunConfig{
		FromBlock:         cfg.FromBlock,
		ToBlock:           cfg.ToBlock,
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, chainClient, decoder, registry, materializer, logger)

	logger.Info("indexer start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("contracts", len(cfg.Contracts)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Duration("fetch_timeout", cfg.FetchTimeout),
		zap.Int("fetch_attempts", cfg.FetchAttempts),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	return runner.Run(ctx)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
