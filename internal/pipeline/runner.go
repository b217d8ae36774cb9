package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"tokenScope/internal/chain"
	"tokenScope/internal/erc721"
	"tokenScope/internal/model"
)

// RunConfig holds runtime settings for the runner.
type RunConfig struct {
	FromBlock         uint64
	ToBlock           uint64
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Runner is the chain event source adapter: it fetches log ranges, shapes
// them into batches of blocks with ordered items, and feeds the materializer
// one batch at a time. A batch fully commits before the next range is
// touched.
type Runner struct {
	cfg          RunConfig
	chain        *chain.Client
	decoder      *erc721.Decoder
	registry     *erc721.Registry
	materializer *Materializer
	logger       *zap.Logger
	checkpoint   *CheckpointStore
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, chainClient *chain.Client, decoder *erc721.Decoder, registry *erc721.Registry, materializer *Materializer, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:          cfg,
		chain:        chainClient,
		decoder:      decoder,
		registry:     registry,
		materializer: materializer,
		logger:       logger,
		checkpoint:   NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// Run executes the delivery loop over the configured block range.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.materializer == nil {
		return fmt.Errorf("materializer is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.chain.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	if r.checkpoint != nil {
		cp, ok, err := r.checkpoint.Load()
		if err != nil {
			return err
		}
		if ok && cp.LastProcessedBlock >= from {
			from = cp.LastProcessedBlock + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
		}
	}

	if from > to {
		r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	addresses := r.registry.Addresses()
	topics := r.decoder.Topics()

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r.logger.Info("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

		var logs []types.Log
		err := withBackoff(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
			var err error
			logs, err = r.chain.FilterLogs(ctx, blockRange.From, blockRange.To, addresses, topics)
			if err != nil {
				r.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("filter logs: %w", err)
		}

		batch, err := r.buildBatch(ctx, logs)
		if err != nil {
			return err
		}

		if err := r.materializer.ProcessBatch(ctx, batch); err != nil {
			return fmt.Errorf("batch %d-%d: %w", blockRange.From, blockRange.To, err)
		}

		if r.checkpoint != nil {
			if err := r.checkpoint.Save(blockRange.To); err != nil {
				return err
			}
		}

		r.logger.Info("batch complete", zap.Int("logs", len(logs)), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
	}

	return nil
}

// buildBatch groups logs into blocks in delivery order. Logs arrive ordered
// by block number then log index, which the batch preserves.
func (r *Runner) buildBatch(ctx context.Context, logs []types.Log) (model.Batch, error) {
	var batch model.Batch
	for _, log := range logs {
		if log.Removed {
			continue
		}

		if len(batch.Blocks) == 0 || batch.Blocks[len(batch.Blocks)-1].Header.Number != log.BlockNumber {
			header, err := r.headerWithRetry(ctx, log.BlockNumber)
			if err != nil {
				return model.Batch{}, fmt.Errorf("block header %d: %w", log.BlockNumber, err)
			}
			batch.Blocks = append(batch.Blocks, model.Block{Header: header})
		}

		block := &batch.Blocks[len(batch.Blocks)-1]
		block.Items = append(block.Items, buildLogItem(log))
	}
	return batch, nil
}

func (r *Runner) headerWithRetry(ctx context.Context, number uint64) (model.BlockHeader, error) {
	var header model.BlockHeader
	err := withBackoff(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		header, err = r.chain.HeaderSummary(ctx, number)
		if err != nil {
			r.logger.Warn("header fetch failed", zap.Error(err), zap.Uint64("block_number", number))
		}
		return err
	})
	return header, err
}

func buildLogItem(log types.Log) model.LogItem {
	topics := make([]string, 0, len(log.Topics))
	for _, topic := range log.Topics {
		topics = append(topics, topic.Hex())
	}

	return model.LogItem{
		ID:       EventID(log.BlockNumber, uint64(log.Index)),
		Address:  strings.ToLower(log.Address.Hex()),
		Topics:   topics,
		Data:     hexutil.Encode(log.Data),
		TxHash:   log.TxHash.Hex(),
		LogIndex: uint64(log.Index),
	}
}

// EventID builds the globally unique source event identifier for a log.
func EventID(blockNumber, logIndex uint64) string {
	return fmt.Sprintf("%010d-%06d", blockNumber, logIndex)
}
