package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tokenScope/internal/erc721"
	"tokenScope/internal/model"
	"tokenScope/internal/storage"
)

// Materializer drives one batch through decode, resolve, mutate, and flush.
// Side effects are confined to the flush stage, so a failing batch is
// discarded without touching the store. Batches are processed strictly
// sequentially by a single caller.
type Materializer struct {
	decoder  *erc721.Decoder
	registry *erc721.Registry
	fetcher  *erc721.URIFetcher
	store    storage.Store
	logger   *zap.Logger
}

// NewMaterializer builds a Materializer with its dependencies.
func NewMaterializer(decoder *erc721.Decoder, registry *erc721.Registry, fetcher *erc721.URIFetcher, store storage.Store, logger *zap.Logger) *Materializer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Materializer{
		decoder:  decoder,
		registry: registry,
		fetcher:  fetcher,
		store:    store,
		logger:   logger,
	}
}

// ProcessBatch materializes one batch of blocks. It either fully commits or
// returns an error with nothing persisted.
func (m *Materializer) ProcessBatch(ctx context.Context, batch model.Batch) error {
	events, err := m.decode(batch)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	ownerIDs, refs, err := m.collectRefs(events)
	if err != nil {
		return err
	}

	res := newResolver(m.store, m.registry, m.fetcher)
	if err := res.hydrate(ctx, ownerIDs, refs); err != nil {
		return err
	}

	transfers, approvals, err := m.mutate(ctx, res, events)
	if err != nil {
		return err
	}

	if err := m.flush(ctx, res, transfers, approvals); err != nil {
		return err
	}

	m.logger.Info("batch materialized",
		zap.Int("events", len(events)),
		zap.Int("transfers", len(transfers)),
		zap.Int("approvals", len(approvals)),
		zap.Int("owners", len(ownerIDs)),
		zap.Int("tokens", len(refs)),
	)
	return nil
}

// decode walks blocks and items in delivery order. Logs with unknown topics
// are skipped; a malformed payload on a recognized topic aborts the batch.
func (m *Materializer) decode(batch model.Batch) ([]model.DecodedEvent, error) {
	var events []model.DecodedEvent
	for _, block := range batch.Blocks {
		for _, item := range block.Items {
			if len(item.Topics) == 0 || !m.decoder.CanDecode(item.Topics[0]) {
				continue
			}
			event, err := m.decoder.Decode(block.Header, item)
			if err != nil {
				return nil, fmt.Errorf("decode log %s: %w", item.ID, err)
			}
			events = append(events, event)
		}
	}
	return events, nil
}

// collectRefs gathers the union of referenced owner ids and composite token
// refs across both event kinds, preserving first-reference order.
func (m *Materializer) collectRefs(events []model.DecodedEvent) ([]string, []tokenRef, error) {
	var ownerIDs []string
	var refs []tokenRef
	seenOwners := make(map[string]struct{})
	seenTokens := make(map[string]struct{})

	addOwner := func(id string) {
		if _, ok := seenOwners[id]; ok {
			return
		}
		seenOwners[id] = struct{}{}
		ownerIDs = append(ownerIDs, id)
	}
	addToken := func(contractAddress, rawID string) error {
		composite, err := m.registry.CompositeTokenID(contractAddress, rawID)
		if err != nil {
			return err
		}
		if _, ok := seenTokens[composite]; ok {
			return nil
		}
		seenTokens[composite] = struct{}{}
		refs = append(refs, tokenRef{id: composite, rawID: rawID, contract: contractAddress})
		return nil
	}

	for _, event := range events {
		switch event := event.(type) {
		case model.TransferEvent:
			addOwner(event.From)
			addOwner(event.To)
			if err := addToken(event.ContractAddress, event.Token); err != nil {
				return nil, nil, err
			}
		case model.ApprovalEvent:
			addOwner(event.Owner)
			addOwner(event.Approved)
			if err := addToken(event.ContractAddress, event.Token); err != nil {
				return nil, nil, err
			}
		default:
			return nil, nil, fmt.Errorf("unexpected event type %T", event)
		}
	}
	return ownerIDs, refs, nil
}

// mutate walks the interleaved event sequence in delivery order. Token
// ownership is last-write-wins over that single ordering, so a transfer and
// an approval touching the same token resolve by true chain order.
func (m *Materializer) mutate(ctx context.Context, res *resolver, events []model.DecodedEvent) ([]*model.Transfer, []*model.Approval, error) {
	var transfers []*model.Transfer
	var approvals []*model.Approval

	for _, event := range events {
		switch event := event.(type) {
		case model.TransferEvent:
			from, err := res.owner(event.From)
			if err != nil {
				return nil, nil, err
			}
			to, err := res.owner(event.To)
			if err != nil {
				return nil, nil, err
			}
			token, err := m.resolveToken(ctx, res, event.ContractAddress, event.Token)
			if err != nil {
				return nil, nil, err
			}
			token.OwnerID = to.ID
			transfers = append(transfers, &model.Transfer{
				ID:              event.ID,
				FromID:          from.ID,
				ToID:            to.ID,
				TokenID:         token.ID,
				Block:           event.Block,
				Timestamp:       event.Timestamp,
				TransactionHash: event.TransactionHash,
			})
		case model.ApprovalEvent:
			owner, err := res.owner(event.Owner)
			if err != nil {
				return nil, nil, err
			}
			approved, err := res.owner(event.Approved)
			if err != nil {
				return nil, nil, err
			}
			token, err := m.resolveToken(ctx, res, event.ContractAddress, event.Token)
			if err != nil {
				return nil, nil, err
			}
			token.OwnerID = approved.ID
			approvals = append(approvals, &model.Approval{
				ID:              event.ID,
				OwnerID:         owner.ID,
				ApprovedID:      approved.ID,
				TokenID:         token.ID,
				Block:           event.Block,
				Timestamp:       event.Timestamp,
				TransactionHash: event.TransactionHash,
			})
		}
	}
	return transfers, approvals, nil
}

func (m *Materializer) resolveToken(ctx context.Context, res *resolver, contractAddress, rawID string) (*model.Token, error) {
	composite, err := m.registry.CompositeTokenID(contractAddress, rawID)
	if err != nil {
		return nil, err
	}
	return res.token(ctx, tokenRef{id: composite, rawID: rawID, contract: contractAddress})
}

// flush persists the working set in dependency order: contracts and owners
// before the tokens that reference them, tokens before the event records.
func (m *Materializer) flush(ctx context.Context, res *resolver, transfers []*model.Transfer, approvals []*model.Approval) error {
	if err := m.store.SaveContracts(ctx, res.touchedContracts()); err != nil {
		return fmt.Errorf("save contracts: %w", err)
	}
	if err := m.store.SaveOwners(ctx, res.touchedOwners()); err != nil {
		return fmt.Errorf("save owners: %w", err)
	}
	if err := m.store.SaveTokens(ctx, res.touchedTokens()); err != nil {
		return fmt.Errorf("save tokens: %w", err)
	}
	if err := m.store.InsertTransfers(ctx, transfers); err != nil {
		return fmt.Errorf("insert transfers: %w", err)
	}
	if err := m.store.InsertApprovals(ctx, approvals); err != nil {
		return fmt.Errorf("insert approvals: %w", err)
	}
	return nil
}
