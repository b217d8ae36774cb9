package pipeline

import (
	"context"
	"fmt"

	"tokenScope/internal/erc721"
	"tokenScope/internal/model"
	"tokenScope/internal/storage"
)

// tokenRef ties a composite token id to the raw id and the tracked contract
// that minted it.
type tokenRef struct {
	id       string
	rawID    string
	contract string
}

// resolver is the per-batch working set. It is the only place Owner and
// Token instances are created, so one id maps to at most one live instance
// per batch and mutations through one reference are visible through every
// other. The set is discarded with the batch; cross-batch deduplication is
// the store's primary-key check at bulk-load time.
type resolver struct {
	store    storage.Store
	registry *erc721.Registry
	fetcher  *erc721.URIFetcher

	owners     map[string]*model.Owner
	tokens     map[string]*model.Token
	contracts  map[string]*model.Contract
	ownerOrder []string
	tokenOrder []string
}

func newResolver(store storage.Store, registry *erc721.Registry, fetcher *erc721.URIFetcher) *resolver {
	return &resolver{
		store:     store,
		registry:  registry,
		fetcher:   fetcher,
		owners:    make(map[string]*model.Owner),
		tokens:    make(map[string]*model.Token),
		contracts: make(map[string]*model.Contract),
	}
}

// hydrate bulk-loads every referenced owner and token in one store request
// per entity kind, then synthesizes the missing ones. Token synthesis is the
// single blocking external call of the pipeline (the URI fetch); it must
// complete for every new token before mutation starts.
func (r *resolver) hydrate(ctx context.Context, ownerIDs []string, refs []tokenRef) error {
	owners, err := r.store.FindOwners(ctx, ownerIDs)
	if err != nil {
		return fmt.Errorf("find owners: %w", err)
	}
	for _, owner := range owners {
		r.track(owner)
	}

	tokenIDs := make([]string, 0, len(refs))
	for _, ref := range refs {
		tokenIDs = append(tokenIDs, ref.id)
	}
	tokens, err := r.store.FindTokens(ctx, tokenIDs)
	if err != nil {
		return fmt.Errorf("find tokens: %w", err)
	}
	for _, token := range tokens {
		r.tokens[token.ID] = token
		r.tokenOrder = append(r.tokenOrder, token.ID)
	}

	for _, id := range ownerIDs {
		if _, err := r.owner(id); err != nil {
			return err
		}
	}
	for _, ref := range refs {
		if _, err := r.token(ctx, ref); err != nil {
			return err
		}
	}
	return nil
}

// owner returns the in-batch instance for an owner id, creating a fresh
// zero-balance owner on first reference.
func (r *resolver) owner(id string) (*model.Owner, error) {
	if owner, ok := r.owners[id]; ok {
		return owner, nil
	}
	owner, err := model.NewOwner(id)
	if err != nil {
		return nil, err
	}
	r.track(owner)
	return owner, nil
}

// token returns the in-batch instance for a composite token id, creating the
// token on first reference. Creation resolves the owning contract, fetches
// the URI, and records the mint on the contract entity.
func (r *resolver) token(ctx context.Context, ref tokenRef) (*model.Token, error) {
	if token, ok := r.tokens[ref.id]; ok {
		return token, nil
	}

	contract, err := r.registry.ContractEntity(ctx, r.store, ref.contract)
	if err != nil {
		return nil, err
	}

	uri, err := r.fetcher.FetchTokenURI(ctx, ref.rawID, ref.contract)
	if err != nil {
		return nil, err
	}

	token, err := model.NewToken(ref.id, uri, contract.ID)
	if err != nil {
		return nil, err
	}

	contract.MintedTokens = append(contract.MintedTokens, token.ID)
	r.contracts[contract.ID] = contract

	r.tokens[token.ID] = token
	r.tokenOrder = append(r.tokenOrder, token.ID)
	return token, nil
}

func (r *resolver) track(owner *model.Owner) {
	r.owners[owner.ID] = owner
	r.ownerOrder = append(r.ownerOrder, owner.ID)
}

// touchedOwners returns every owner in the working set in first-reference
// order.
func (r *resolver) touchedOwners() []*model.Owner {
	out := make([]*model.Owner, 0, len(r.ownerOrder))
	for _, id := range r.ownerOrder {
		out = append(out, r.owners[id])
	}
	return out
}

// touchedTokens returns every token in the working set in first-reference
// order.
func (r *resolver) touchedTokens() []*model.Token {
	out := make([]*model.Token, 0, len(r.tokenOrder))
	for _, id := range r.tokenOrder {
		out = append(out, r.tokens[id])
	}
	return out
}

// touchedContracts returns contracts whose minted-token list grew this batch.
func (r *resolver) touchedContracts() []*model.Contract {
	out := make([]*model.Contract, 0, len(r.contracts))
	for _, contract := range r.contracts {
		out = append(out, contract)
	}
	return out
}
