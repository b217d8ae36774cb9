package erc721

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"tokenScope/internal/model"
)

// ErrUnknownContract marks an address outside the tracked contract set.
// The pipeline only understands contracts it was configured to follow, so
// hitting this means misconfiguration.
var ErrUnknownContract = errors.New("unknown contract")

// TrackedContract is the static descriptor of one tracked ERC-721 contract.
type TrackedContract struct {
	Address     string
	Name        string
	Symbol      string
	TotalSupply uint64
}

// ContractStore is the store subset the registry needs to materialize
// contract entities.
type ContractStore interface {
	GetContract(ctx context.Context, id string) (*model.Contract, bool, error)
	InsertContract(ctx context.Context, contract *model.Contract) error
}

// Registry maps tracked contract addresses to their static descriptors and
// caches the persisted Contract entity per address for the process lifetime.
// It is built once at startup and passed in explicitly; there is no
// package-level contract table.
type Registry struct {
	contracts map[string]TrackedContract

	mu       sync.Mutex
	entities map[string]*model.Contract
}

// NewRegistry validates and lowercase-normalizes the tracked contract set.
func NewRegistry(contracts []TrackedContract) (*Registry, error) {
	if len(contracts) == 0 {
		return nil, fmt.Errorf("at least one tracked contract is required")
	}

	byAddress := make(map[string]TrackedContract, len(contracts))
	for _, contract := range contracts {
		if !common.IsHexAddress(contract.Address) {
			return nil, fmt.Errorf("invalid contract address: %s", contract.Address)
		}
		if contract.Symbol == "" {
			return nil, fmt.Errorf("contract %s: symbol is required", contract.Address)
		}
		address := strings.ToLower(contract.Address)
		if _, ok := byAddress[address]; ok {
			return nil, fmt.Errorf("duplicate contract address: %s", address)
		}
		contract.Address = address
		byAddress[address] = contract
	}

	return &Registry{
		contracts: byAddress,
		entities:  make(map[string]*model.Contract, len(byAddress)),
	}, nil
}

// Resolve returns the static descriptor for a tracked address.
func (r *Registry) Resolve(address string) (TrackedContract, error) {
	contract, ok := r.contracts[strings.ToLower(address)]
	if !ok {
		return TrackedContract{}, fmt.Errorf("%w: %s", ErrUnknownContract, address)
	}
	return contract, nil
}

// Addresses returns the tracked addresses for log filtering.
func (r *Registry) Addresses() []common.Address {
	out := make([]common.Address, 0, len(r.contracts))
	for address := range r.contracts {
		out = append(out, common.HexToAddress(address))
	}
	return out
}

// CompositeTokenID builds the "{symbol}-{tokenId}" key that keeps identical
// raw token ids under different contracts apart.
func (r *Registry) CompositeTokenID(address, rawID string) (string, error) {
	contract, err := r.Resolve(address)
	if err != nil {
		return "", err
	}
	return contract.Symbol + "-" + rawID, nil
}

// ContractEntity returns the persisted Contract for a tracked address,
// loading it from the store on first reference and inserting it from the
// static descriptor if the store has no row yet.
func (r *Registry) ContractEntity(ctx context.Context, store ContractStore, address string) (*model.Contract, error) {
	descriptor, err := r.Resolve(address)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entity, ok := r.entities[descriptor.Address]; ok {
		return entity, nil
	}

	entity, found, err := store.GetContract(ctx, descriptor.Address)
	if err != nil {
		return nil, fmt.Errorf("load contract %s: %w", descriptor.Address, err)
	}
	if !found {
		entity = &model.Contract{
			ID:           descriptor.Address,
			Name:         descriptor.Name,
			Symbol:       descriptor.Symbol,
			TotalSupply:  descriptor.TotalSupply,
			MintedTokens: []string{},
		}
		if err := store.InsertContract(ctx, entity); err != nil {
			return nil, fmt.Errorf("insert contract %s: %w", descriptor.Address, err)
		}
	}

	r.entities[descriptor.Address] = entity
	return entity, nil
}
