package storage

import (
	"context"
	"sync"

	"tokenScope/internal/model"
)

// MemoryStore keeps entities in process memory with the same key semantics
// as the Postgres store: ids are primary keys, inserts ignore existing rows,
// saves upsert. It backs tests and dry runs.
type MemoryStore struct {
	mu        sync.Mutex
	contracts map[string]model.Contract
	owners    map[string]model.Owner
	tokens    map[string]model.Token
	transfers map[string]model.Transfer
	approvals map[string]model.Approval
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contracts: make(map[string]model.Contract),
		owners:    make(map[string]model.Owner),
		tokens:    make(map[string]model.Token),
		transfers: make(map[string]model.Transfer),
		approvals: make(map[string]model.Approval),
	}
}

func (s *MemoryStore) GetContract(_ context.Context, id string) (*model.Contract, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contract, ok := s.contracts[id]
	if !ok {
		return nil, false, nil
	}
	out := contract
	out.MintedTokens = append([]string(nil), contract.MintedTokens...)
	return &out, true, nil
}

func (s *MemoryStore) InsertContract(_ context.Context, contract *model.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contracts[contract.ID]; ok {
		return nil
	}
	s.contracts[contract.ID] = snapshotContract(contract)
	return nil
}

func (s *MemoryStore) SaveContracts(_ context.Context, contracts []*model.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, contract := range contracts {
		s.contracts[contract.ID] = snapshotContract(contract)
	}
	return nil
}

func (s *MemoryStore) FindOwners(_ context.Context, ids []string) ([]*model.Owner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Owner, 0, len(ids))
	for _, id := range ids {
		if owner, ok := s.owners[id]; ok {
			copied := owner
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *MemoryStore) SaveOwners(_ context.Context, owners []*model.Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, owner := range owners {
		s.owners[owner.ID] = *owner
	}
	return nil
}

func (s *MemoryStore) FindTokens(_ context.Context, ids []string) ([]*model.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Token, 0, len(ids))
	for _, id := range ids {
		if token, ok := s.tokens[id]; ok {
			copied := token
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *MemoryStore) SaveTokens(_ context.Context, tokens []*model.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, token := range tokens {
		s.tokens[token.ID] = *token
	}
	return nil
}

func (s *MemoryStore) InsertTransfers(_ context.Context, transfers []*model.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, transfer := range transfers {
		if _, ok := s.transfers[transfer.ID]; ok {
			continue
		}
		s.transfers[transfer.ID] = *transfer
	}
	return nil
}

func (s *MemoryStore) InsertApprovals(_ context.Context, approvals []*model.Approval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, approval := range approvals {
		if _, ok := s.approvals[approval.ID]; ok {
			continue
		}
		s.approvals[approval.ID] = *approval
	}
	return nil
}

// Transfers returns all persisted transfer records, for inspection in tests.
func (s *MemoryStore) Transfers() []model.Transfer {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Transfer, 0, len(s.transfers))
	for _, transfer := range s.transfers {
		out = append(out, transfer)
	}
	return out
}

// Approvals returns all persisted approval records, for inspection in tests.
func (s *MemoryStore) Approvals() []model.Approval {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Approval, 0, len(s.approvals))
	for _, approval := range s.approvals {
		out = append(out, approval)
	}
	return out
}

// Owner returns one owner row by id, for inspection in tests.
func (s *MemoryStore) Owner(id string) (model.Owner, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.owners[id]
	return owner, ok
}

// Token returns one token row by id, for inspection in tests.
func (s *MemoryStore) Token(id string) (model.Token, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[id]
	return token, ok
}

// OwnerCount reports how many owner rows exist.
func (s *MemoryStore) OwnerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.owners)
}

// TokenCount reports how many token rows exist.
func (s *MemoryStore) TokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

func snapshotContract(contract *model.Contract) model.Contract {
	out := *contract
	out.MintedTokens = append([]string(nil), contract.MintedTokens...)
	return out
}
