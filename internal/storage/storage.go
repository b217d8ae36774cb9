package storage

import (
	"context"

	"tokenScope/internal/model"
)

// Store is the persistent entity store boundary. Entities are keyed by their
// id fields; Find methods return only the rows that exist, Insert methods are
// idempotent on the primary key, and Save upserts.
type Store interface {
	GetContract(ctx context.Context, id string) (*model.Contract, bool, error)
	InsertContract(ctx context.Context, contract *model.Contract) error
	SaveContracts(ctx context.Context, contracts []*model.Contract) error

	FindOwners(ctx context.Context, ids []string) ([]*model.Owner, error)
	SaveOwners(ctx context.Context, owners []*model.Owner) error

	FindTokens(ctx context.Context, ids []string) ([]*model.Token, error)
	SaveTokens(ctx context.Context, tokens []*model.Token) error

	InsertTransfers(ctx context.Context, transfers []*model.Transfer) error
	InsertApprovals(ctx context.Context, approvals []*model.Approval) error
}
