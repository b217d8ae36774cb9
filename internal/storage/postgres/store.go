package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tokenScope/internal/model"
)

// Store provides Postgres persistence for the entity graph. Event inserts
// rely on the id primary key with ON CONFLICT DO NOTHING, which is what makes
// replaying a flushed batch a no-op.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// GetContract loads one contract row by address.
func (s *Store) GetContract(ctx context.Context, id string) (*model.Contract, bool, error) {
	var contract model.Contract
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, symbol, total_supply, minted_tokens
		FROM contracts WHERE id = $1
	`, id)
	var totalSupply int64
	if err := row.Scan(&contract.ID, &contract.Name, &contract.Symbol, &totalSupply, &contract.MintedTokens); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	contract.TotalSupply = uint64(totalSupply)
	if contract.MintedTokens == nil {
		contract.MintedTokens = []string{}
	}
	return &contract, true, nil
}

// InsertContract inserts a contract row, ignoring an existing one.
func (s *Store) InsertContract(ctx context.Context, contract *model.Contract) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO contracts (id, name, symbol, total_supply, minted_tokens, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (id) DO NOTHING
	`,
		contract.ID,
		contract.Name,
		contract.Symbol,
		int64(contract.TotalSupply),
		contract.MintedTokens,
	)
	return err
}

// SaveContracts upserts contract rows; only minted_tokens changes after the
// first insert.
func (s *Store) SaveContracts(ctx context.Context, contracts []*model.Contract) error {
	if len(contracts) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, contract := range contracts {
		batch.Queue(`
			INSERT INTO contracts (id, name, symbol, total_supply, minted_tokens, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
			ON CONFLICT (id) DO UPDATE SET
				minted_tokens = EXCLUDED.minted_tokens,
				updated_at = now()
		`,
			contract.ID,
			contract.Name,
			contract.Symbol,
			int64(contract.TotalSupply),
			contract.MintedTokens,
		)
	}
	return s.sendBatch(ctx, batch, len(contracts))
}

// FindOwners bulk-loads owner rows by id in one round-trip.
func (s *Store) FindOwners(ctx context.Context, ids []string) ([]*model.Owner, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, balance FROM owners WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	owners := make([]*model.Owner, 0, len(ids))
	for rows.Next() {
		var owner model.Owner
		var balance int64
		if err := rows.Scan(&owner.ID, &balance); err != nil {
			return nil, err
		}
		owner.Balance = uint64(balance)
		owners = append(owners, &owner)
	}
	return owners, rows.Err()
}

// SaveOwners upserts owner rows.
func (s *Store) SaveOwners(ctx context.Context, owners []*model.Owner) error {
	if len(owners) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, owner := range owners {
		batch.Queue(`
			INSERT INTO owners (id, balance, created_at, updated_at)
			VALUES ($1, $2, now(), now())
			ON CONFLICT (id) DO UPDATE SET
				balance = EXCLUDED.balance,
				updated_at = now()
		`,
			owner.ID,
			int64(owner.Balance),
		)
	}
	return s.sendBatch(ctx, batch, len(owners))
}

// FindTokens bulk-loads token rows by composite id in one round-trip.
func (s *Store) FindTokens(ctx context.Context, ids []string) ([]*model.Token, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, uri, contract_id, owner_id FROM tokens WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tokens := make([]*model.Token, 0, len(ids))
	for rows.Next() {
		var token model.Token
		if err := rows.Scan(&token.ID, &token.URI, &token.ContractID, &token.OwnerID); err != nil {
			return nil, err
		}
		tokens = append(tokens, &token)
	}
	return tokens, rows.Err()
}

// SaveTokens upserts token rows. The URI is written once at creation and kept
// on conflict; only ownership moves.
func (s *Store) SaveTokens(ctx context.Context, tokens []*model.Token) error {
	if len(tokens) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, token := range tokens {
		batch.Queue(`
			INSERT INTO tokens (id, uri, contract_id, owner_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
			ON CONFLICT (id) DO UPDATE SET
				owner_id = EXCLUDED.owner_id,
				updated_at = now()
		`,
			token.ID,
			token.URI,
			token.ContractID,
			token.OwnerID,
		)
	}
	return s.sendBatch(ctx, batch, len(tokens))
}

// InsertTransfers inserts transfer records, skipping already-persisted ids.
func (s *Store) InsertTransfers(ctx context.Context, transfers []*model.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, transfer := range transfers {
		batch.Queue(`
			INSERT INTO transfers (id, from_id, to_id, token_id, block, ts, transaction_hash, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now())
			ON CONFLICT (id) DO NOTHING
		`,
			transfer.ID,
			transfer.FromID,
			transfer.ToID,
			transfer.TokenID,
			int64(transfer.Block),
			int64(transfer.Timestamp),
			transfer.TransactionHash,
		)
	}
	return s.sendBatch(ctx, batch, len(transfers))
}

// InsertApprovals inserts approval records, skipping already-persisted ids.
func (s *Store) InsertApprovals(ctx context.Context, approvals []*model.Approval) error {
	if len(approvals) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, approval := range approvals {
		batch.Queue(`
			INSERT INTO approvals (id, owner_id, approved_id, token_id, block, ts, transaction_hash, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now())
			ON CONFLICT (id) DO NOTHING
		`,
			approval.ID,
			approval.OwnerID,
			approval.ApprovedID,
			approval.TokenID,
			int64(approval.Block),
			int64(approval.Timestamp),
			approval.TransactionHash,
		)
	}
	return s.sendBatch(ctx, batch, len(approvals))
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch, n int) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
