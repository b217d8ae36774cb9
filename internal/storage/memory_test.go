package storage

import (
	"context"
	"testing"

	"tokenScope/internal/model"
)

func TestMemoryStoreInsertIgnoresDuplicates(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first := &model.Transfer{ID: "0000001000-000000", FromID: "0xA", ToID: "0xB", TokenID: "ARTK-7"}
	replay := &model.Transfer{ID: "0000001000-000000", FromID: "0xC", ToID: "0xD", TokenID: "ARTK-9"}

	if err := store.InsertTransfers(ctx, []*model.Transfer{first}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.InsertTransfers(ctx, []*model.Transfer{replay}); err != nil {
		t.Fatalf("replay insert: %v", err)
	}

	transfers := store.Transfers()
	if len(transfers) != 1 {
		t.Fatalf("expected 1 transfer, got %d", len(transfers))
	}
	if transfers[0].FromID != "0xA" {
		t.Fatalf("replay must not overwrite the original row: %+v", transfers[0])
	}
}

func TestMemoryStoreSaveUpserts(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	token := &model.Token{ID: "ARTK-7", URI: "ipfs://meta/7", ContractID: "0xc0", OwnerID: "0xA"}
	if err := store.SaveTokens(ctx, []*model.Token{token}); err != nil {
		t.Fatalf("save: %v", err)
	}

	token.OwnerID = "0xB"
	if err := store.SaveTokens(ctx, []*model.Token{token}); err != nil {
		t.Fatalf("resave: %v", err)
	}

	got, ok := store.Token("ARTK-7")
	if !ok {
		t.Fatalf("token missing")
	}
	if got.OwnerID != "0xB" {
		t.Fatalf("save must overwrite, got owner %s", got.OwnerID)
	}
	if store.TokenCount() != 1 {
		t.Fatalf("expected 1 token, got %d", store.TokenCount())
	}
}

func TestMemoryStoreFindReturnsSubset(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.SaveOwners(ctx, []*model.Owner{
		{ID: "0xA", Balance: 2},
		{ID: "0xB", Balance: 1},
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	found, err := store.FindOwners(ctx, []string{"0xA", "0xZ"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(found) != 1 || found[0].ID != "0xA" || found[0].Balance != 2 {
		t.Fatalf("unexpected result: %+v", found)
	}
}

func TestMemoryStoreContractSnapshots(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	contract := &model.Contract{ID: "0xc0", Name: "ArcticToken", Symbol: "ARTK", TotalSupply: 3}
	if err := store.InsertContract(ctx, contract); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.InsertContract(ctx, &model.Contract{ID: "0xc0", Name: "Other"}); err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}

	got, found, err := store.GetContract(ctx, "0xc0")
	if err != nil || !found {
		t.Fatalf("get: %v found=%v", err, found)
	}
	if got.Name != "ArcticToken" {
		t.Fatalf("duplicate insert must be ignored: %s", got.Name)
	}

	// the returned row is a copy, not an alias into the store
	got.MintedTokens = append(got.MintedTokens, "ARTK-1")
	again, _, err := store.GetContract(ctx, "0xc0")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(again.MintedTokens) != 0 {
		t.Fatalf("stored row mutated through returned copy")
	}
}
