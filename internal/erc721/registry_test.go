package erc721

import (
	"context"
	"errors"
	"testing"

	"tokenScope/internal/storage"
)

func testContracts() []TrackedContract {
	return []TrackedContract{
		{
			Address:     "0x822F31039F5809FA9DD9877C4F91A46DE71CDE63",
			Name:        "ArcticToken",
			Symbol:      "ARTK",
			TotalSupply: 3,
		},
		{
			Address:     "0x581522ca7b73935e4ad8c165d5635f5e15a7658d",
			Name:        "MyToken",
			Symbol:      "MTK",
			TotalSupply: 0,
		},
	}
}

func TestRegistryNormalizesAddresses(t *testing.T) {
	registry, err := NewRegistry(testContracts())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	contract, err := registry.Resolve("0x822F31039F5809FA9DD9877C4F91A46DE71CDE63")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if contract.Address != "0x822f31039f5809fa9dd9877c4f91a46de71cde63" {
		t.Fatalf("address not normalized: %s", contract.Address)
	}
	if contract.Symbol != "ARTK" {
		t.Fatalf("symbol mismatch: %s", contract.Symbol)
	}
}

func TestRegistryUnknownContract(t *testing.T) {
	registry, err := NewRegistry(testContracts())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	_, err = registry.Resolve("0x0000000000000000000000000000000000000001")
	if !errors.Is(err, ErrUnknownContract) {
		t.Fatalf("expected ErrUnknownContract, got %v", err)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	contracts := testContracts()
	contracts = append(contracts, TrackedContract{
		Address: "0x822f31039f5809fa9dd9877c4f91a46de71cde63",
		Name:    "Copy",
		Symbol:  "CPY",
	})
	if _, err := NewRegistry(contracts); err == nil {
		t.Fatalf("expected duplicate address error")
	}
}

func TestCompositeTokenIDDisambiguates(t *testing.T) {
	registry, err := NewRegistry(testContracts())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	artk, err := registry.CompositeTokenID("0x822f31039f5809fa9dd9877c4f91a46de71cde63", "5")
	if err != nil {
		t.Fatalf("composite id: %v", err)
	}
	mtk, err := registry.CompositeTokenID("0x581522ca7b73935e4ad8c165d5635f5e15a7658d", "5")
	if err != nil {
		t.Fatalf("composite id: %v", err)
	}

	if artk != "ARTK-5" {
		t.Fatalf("composite id mismatch: %s", artk)
	}
	if artk == mtk {
		t.Fatalf("raw token id 5 must not collide across contracts")
	}
}

func TestContractEntityInsertedOnce(t *testing.T) {
	registry, err := NewRegistry(testContracts())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	store := storage.NewMemoryStore()
	ctx := context.Background()

	first, err := registry.ContractEntity(ctx, store, "0x822f31039f5809fa9dd9877c4f91a46de71cde63")
	if err != nil {
		t.Fatalf("contract entity: %v", err)
	}
	second, err := registry.ContractEntity(ctx, store, "0x822F31039F5809FA9DD9877C4F91A46DE71CDE63")
	if err != nil {
		t.Fatalf("contract entity: %v", err)
	}

	if first != second {
		t.Fatalf("expected the cached entity instance on the second call")
	}
	if first.Name != "ArcticToken" || first.TotalSupply != 3 {
		t.Fatalf("descriptor fields not carried: %+v", first)
	}

	stored, found, err := store.GetContract(ctx, "0x822f31039f5809fa9dd9877c4f91a46de71cde63")
	if err != nil || !found {
		t.Fatalf("contract row missing: %v", err)
	}
	if stored.Symbol != "ARTK" {
		t.Fatalf("stored symbol mismatch: %s", stored.Symbol)
	}
}
