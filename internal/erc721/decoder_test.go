package erc721

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"tokenScope/internal/model"
)

func addressTopic(address common.Address) string {
	return common.BytesToHash(common.LeftPadBytes(address.Bytes(), 32)).Hex()
}

func tokenIDTopic(id int64) string {
	return common.BigToHash(big.NewInt(id)).Hex()
}

func testHeader() model.BlockHeader {
	return model.BlockHeader{
		Number:    1000,
		Hash:      "0xblock",
		Timestamp: 1650000000,
	}
}

func TestDecodeTransfer(t *testing.T) {
	decoder, err := NewDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	tokenABI, err := ERC721ABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	from := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	to := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	item := model.LogItem{
		ID:      "0000001000-000007",
		Address: "0x822F31039F5809FA9DD9877C4F91A46DE71CDE63",
		Topics: []string{
			tokenABI.Events["Transfer"].ID.Hex(),
			addressTopic(from),
			addressTopic(to),
			tokenIDTopic(7),
		},
		Data:   "0x",
		TxHash: "0x1",
	}

	event, err := decoder.Decode(testHeader(), item)
	if err != nil {
		t.Fatalf("decode transfer: %v", err)
	}

	transfer, ok := event.(model.TransferEvent)
	if !ok {
		t.Fatalf("expected TransferEvent, got %T", event)
	}
	if transfer.ID != "0000001000-000007" {
		t.Fatalf("id mismatch: %s", transfer.ID)
	}
	if transfer.Token != "7" {
		t.Fatalf("token mismatch: %s", transfer.Token)
	}
	if transfer.From != from.Hex() || transfer.To != to.Hex() {
		t.Fatalf("participants mismatch: %s -> %s", transfer.From, transfer.To)
	}
	if transfer.Block != 1000 || transfer.Timestamp != 1650000000 {
		t.Fatalf("header fields mismatch: %+v", transfer)
	}
	if transfer.TransactionHash != "0x1" {
		t.Fatalf("tx hash mismatch: %s", transfer.TransactionHash)
	}
	if transfer.ContractAddress != "0x822f31039f5809fa9dd9877c4f91a46de71cde63" {
		t.Fatalf("contract address not normalized: %s", transfer.ContractAddress)
	}
}

func TestDecodeApproval(t *testing.T) {
	decoder, err := NewDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	tokenABI, err := ERC721ABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	owner := common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
	approved := common.HexToAddress("0xdddddddddddddddddddddddddddddddddddddddd")

	item := model.LogItem{
		ID:      "0000001000-000008",
		Address: "0x822f31039f5809fa9dd9877c4f91a46de71cde63",
		Topics: []string{
			tokenABI.Events["Approval"].ID.Hex(),
			addressTopic(owner),
			addressTopic(approved),
			tokenIDTopic(42),
		},
		Data:   "0x",
		TxHash: "0x2",
	}

	event, err := decoder.Decode(testHeader(), item)
	if err != nil {
		t.Fatalf("decode approval: %v", err)
	}

	approval, ok := event.(model.ApprovalEvent)
	if !ok {
		t.Fatalf("expected ApprovalEvent, got %T", event)
	}
	if approval.Token != "42" {
		t.Fatalf("token mismatch: %s", approval.Token)
	}
	if approval.Owner != owner.Hex() || approval.Approved != approved.Hex() {
		t.Fatalf("participants mismatch: %s / %s", approval.Owner, approval.Approved)
	}
}

func TestCanDecodeUnknownTopic(t *testing.T) {
	decoder, err := NewDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	if decoder.CanDecode("") {
		t.Fatalf("empty topic should not decode")
	}
	if decoder.CanDecode("0x" + "ff" + "00000000000000000000000000000000000000000000000000000000000000") {
		t.Fatalf("unknown topic should not decode")
	}

	tokenABI, err := ERC721ABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	if !decoder.CanDecode(tokenABI.Events["Transfer"].ID.Hex()) {
		t.Fatalf("transfer topic should decode")
	}
}

func TestDecodeMalformedPayload(t *testing.T) {
	decoder, err := NewDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	tokenABI, err := ERC721ABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	// topic count mismatch on a recognized signature
	item := model.LogItem{
		ID:      "0000001000-000009",
		Address: "0x822f31039f5809fa9dd9877c4f91a46de71cde63",
		Topics: []string{
			tokenABI.Events["Transfer"].ID.Hex(),
			addressTopic(common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")),
		},
		Data: "0x",
	}

	if _, err := decoder.Decode(testHeader(), item); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}
