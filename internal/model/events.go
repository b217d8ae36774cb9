package model

// DecodedEvent is a log event decoded into one of the typed records below.
// The sequence handed to the materializer preserves delivery order across
// both kinds.
type DecodedEvent interface {
	decodedEvent()
}

// TransferEvent is a decoded ERC-721 Transfer log. Token is the raw numeric
// token id as a decimal string, not the composite key.
type TransferEvent struct {
	ID              string `json:"id"`
	Token           string `json:"token"`
	From            string `json:"from"`
	To              string `json:"to"`
	Timestamp       uint64 `json:"timestamp"`
	Block           uint64 `json:"block"`
	TransactionHash string `json:"transaction_hash"`
	ContractAddress string `json:"contract_address"`
}

// ApprovalEvent is a decoded ERC-721 Approval log.
type ApprovalEvent struct {
	ID              string `json:"id"`
	Token           string `json:"token"`
	Owner           string `json:"owner"`
	Approved        string `json:"approved"`
	Timestamp       uint64 `json:"timestamp"`
	Block           uint64 `json:"block"`
	TransactionHash string `json:"transaction_hash"`
	ContractAddress string `json:"contract_address"`
}

func (TransferEvent) decodedEvent() {}
func (ApprovalEvent) decodedEvent() {}
