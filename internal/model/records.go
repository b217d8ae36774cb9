package model

// Transfer is the immutable persisted record of one Transfer event. It
// references resolved entities by id and is never revisited after flush.
type Transfer struct {
	ID              string `json:"id"`
	FromID          string `json:"from_id"`
	ToID            string `json:"to_id"`
	TokenID         string `json:"token_id"`
	Block           uint64 `json:"block"`
	Timestamp       uint64 `json:"timestamp"`
	TransactionHash string `json:"transaction_hash"`
}

// Approval is the immutable persisted record of one Approval event.
type Approval struct {
	ID              string `json:"id"`
	OwnerID         string `json:"owner_id"`
	ApprovedID      string `json:"approved_id"`
	TokenID         string `json:"token_id"`
	Block           uint64 `json:"block"`
	Timestamp       uint64 `json:"timestamp"`
	TransactionHash string `json:"transaction_hash"`
}
