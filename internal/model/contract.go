package model

// Contract is a tracked ERC-721 contract mirrored into the store on first
// reference. Only MintedTokens grows after creation.
type Contract struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Symbol       string   `json:"symbol"`
	TotalSupply  uint64   `json:"total_supply"`
	MintedTokens []string `json:"minted_tokens"`
}
