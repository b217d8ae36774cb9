package model

import "fmt"

// Token is one ERC-721 token under a tracked contract. The id is the
// composite "{symbol}-{tokenId}" key, so identical numeric token ids under
// different contracts never collide. URI is fetched once at creation and
// never refreshed.
type Token struct {
	ID         string `json:"id"`
	URI        string `json:"uri"`
	ContractID string `json:"contract_id"`
	OwnerID    string `json:"owner_id"`
}

// NewToken builds a Token from its composite id, fetched URI, and owning
// contract. The owner is set by the first event that references the token.
func NewToken(id, uri, contractID string) (*Token, error) {
	if id == "" {
		return nil, fmt.Errorf("token id is required")
	}
	if contractID == "" {
		return nil, fmt.Errorf("token %s: contract id is required", id)
	}
	return &Token{ID: id, URI: uri, ContractID: contractID}, nil
}
