package model

import "fmt"

// Owner is an account that has held, received, or been approved for a token.
// Balance is informational and not recomputed by the pipeline.
type Owner struct {
	ID      string `json:"id"`
	Balance uint64 `json:"balance"`
}

// NewOwner builds an Owner with a zero balance.
func NewOwner(id string) (*Owner, error) {
	if id == "" {
		return nil, fmt.Errorf("owner id is required")
	}
	return &Owner{ID: id}, nil
}
