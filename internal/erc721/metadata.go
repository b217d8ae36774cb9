package erc721

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

var (
	// ErrFetchTimeout marks a single tokenURI attempt that exceeded its
	// budget. It is absorbed by the retry loop unless attempts run out.
	ErrFetchTimeout = errors.New("token uri fetch timed out")
	// ErrFetchExhausted marks a tokenURI fetch whose every attempt failed.
	// It aborts the creation of the token that required it.
	ErrFetchExhausted = errors.New("token uri fetch attempts exhausted")
)

const (
	defaultFetchTimeout  = 30 * time.Second
	defaultFetchAttempts = 3
)

// ContractCaller performs read-only contract calls.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// URIFetcher loads token URIs from tracked contracts. Each call is bounded
// by a timeout and retried a fixed number of times with no backoff.
type URIFetcher struct {
	caller   ContractCaller
	registry *Registry
	timeout  time.Duration
	attempts int
	logger   *zap.Logger
}

// NewURIFetcher builds a fetcher; zero timeout or attempts select defaults.
func NewURIFetcher(caller ContractCaller, registry *Registry, timeout time.Duration, attempts int, logger *zap.Logger) *URIFetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if attempts <= 0 {
		attempts = defaultFetchAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &URIFetcher{
		caller:   caller,
		registry: registry,
		timeout:  timeout,
		attempts: attempts,
		logger:   logger,
	}
}

// FetchTokenURI resolves the external URI for a raw token id on a tracked
// contract. Failed attempts are logged; when all attempts fail the error
// wraps ErrFetchExhausted.
func (f *URIFetcher) FetchTokenURI(ctx context.Context, tokenID, contractAddress string) (string, error) {
	contract, err := f.registry.Resolve(contractAddress)
	if err != nil {
		return "", err
	}

	id, ok := new(big.Int).SetString(tokenID, 10)
	if !ok {
		return "", fmt.Errorf("invalid token id: %s", tokenID)
	}

	var uri string
	err = withRetry(f.attempts, func(attempt int) error {
		value, err := withTimeout(ctx, f.timeout, func(ctx context.Context) (string, error) {
			return f.call(ctx, contract.Address, id)
		})
		if err != nil {
			f.logger.Warn("token uri fetch failed",
				zap.String("token", tokenID),
				zap.String("contract", contract.Address),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		uri = value
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("token %s on %s: %w", tokenID, contract.Address, ErrFetchExhausted)
	}
	return uri, nil
}

func (f *URIFetcher) call(ctx context.Context, address string, tokenID *big.Int) (string, error) {
	tokenABI, err := ERC721ABI()
	if err != nil {
		return "", fmt.Errorf("parse erc721 abi: %w", err)
	}

	data, err := tokenABI.Pack("tokenURI", tokenID)
	if err != nil {
		return "", fmt.Errorf("pack tokenURI: %w", err)
	}

	to := common.HexToAddress(address)
	resp, err := f.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return "", fmt.Errorf("call tokenURI: %w", err)
	}

	values, err := tokenABI.Unpack("tokenURI", resp)
	if err != nil {
		return "", fmt.Errorf("unpack tokenURI: %w", err)
	}
	uri, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected tokenURI type %T", values[0])
	}
	return uri, nil
}
