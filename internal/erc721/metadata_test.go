package erc721

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fakeCaller fails a fixed number of leading calls, optionally by stalling
// past the fetcher's timeout, then answers with the configured URI.
type fakeCaller struct {
	mu       sync.Mutex
	calls    int
	failures int
	stall    time.Duration
	uri      string
}

func (c *fakeCaller) CallContract(_ context.Context, _ ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c.mu.Lock()
	c.calls++
	call := c.calls
	c.mu.Unlock()

	if call <= c.failures {
		if c.stall > 0 {
			time.Sleep(c.stall)
		}
		return nil, fmt.Errorf("attempt %d failed", call)
	}
	return encodeTokenURI(c.uri)
}

func (c *fakeCaller) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func encodeTokenURI(uri string) ([]byte, error) {
	tokenABI, err := ERC721ABI()
	if err != nil {
		return nil, err
	}
	return tokenABI.Methods["tokenURI"].Outputs.Pack(uri)
}

const trackedAddress = "0x822f31039f5809fa9dd9877c4f91a46de71cde63"

func newTestFetcher(t *testing.T, caller ContractCaller, timeout time.Duration, attempts int, logger *zap.Logger) *URIFetcher {
	t.Helper()
	registry, err := NewRegistry(testContracts())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return NewURIFetcher(caller, registry, timeout, attempts, logger)
}

func TestFetchTokenURISucceedsAfterFailures(t *testing.T) {
	caller := &fakeCaller{failures: 2, uri: "ipfs://meta/7"}
	core, logs := observer.New(zapcore.WarnLevel)
	fetcher := newTestFetcher(t, caller, time.Second, 3, zap.New(core))

	uri, err := fetcher.FetchTokenURI(context.Background(), "7", trackedAddress)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if uri != "ipfs://meta/7" {
		t.Fatalf("uri mismatch: %s", uri)
	}
	if caller.callCount() != 3 {
		t.Fatalf("expected 3 calls, got %d", caller.callCount())
	}
	if logs.Len() != 2 {
		t.Fatalf("expected 2 warning entries, got %d", logs.Len())
	}
}

func TestFetchTokenURIExhaustsAttempts(t *testing.T) {
	caller := &fakeCaller{failures: 10, uri: "ipfs://meta/7"}
	fetcher := newTestFetcher(t, caller, time.Second, 3, zap.NewNop())

	_, err := fetcher.FetchTokenURI(context.Background(), "7", trackedAddress)
	if !errors.Is(err, ErrFetchExhausted) {
		t.Fatalf("expected ErrFetchExhausted, got %v", err)
	}
	if caller.callCount() != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", caller.callCount())
	}
}

func TestFetchTokenURITimeoutThenSuccess(t *testing.T) {
	caller := &fakeCaller{failures: 2, stall: 200 * time.Millisecond, uri: "ipfs://meta/9"}
	core, logs := observer.New(zapcore.WarnLevel)
	fetcher := newTestFetcher(t, caller, 20*time.Millisecond, 3, zap.New(core))

	uri, err := fetcher.FetchTokenURI(context.Background(), "9", trackedAddress)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if uri != "ipfs://meta/9" {
		t.Fatalf("uri mismatch: %s", uri)
	}
	if logs.Len() != 2 {
		t.Fatalf("expected 2 warning entries, got %d", logs.Len())
	}
}

func TestFetchTokenURIUnknownContract(t *testing.T) {
	caller := &fakeCaller{uri: "ipfs://meta/7"}
	fetcher := newTestFetcher(t, caller, time.Second, 3, zap.NewNop())

	_, err := fetcher.FetchTokenURI(context.Background(), "7", "0x0000000000000000000000000000000000000001")
	if !errors.Is(err, ErrUnknownContract) {
		t.Fatalf("expected ErrUnknownContract, got %v", err)
	}
	if caller.callCount() != 0 {
		t.Fatalf("no call should be issued for an untracked contract")
	}
}

func TestFetchTokenURIInvalidTokenID(t *testing.T) {
	caller := &fakeCaller{uri: "ipfs://meta/7"}
	fetcher := newTestFetcher(t, caller, time.Second, 3, zap.NewNop())

	if _, err := fetcher.FetchTokenURI(context.Background(), "not-a-number", trackedAddress); err == nil {
		t.Fatalf("expected error for non-numeric token id")
	}
}
