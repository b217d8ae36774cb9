package erc721

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"tokenScope/internal/model"
)

// Decoder decodes ERC-721 Transfer and Approval logs into typed events.
type Decoder struct {
	tokenABI    abi.ABI
	topicToName map[string]string
}

// NewDecoder builds a decoder for the two tracked event signatures.
func NewDecoder() (*Decoder, error) {
	tokenABI, err := ERC721ABI()
	if err != nil {
		return nil, err
	}

	topicToName := map[string]string{
		strings.ToLower(tokenABI.Events["Transfer"].ID.Hex()): "Transfer",
		strings.ToLower(tokenABI.Events["Approval"].ID.Hex()): "Approval",
	}

	return &Decoder{
		tokenABI:    tokenABI,
		topicToName: topicToName,
	}, nil
}

// CanDecode checks if the topic0 is a tracked event signature. Logs with
// unknown topics are not an error; callers skip them.
func (d *Decoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.topicToName[strings.ToLower(topic0)]
	return ok
}

// Topics returns the tracked topic0 hashes for log filtering.
func (d *Decoder) Topics() []common.Hash {
	return []common.Hash{
		d.tokenABI.Events["Transfer"].ID,
		d.tokenABI.Events["Approval"].ID,
	}
}

// Decode converts a log item with a recognized topic into a TransferEvent or
// ApprovalEvent. A malformed payload on a recognized topic is a hard error.
func (d *Decoder) Decode(header model.BlockHeader, item model.LogItem) (model.DecodedEvent, error) {
	if len(item.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	name, ok := d.topicToName[strings.ToLower(item.Topics[0])]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", item.Topics[0])
	}

	if !common.IsHexAddress(item.Address) {
		return nil, fmt.Errorf("invalid contract address: %s", item.Address)
	}

	switch name {
	case "Transfer":
		return d.decodeTransfer(header, item)
	case "Approval":
		return d.decodeApproval(header, item)
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
}

func (d *Decoder) decodeTransfer(header model.BlockHeader, item model.LogItem) (model.DecodedEvent, error) {
	event := d.tokenABI.Events["Transfer"]
	indexedTopics, err := parseIndexedTopics(event, item.Topics)
	if err != nil {
		return nil, err
	}

	var indexed struct {
		From    common.Address
		To      common.Address
		TokenId *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}

	return model.TransferEvent{
		ID:              item.ID,
		Token:           indexed.TokenId.String(),
		From:            indexed.From.Hex(),
		To:              indexed.To.Hex(),
		Timestamp:       header.Timestamp,
		Block:           header.Number,
		TransactionHash: item.TxHash,
		ContractAddress: strings.ToLower(item.Address),
	}, nil
}

func (d *Decoder) decodeApproval(header model.BlockHeader, item model.LogItem) (model.DecodedEvent, error) {
	event := d.tokenABI.Events["Approval"]
	indexedTopics, err := parseIndexedTopics(event, item.Topics)
	if err != nil {
		return nil, err
	}

	var indexed struct {
		Owner    common.Address
		Approved common.Address
		TokenId  *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}

	return model.ApprovalEvent{
		ID:              item.ID,
		Token:           indexed.TokenId.String(),
		Owner:           indexed.Owner.Hex(),
		Approved:        indexed.Approved.Hex(),
		Timestamp:       header.Timestamp,
		Block:           header.Number,
		TransactionHash: item.TxHash,
		ContractAddress: strings.ToLower(item.Address),
	}, nil
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	return parseTopicHashes(topics[1:])
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}
