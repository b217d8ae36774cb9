package model

// BlockHeader carries the block fields decoded events need.
type BlockHeader struct {
	Number    uint64 `json:"number"`
	Hash      string `json:"hash"`
	Timestamp uint64 `json:"timestamp"`
}

// LogItem is one raw log delivered within a block. ID is the source event
// identifier, globally unique across the run.
type LogItem struct {
	ID       string   `json:"id"`
	Address  string   `json:"address"`
	Topics   []string `json:"topics"`
	Data     string   `json:"data"`
	TxHash   string   `json:"tx_hash"`
	LogIndex uint64   `json:"log_index"`
}

// Block pairs a header with its ordered log items.
type Block struct {
	Header BlockHeader `json:"header"`
	Items  []LogItem   `json:"items"`
}

// Batch is one delivered unit of work, processed atomically: it either fully
// commits or the run aborts.
type Batch struct {
	Blocks []Block `json:"blocks"`
}
