package domain

// OutputCategory classifies a wallet transaction entry as reported by the node.
type OutputCategory string

const (
	CategorySend     OutputCategory = "send"
	CategoryReceive  OutputCategory = "receive"
	CategoryGenerate OutputCategory = "generate"
	CategoryImmature OutputCategory = "immature"
	CategoryOrphan   OutputCategory = "orphan"
)

// TransactionOutput is one entry of a wallet transaction.
// Amount is in major units exactly as the node reports it (negative for sends).
type TransactionOutput struct {
	Category OutputCategory `json:"category"`
	Address  string         `json:"address"`
	Amount   float64        `json:"amount"`
}

// TransactionDetail is the read-only view of a wallet transaction.
// Outputs keep the order the node returned them in; the position is part of
// the reference id.
type TransactionDetail struct {
	TxID          string              `json:"txid"`
	Confirmations int64               `json:"confirmations"`
	Outputs       []TransactionOutput `json:"details"`
}

// NodeInfo is the subset of node state the block worker needs.
type NodeInfo struct {
	Blocks  int64   `json:"blocks"`
	Balance float64 `json:"balance"`
}
