package domain

import "time"

// DebitState is the lifecycle state of an outgoing payment.
type DebitState string

const (
	DebitStateUnconfirmed DebitState = "unconfirmed"
	DebitStateComplete    DebitState = "complete"
)

// Debit is an outgoing payment submitted from the hot wallet.
// TxID is known at submission; RefID is filled in once the wallet reports
// the matching send output.
type Debit struct {
	ID        string     `json:"id"`
	Amount    int64      `json:"amount"`
	Address   string     `json:"address"`
	Currency  string     `json:"currency"`
	Network   string     `json:"network"`
	State     DebitState `json:"state"`
	Reference string     `json:"reference"`
	TxID      string     `json:"txid"`
	RefID     string     `json:"ref_id"`
	AccountID int64      `json:"account_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
