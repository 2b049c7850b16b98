package domain

import "time"

// CreditState is the lifecycle state of a recognized incoming payment.
type CreditState string

const (
	CreditStateUnconfirmed CreditState = "unconfirmed"
	CreditStateComplete    CreditState = "complete"
)

// Credit is an incoming payment credited to a user account.
// RefID is unique across all credits and is the idempotency key.
type Credit struct {
	ID        string      `json:"id"`
	Amount    int64       `json:"amount"`
	Address   string      `json:"address"`
	Currency  string      `json:"currency"`
	Network   string      `json:"network"`
	State     CreditState `json:"state"`
	Reference string      `json:"reference"`
	RefID     string      `json:"ref_id"`
	AccountID int64       `json:"account_id"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Complete moves the credit to the complete state and canonicalizes its
// reference id. Only unconfirmed credits may be completed.
func (c *Credit) Complete(refID string) error {
	if c.State != CreditStateUnconfirmed {
		return ErrInvalidTransition
	}
	c.State = CreditStateComplete
	if refID != "" {
		c.RefID = refID
	}
	return nil
}

// CreditStateFor returns the state a freshly sighted credit starts in.
func CreditStateFor(confirmed bool) CreditState {
	if confirmed {
		return CreditStateComplete
	}
	return CreditStateUnconfirmed
}
