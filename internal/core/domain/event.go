package domain

import "time"

// Event is emitted to downstream consumers after a state change is committed.
type Event struct {
	Type      EventType `json:"type"`
	Network   string    `json:"network"`
	RefID     string    `json:"ref_id,omitempty"`
	AccountID int64     `json:"account_id,omitempty"`
	Address   string    `json:"address,omitempty"`
	Amount    int64     `json:"amount,omitempty"`
	State     string    `json:"state,omitempty"`
	Available int64     `json:"available,omitempty"`
	Total     int64     `json:"total,omitempty"`
	At        time.Time `json:"at"`
}

type EventType string

const (
	EventTypeCreditReceived  EventType = "credit_received"
	EventTypeCreditConfirmed EventType = "credit_confirmed"
	EventTypeBalanceUpdated  EventType = "balance_updated"
)

// NewCreditEvent builds a credit event from a committed credit.
func NewCreditEvent(t EventType, c *Credit, at time.Time) *Event {
	return &Event{
		Type:      t,
		Network:   c.Network,
		RefID:     c.RefID,
		AccountID: c.AccountID,
		Address:   c.Address,
		Amount:    c.Amount,
		State:     string(c.State),
		At:        at,
	}
}

// NewBalanceEvent builds a balance event from a committed snapshot.
func NewBalanceEvent(s *BalanceSnapshot) *Event {
	return &Event{
		Type:      EventTypeBalanceUpdated,
		Network:   s.Network,
		Available: s.Available,
		Total:     s.Total,
		At:        s.Time,
	}
}
