package domain

import (
	"time"
)

// Address maps a deposit address generated by the node to the account that owns it.
type Address struct {
	Address   string
	AccountID int64
	Network   string
	CreatedAt time.Time
}
