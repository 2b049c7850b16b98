package domain

import "time"

// BalanceSnapshot is one append-only record of the hot wallet balance.
// The current balance of a network is the snapshot with the latest Time,
// ties broken by the highest ID (insertion sequence).
type BalanceSnapshot struct {
	ID        int64     `json:"id"`
	Available int64     `json:"available"`
	Total     int64     `json:"total"`
	Currency  string    `json:"currency"`
	Network   string    `json:"network"`
	Time      time.Time `json:"time"`
}

// Newer reports whether s should be preferred over other as the current snapshot.
func (s *BalanceSnapshot) Newer(other *BalanceSnapshot) bool {
	if other == nil {
		return true
	}
	if !s.Time.Equal(other.Time) {
		return s.Time.After(other.Time)
	}
	return s.ID > other.ID
}
