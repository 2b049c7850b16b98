package domain

import (
	"strconv"
	"strings"
)

// RefID builds the idempotency key of output p of transaction txid.
func RefID(txid string, p int) string {
	return txid + ":" + strconv.Itoa(p)
}

// SplitRefID recovers the transaction id and output index from a reference id.
// A reference id without an index is treated as a bare transaction id and
// reports index -1.
func SplitRefID(refID string) (txid string, index int) {
	txid, idx, found := strings.Cut(refID, ":")
	if txid == "" {
		return refID, -1
	}
	if !found {
		return txid, -1
	}
	n, err := strconv.Atoi(idx)
	if err != nil {
		return txid, -1
	}
	return txid, n
}
