package analytics

import (
	"sort"

	"saldo/internal/core"
)

// RecentTransactions returns a copy sorted newest first. Ties keep input
// order. n <= 0 returns every transaction.
func RecentTransactions(txs []core.Transaction, n int) []core.Transaction {
	out := make([]core.Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
