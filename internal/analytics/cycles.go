package analytics

import (
	"sort"

	"saldo/internal/core"
)

// EnumerateCycles lists the distinct cycles that hold at least one
// transaction, most recent first.
func EnumerateCycles(txs []core.Transaction, cfg core.CycleConfig) []core.CycleKey {
	seen := make(map[core.CycleKey]struct{})
	out := make([]core.CycleKey, 0)
	for _, t := range txs {
		key, ok := resolveTransaction(t, cfg)
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool { return out[j].Before(out[i]) })
	return out
}
