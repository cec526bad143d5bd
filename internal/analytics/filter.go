package analytics

import "saldo/internal/core"

// FilterByCycle keeps the transactions billed in target that pass the type
// filter. Input order is preserved.
func FilterByCycle(txs []core.Transaction, target core.CycleKey, cfg core.CycleConfig, filter core.TypeFilter) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		key, ok := resolveTransaction(t, cfg)
		if !ok || key != target {
			continue
		}
		if !filter.Match(t.Type) {
			continue
		}
		out = append(out, t)
	}
	return out
}
