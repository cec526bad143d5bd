package google

import (
	"fmt"
	"strconv"
	"strings"

	"saldo/internal/core"
)

// row is one line of the mirror sheet. Line is 1-based as in A1 notation.
type row struct {
	Line int
	ID   string
	core.Transaction
	Err error
}

// parseRows converts a values matrix (as returned by the Sheets API) into
// rows. Blank lines and lines without an id are dropped; a header row has no
// parseable date and is reported with Err set.
func parseRows(values [][]interface{}) []row {
	out := make([]row, 0, len(values))
	for i, raw := range values {
		cells := toStrings(raw)
		id := safeGet(cells, idCol)
		if id == "" {
			continue
		}
		r := row{Line: i + 1, ID: id}
		r.Transaction, r.Err = parseTransaction(cells)
		out = append(out, r)
	}
	return out
}

func parseTransaction(cells []string) (core.Transaction, error) {
	date, err := core.ParseDate(safeGet(cells, 0))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("date %q: %w", safeGet(cells, 0), err)
	}
	cents, err := core.ParseSignedCents(safeGet(cells, 2))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", safeGet(cells, 2), err)
	}
	typ, err := core.ParseTxType(safeGet(cells, 3))
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:       safeGet(cells, idCol),
		Date:     date,
		Title:    safeGet(cells, 1),
		Amount:   core.NewMoney(cents),
		Type:     typ,
		Category: safeGet(cells, 4),
	}, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case nil:
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return strings.TrimSpace(arr[idx])
	}
	return ""
}
