// Package importer parses bank-style CSV exports into transactions.
//
// The header row drives column lookup. date, title and amount are required;
// type and category are optional. Rows that fail to parse are reported with
// their line number and skipped.
package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"saldo/internal/core"
)

var ErrMissingColumns = errors.New("csv header must contain date, title and amount")

// RowError describes a rejected line.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Result is the outcome of one parse.
type Result struct {
	Transactions []core.Transaction
	Errors       []RowError
}

// columns accepts the Portuguese headers used by the original exports.
var columns = map[string][]string{
	"date":     {"date", "data"},
	"title":    {"title", "description", "descricao", "descrição", "titulo", "título"},
	"amount":   {"amount", "value", "valor"},
	"type":     {"type", "tipo"},
	"category": {"category", "categoria"},
}

// Parse reads every row of r. Only header or I/O problems return an error.
func Parse(r io.Reader) (Result, error) {
	br := bufio.NewReader(r)
	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return Result{}, ErrMissingColumns
	}
	if err != nil {
		return Result{}, fmt.Errorf("read csv header: %w", err)
	}
	idx := indexColumns(header)
	for _, name := range []string{"date", "title", "amount"} {
		if _, ok := idx[name]; !ok {
			return Result{}, ErrMissingColumns
		}
	}

	res := Result{Transactions: make([]core.Transaction, 0)}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.Errors = append(res.Errors, RowError{Line: perr.Line, Reason: perr.Err.Error()})
				continue
			}
			return res, fmt.Errorf("read csv: %w", err)
		}
		if blank(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		tx, rerr := parseRow(record, idx)
		if rerr != nil {
			res.Errors = append(res.Errors, RowError{Line: line, Reason: rerr.Error()})
			continue
		}
		res.Transactions = append(res.Transactions, tx)
	}
	return res, nil
}

// ParseBytes is a convenience wrapper for stored uploads.
func ParseBytes(b []byte) (Result, error) {
	return Parse(bytes.NewReader(b))
}

func parseRow(record []string, idx map[string]int) (core.Transaction, error) {
	get := func(name string) string {
		i, ok := idx[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	date, err := core.ParseDate(get("date"))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("invalid date %q", get("date"))
	}
	cents, err := core.ParseSignedCents(stripThousands(get("amount")))
	if err != nil || cents == 0 {
		return core.Transaction{}, fmt.Errorf("invalid amount %q", get("amount"))
	}

	typ := core.Expense
	if cents < 0 {
		cents = -cents
	}
	if raw := get("type"); raw != "" {
		typ, err = core.ParseTxType(raw)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("invalid type %q", raw)
		}
	}

	tx := core.Transaction{
		Date:     date,
		Title:    get("title"),
		Amount:   core.Money{Cents: cents},
		Type:     typ,
		Category: get("category"),
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// stripThousands drops the grouping separator when both '.' and ',' appear;
// the last one is the decimal separator ("1.234,56" and "1,234.56").
func stripThousands(s string) string {
	dot, comma := strings.LastIndexByte(s, '.'), strings.LastIndexByte(s, ',')
	if dot < 0 || comma < 0 {
		return s
	}
	if comma > dot {
		return strings.ReplaceAll(s, ".", "")
	}
	return strings.ReplaceAll(s, ",", "")
}

func indexColumns(header []string) map[string]int {
	idx := make(map[string]int)
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for name, aliases := range columns {
			if _, seen := idx[name]; seen {
				continue
			}
			for _, a := range aliases {
				if h == a {
					idx[name] = i
				}
			}
		}
	}
	return idx
}

// sniffDelimiter picks ';' when the header line uses it and has no commas.
func sniffDelimiter(br *bufio.Reader) rune {
	peek, _ := br.Peek(512)
	first, _, _ := bytes.Cut(peek, []byte("\n"))
	if bytes.IndexByte(first, ';') >= 0 && bytes.IndexByte(first, ',') < 0 {
		return ';'
	}
	return ','
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
