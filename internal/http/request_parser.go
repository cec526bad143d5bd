package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"saldo/internal/analytics"
	"saldo/internal/core"
	"saldo/internal/format"
)

const maxJSONBody = 1 << 20

// decodeJSON reads a single JSON object, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return badRequest("request body is empty")
		}
		return badRequest(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

// transactionRequest is the body of create and update calls.
type transactionRequest struct {
	Date     string     `json:"date"`
	Title    string     `json:"title"`
	Amount   core.Money `json:"amount"`
	Type     string     `json:"type"`
	Category string     `json:"category"`
}

func (req transactionRequest) toTransaction(id string) (core.Transaction, error) {
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	typ, err := core.ParseTxType(req.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:       id,
		Date:     date,
		Title:    sanitizeInput(req.Title),
		Amount:   req.Amount,
		Type:     typ,
		Category: sanitizeInput(req.Category),
	}, nil
}

func queryInt(q url.Values, name string) (int, bool, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, badRequest(fmt.Sprintf("invalid %s %q", name, v))
	}
	return n, true, nil
}

// parseCycle reads year and 0-based month, defaulting each to the cycle
// that contains today.
func parseCycle(q url.Values, current core.CycleKey) (core.CycleKey, error) {
	key := current
	year, ok, err := queryInt(q, "year")
	if err != nil {
		return core.CycleKey{}, err
	}
	if ok {
		key.Year = year
	}
	month, ok, err := queryInt(q, "month")
	if err != nil {
		return core.CycleKey{}, err
	}
	if ok {
		key.Month = month
	}
	if !key.Valid() {
		return core.CycleKey{}, badRequest(fmt.Sprintf("invalid month %d: must be between 0 and 11", key.Month))
	}
	if key.Year < 1 || key.Year > 9999 {
		return core.CycleKey{}, badRequest(fmt.Sprintf("invalid year %d", key.Year))
	}
	return key, nil
}

func parseYear(q url.Values, current core.CycleKey) (int, error) {
	key, err := parseCycle(url.Values{"year": {q.Get("year")}}, current)
	return key.Year, err
}

func parseTypeFilter(q url.Values) (core.TypeFilter, error) {
	f, err := core.ParseTypeFilter(q.Get("type"))
	if err != nil {
		return "", badRequest(err.Error())
	}
	return f, nil
}

// parseLimit reads a positive count capped at max.
func parseLimit(q url.Values, def, max int) (int, error) {
	n, ok, err := queryInt(q, "limit")
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	if n < 1 || n > max {
		return 0, badRequest(fmt.Sprintf("invalid limit %d: must be between 1 and %d", n, max))
	}
	return n, nil
}

// locale returns the requested locale and whether one was asked for.
func (s *Server) locale(q url.Values) (language.Tag, bool) {
	if v := strings.TrimSpace(q.Get("locale")); v != "" {
		return format.ParseLocale(v), true
	}
	return s.defaultLocale, false
}

// currentCycle is the cycle that contains today under cfg.
func (s *Server) currentCycle(cfg core.CycleConfig) core.CycleKey {
	return analytics.ResolveCycle(core.Date{Time: s.now()}, cfg)
}
