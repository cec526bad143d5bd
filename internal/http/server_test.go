package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"saldo/internal/core"
	"saldo/internal/ledger"
	"saldo/internal/ledger/memory"
	"saldo/internal/log"
	"saldo/internal/services"
)

func mustDate(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func newTestServer(t *testing.T, seed ...core.Transaction) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New(seed...)
	reports := services.NewReportService(store, store, services.ReportConfig{}, log.Discard())
	txs := services.NewTransactionService(store, nil, reports, log.Discard())
	srv := NewServer(":0", Dependencies{
		Transactions:    txs,
		Reports:         reports,
		WritesPerMinute: 1000,
		Logger:          log.Discard(),
	})
	srv.now = func() time.Time { return time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, store
}

func do(t *testing.T, srv *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := do(t, srv, http.MethodGet, path, nil); rr.Code != http.StatusOK {
			t.Errorf("%s status=%d", path, rr.Code)
		}
	}

	srv.ready = func(context.Context) error { return errors.New("db down") }
	if rr := do(t, srv, http.MethodGet, "/readyz", nil); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when not ready, got %d", rr.Code)
	}

	rr := do(t, srv, http.MethodGet, "/nope", nil)
	if rr.Code != http.StatusNotFound || !strings.Contains(rr.Body.String(), "not found") {
		t.Errorf("unexpected 404 response: %d %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" || rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected request id and security headers")
	}
}

func TestTransactionCRUD(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"date": "2024-02-05", "title": "Mercado", "amount": "120.50", "type": "expense", "category": "alimentação",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	created := decode[core.Transaction](t, rr)
	if created.ID == "" || created.Amount.Cents != 12050 {
		t.Fatalf("unexpected created transaction: %+v", created)
	}
	if loc := rr.Header().Get("Location"); loc != "/api/transactions/"+created.ID {
		t.Errorf("unexpected Location %q", loc)
	}

	if rr := do(t, srv, http.MethodGet, "/api/transactions/"+created.ID, nil); rr.Code != http.StatusOK {
		t.Errorf("get status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPut, "/api/transactions/"+created.ID, map[string]any{
		"date": "2024-02-05", "title": "Mercado", "amount": 99.9, "type": "saida",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	if updated := decode[core.Transaction](t, rr); updated.Amount.Cents != 9990 || updated.Type != core.Expense {
		t.Errorf("unexpected updated transaction: %+v", updated)
	}

	if rr := do(t, srv, http.MethodDelete, "/api/transactions/"+created.ID, nil); rr.Code != http.StatusNoContent {
		t.Errorf("delete status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/transactions/"+created.ID, nil); rr.Code != http.StatusNotFound {
		t.Errorf("get after delete status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/transactions/"+created.ID, nil); rr.Code != http.StatusNotFound {
		t.Errorf("second delete status=%d", rr.Code)
	}
}

func TestCreateTransactionErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"malformed json", `{"date":`, http.StatusBadRequest},
		{"unknown field", map[string]any{"date": "2024-01-01", "amount": 1, "type": "income", "extra": 1}, http.StatusBadRequest},
		{"zero amount", map[string]any{"date": "2024-01-01", "amount": 0, "type": "income"}, http.StatusUnprocessableEntity},
		{"bad type", map[string]any{"date": "2024-01-01", "amount": 1, "type": "gift"}, http.StatusUnprocessableEntity},
		{"bad date", map[string]any{"date": "01/02/2024", "amount": 1, "type": "income"}, http.StatusUnprocessableEntity},
		{"long title", map[string]any{"date": "2024-01-01", "amount": 1, "type": "income", "title": strings.Repeat("x", 201)}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := do(t, srv, http.MethodPost, "/api/transactions", tt.body); rr.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rr.Code, rr.Body.String())
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader("date=2024-01-01"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415 for form body, got %d", rr.Code)
	}
}

func seedBillingCycle(t *testing.T) []core.Transaction {
	return []core.Transaction{
		{ID: "salary", Date: mustDate(t, "2024-01-26"), Amount: core.NewMoney(500000), Type: core.Income},
		{ID: "rent", Date: mustDate(t, "2024-02-01"), Amount: core.NewMoney(150000), Type: core.Expense, Category: "moradia"},
		{ID: "food", Date: mustDate(t, "2024-02-25"), Amount: core.NewMoney(30000), Type: core.Expense},
		{ID: "march", Date: mustDate(t, "2024-02-26"), Amount: core.NewMoney(1000), Type: core.Expense, Category: "lazer"},
	}
}

func TestBillingCycleReports(t *testing.T) {
	srv, _ := newTestServer(t, seedBillingCycle(t)...)

	rr := do(t, srv, http.MethodPut, "/api/settings/closing-day", map[string]any{"closing_day": 25})
	if rr.Code != http.StatusOK {
		t.Fatalf("set closing day status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr := do(t, srv, http.MethodPut, "/api/settings/limit", map[string]any{"limit": "1000.00"}); rr.Code != http.StatusOK {
		t.Fatalf("set limit status=%d", rr.Code)
	}

	// Today is 2024-02-10, inside the February cycle (Jan 26 .. Feb 25).
	rr = do(t, srv, http.MethodGet, "/api/transactions", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status=%d", rr.Code)
	}
	list := decode[transactionList](t, rr)
	if list.Cycle != (core.CycleKey{Year: 2024, Month: 1}) || len(list.Transactions) != 3 {
		t.Fatalf("unexpected list: cycle=%v n=%d", list.Cycle, len(list.Transactions))
	}
	if list.Transactions[0].ID != "food" {
		t.Errorf("expected newest first, got %s", list.Transactions[0].ID)
	}
	if list.Start.String() != "2024-01-26" || list.End.String() != "2024-02-25" {
		t.Errorf("unexpected bounds %s..%s", list.Start, list.End)
	}

	rr = do(t, srv, http.MethodGet, "/api/transactions?year=2024&month=1&type=income", nil)
	if got := decode[transactionList](t, rr); len(got.Transactions) != 1 || got.Transactions[0].ID != "salary" {
		t.Errorf("income filter returned %+v", got.Transactions)
	}

	rr = do(t, srv, http.MethodGet, "/api/summary?year=2024&month=1&locale=pt-BR", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("summary status=%d", rr.Code)
	}
	var summary struct {
		Summary struct {
			Income  core.Money `json:"income"`
			Expense core.Money `json:"expense"`
			Net     core.Money `json:"net"`
		} `json:"summary"`
		Limit struct {
			Spent    core.Money `json:"spent"`
			Exceeded bool       `json:"exceeded"`
		} `json:"limit"`
		Label     string          `json:"label"`
		Formatted json.RawMessage `json:"formatted"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Summary.Income.Cents != 500000 || summary.Summary.Expense.Cents != 180000 || summary.Summary.Net.Cents != 320000 {
		t.Errorf("unexpected summary %+v", summary.Summary)
	}
	if !summary.Limit.Exceeded || summary.Limit.Spent.Cents != 180000 {
		t.Errorf("expected exceeded limit, got %+v", summary.Limit)
	}
	if summary.Label != "Fev/2024" || len(summary.Formatted) == 0 {
		t.Errorf("expected localized label and formatted block, got %q %s", summary.Label, summary.Formatted)
	}

	rr = do(t, srv, http.MethodGet, "/api/summary?year=2024&month=1", nil)
	if strings.Contains(rr.Body.String(), `"formatted"`) {
		t.Error("formatted block should only be present when a locale is requested")
	}

	rr = do(t, srv, http.MethodGet, "/api/cycles", nil)
	cycles := decode[cyclesResponse](t, rr)
	if cycles.ClosingDay != 25 || len(cycles.Cycles) != 2 || cycles.Cycles[0].Key != (core.CycleKey{Year: 2024, Month: 2}) {
		t.Errorf("unexpected cycles %+v", cycles)
	}
}

func TestChartsAndCompare(t *testing.T) {
	srv, _ := newTestServer(t, seedBillingCycle(t)...)

	for _, path := range []string{
		"/api/charts/monthly?year=2024",
		"/api/charts/balance",
		"/api/charts/categories?year=2024&month=1",
		"/api/reports/compare?a=2024-01&b=2024-02",
		"/api/reports/compare",
		"/api/transactions/recent?limit=2",
		"/api/categories",
		"/api/categories?type=income",
		"/api/settings/closing-day",
		"/api/settings/limit",
	} {
		if rr := do(t, srv, http.MethodGet, path, nil); rr.Code != http.StatusOK {
			t.Errorf("%s status=%d body=%s", path, rr.Code, rr.Body.String())
		}
	}

	rr := do(t, srv, http.MethodGet, "/api/reports/compare?a=2024-01&b=2024-02", nil)
	var cmp struct {
		NetDelta core.Money `json:"net_delta"`
		DailyB   []core.Money `json:"daily_b"`
		SeriesB  struct {
			Labels []string `json:"labels"`
		} `json:"series_b"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &cmp); err != nil {
		t.Fatalf("decode compare: %v", err)
	}
	// Calendar months: January +5000.00, February -1810.00.
	if cmp.NetDelta.Cents != -181000-500000 {
		t.Errorf("unexpected net delta %d", cmp.NetDelta.Cents)
	}
	if len(cmp.DailyB) != 29 || len(cmp.SeriesB.Labels) != 29 {
		t.Errorf("expected 29 days in February 2024, got %d/%d", len(cmp.DailyB), len(cmp.SeriesB.Labels))
	}

	rr = do(t, srv, http.MethodGet, "/api/transactions/recent?limit=2", nil)
	if got := decode[map[string][]core.Transaction](t, rr)["transactions"]; len(got) != 2 || got[0].ID != "march" {
		t.Errorf("unexpected recent transactions %+v", got)
	}
}

func TestQueryValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		path string
		want int
	}{
		{"/api/transactions?month=12", http.StatusBadRequest},
		{"/api/transactions?month=-1", http.StatusBadRequest},
		{"/api/transactions?year=abc", http.StatusBadRequest},
		{"/api/transactions?type=transfer", http.StatusBadRequest},
		{"/api/summary?year=0", http.StatusBadRequest},
		{"/api/transactions/recent?limit=0", http.StatusBadRequest},
		{"/api/reports/compare?a=2024-13", http.StatusBadRequest},
		{"/api/categories?type=bogus", http.StatusBadRequest},
		{"/api/imports/missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		if rr := do(t, srv, http.MethodGet, tt.path, nil); rr.Code != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.path, tt.want, rr.Code)
		}
	}
}

func TestSettingsValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		day      int
		want     int
		calendar bool
	}{
		{day: 0, want: http.StatusUnprocessableEntity},
		{day: 32, want: http.StatusUnprocessableEntity},
		{day: 30, want: http.StatusOK, calendar: true},
		{day: 5, want: http.StatusOK},
	}
	for _, tt := range tests {
		rr := do(t, srv, http.MethodPut, "/api/settings/closing-day", map[string]any{"closing_day": tt.day})
		if rr.Code != tt.want {
			t.Errorf("day %d: expected %d, got %d", tt.day, tt.want, rr.Code)
			continue
		}
		if tt.want == http.StatusOK {
			if got := decode[closingDayBody](t, rr); got.CalendarMonth != tt.calendar {
				t.Errorf("day %d: expected calendar=%v, got %+v", tt.day, tt.calendar, got)
			}
		}
	}

	if rr := do(t, srv, http.MethodPut, "/api/settings/limit", map[string]any{"limit": -5}); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("negative limit: expected 422, got %d", rr.Code)
	}
}

func TestImport(t *testing.T) {
	srv, store := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "extrato.csv")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("data;descricao;valor\n2024-02-01;Aluguel;-1500,00\n2024-02-05;Salário;5000,00\n"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/transactions/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("import status=%d body=%s", rr.Code, rr.Body.String())
	}
	imp := decode[ledger.Import](t, rr)
	if imp.Status != ledger.ImportDone || imp.Imported != 2 || imp.Filename != "extrato.csv" {
		t.Errorf("unexpected import %+v", imp)
	}

	txs, _ := store.ListTransactions(context.Background())
	if len(txs) != 2 {
		t.Errorf("expected 2 imported transactions, got %d", len(txs))
	}
	if rr := do(t, srv, http.MethodGet, "/api/imports/"+imp.ID, nil); rr.Code != http.StatusOK {
		t.Errorf("import status lookup=%d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/transactions/import", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty multipart, got %d", rr.Code)
	}
}

func TestRateLimitOnWrites(t *testing.T) {
	store := memory.New()
	reports := services.NewReportService(store, store, services.ReportConfig{}, log.Discard())
	srv := NewServer(":0", Dependencies{
		Transactions:    services.NewTransactionService(store, nil, reports, log.Discard()),
		Reports:         reports,
		WritesPerMinute: 2,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	body := map[string]any{"date": "2024-01-01", "amount": 1, "type": "income"}
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, do(t, srv, http.MethodPost, "/api/transactions", body).Code)
	}
	if codes[0] != http.StatusCreated || codes[1] != http.StatusCreated || codes[2] != http.StatusTooManyRequests {
		t.Errorf("unexpected status sequence %v", codes)
	}
	if rr := do(t, srv, http.MethodGet, "/api/transactions?year=2024&month=0", nil); rr.Code != http.StatusOK {
		t.Errorf("reads must not be rate limited, got %d", rr.Code)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{badRequest("x"), http.StatusBadRequest},
		{ledger.ErrNotFound, http.StatusNotFound},
		{core.ErrInvalidClosingDay, http.StatusUnprocessableEntity},
		{errors.Join(errors.New("wrap"), core.ErrInvalidAmount), http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.want, got)
		}
	}
}
