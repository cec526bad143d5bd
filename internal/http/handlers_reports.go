package http

import (
	"fmt"
	"net/http"
	"strings"

	"saldo/internal/core"
	"saldo/internal/format"
	"saldo/internal/services"
)

type cyclesResponse struct {
	ClosingDay int                  `json:"closing_day"`
	Current    core.CycleKey        `json:"current"`
	Cycles     []format.CycleOption `json:"cycles"`
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	keys, cfg, err := s.reports.Cycles(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	tag, _ := s.locale(r.URL.Query())
	writeJSON(w, http.StatusOK, cyclesResponse{
		ClosingDay: cfg.Day(),
		Current:    s.currentCycle(cfg),
		Cycles:     format.CycleOptions(keys, cfg, tag),
	})
}

type summaryResponse struct {
	services.PeriodReport
	Filter    core.TypeFilter          `json:"type"`
	Label     string                   `json:"label"`
	Formatted *format.FormattedSummary `json:"formatted,omitempty"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg, _, err := s.reports.Settings(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	key, err := parseCycle(q, s.currentCycle(cfg))
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter, err := parseTypeFilter(q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	report, err := s.reports.Summary(ctx, key, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tag, explicit := s.locale(q)
	resp := summaryResponse{PeriodReport: report, Filter: filter, Label: format.CycleLabel(key, tag)}
	if explicit {
		f := format.Summary(report.Summary, tag)
		resp.Formatted = &f
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMonthlyChart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	year, ok := s.chartYear(w, r)
	if !ok {
		return
	}
	buckets, err := s.reports.Monthly(ctx, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tag, _ := s.locale(r.URL.Query())
	writeJSON(w, http.StatusOK, map[string]any{
		"year":   year,
		"series": format.MonthlySeries(buckets, tag),
		"totals": buckets.Totals(),
	})
}

func (s *Server) handleBalanceChart(w http.ResponseWriter, r *http.Request) {
	year, ok := s.chartYear(w, r)
	if !ok {
		return
	}
	balance, err := s.reports.Balance(r.Context(), year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tag, _ := s.locale(r.URL.Query())
	writeJSON(w, http.StatusOK, map[string]any{
		"year":   year,
		"series": format.BalanceSeries(balance, tag),
	})
}

func (s *Server) handleCategoryChart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg, _, err := s.reports.Settings(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	key, err := parseCycle(r.URL.Query(), s.currentCycle(cfg))
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.reports.Summary(ctx, key, core.FilterExpense)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cycle":  key,
		"series": format.CategorySeries(report.Categories),
	})
}

func (s *Server) chartYear(w http.ResponseWriter, r *http.Request) (int, bool) {
	cfg, _, err := s.reports.Settings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return 0, false
	}
	year, err := parseYear(r.URL.Query(), s.currentCycle(cfg))
	if err != nil {
		writeError(w, r, err)
		return 0, false
	}
	return year, true
}

type compareResponse struct {
	services.Comparison
	LabelA  string        `json:"label_a"`
	LabelB  string        `json:"label_b"`
	SeriesA format.Series `json:"series_a"`
	SeriesB format.Series `json:"series_b"`
}

// handleCompare compares two cycles given as YYYY-MM with a 1-based month.
// Without parameters it compares the previous cycle with the current one.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg, _, err := s.reports.Settings(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	current := s.currentCycle(cfg)
	q := r.URL.Query()
	a, err := cycleParam(q.Get("a"), current.Prev())
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := cycleParam(q.Get("b"), current)
	if err != nil {
		writeError(w, r, err)
		return
	}

	cmp, err := s.reports.Compare(ctx, a, b)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tag, _ := s.locale(q)
	labelA, labelB := format.CycleLabel(a, tag), format.CycleLabel(b, tag)
	writeJSON(w, http.StatusOK, compareResponse{
		Comparison: cmp,
		LabelA:     labelA,
		LabelB:     labelB,
		SeriesA:    format.DailySeries(labelA, cmp.StartA, cmp.DailyA),
		SeriesB:    format.DailySeries(labelB, cmp.StartB, cmp.DailyB),
	})
}

func cycleParam(v string, def core.CycleKey) (core.CycleKey, error) {
	if strings.TrimSpace(v) == "" {
		return def, nil
	}
	key, err := core.ParseCycleKey(v)
	if err != nil {
		return core.CycleKey{}, badRequest(err.Error())
	}
	return key, nil
}

func (s *Server) handleSuggestedCategories(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("type"))
	if raw == "" {
		writeJSON(w, http.StatusOK, map[core.TxType][]string{
			core.Income:  core.SuggestedCategories(core.Income),
			core.Expense: core.SuggestedCategories(core.Expense),
		})
		return
	}
	typ, err := core.ParseTxType(raw)
	if err != nil {
		writeError(w, r, badRequest(fmt.Sprintf("invalid type %q: must be income or expense", raw)))
		return
	}
	writeJSON(w, http.StatusOK, map[core.TxType][]string{typ: core.SuggestedCategories(typ)})
}
