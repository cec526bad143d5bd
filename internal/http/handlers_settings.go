package http

import (
	"net/http"

	"saldo/internal/core"
)

type closingDayBody struct {
	ClosingDay    int  `json:"closing_day"`
	CalendarMonth bool `json:"calendar_month"`
}

func (s *Server) handleGetClosingDay(w http.ResponseWriter, r *http.Request) {
	cfg, _, err := s.reports.Settings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, closingDayBody{ClosingDay: cfg.Day(), CalendarMonth: cfg.IsCalendarMonth()})
}

// handleSetClosingDay accepts 1..31; 29 and above select the calendar month.
func (s *Server) handleSetClosingDay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClosingDay int `json:"closing_day"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cfg, err := s.txs.SetClosingDay(r.Context(), req.ClosingDay)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, closingDayBody{ClosingDay: cfg.Day(), CalendarMonth: cfg.IsCalendarMonth()})
}

type limitBody struct {
	Limit core.Money `json:"limit"`
	Set   bool       `json:"set"`
}

func (s *Server) handleGetLimit(w http.ResponseWriter, r *http.Request) {
	_, limit, err := s.reports.Settings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, limitBody{Limit: limit, Set: limit.Cents > 0})
}

// handleSetLimit stores the monthly spending limit; zero clears it.
func (s *Server) handleSetLimit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Limit core.Money `json:"limit"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.txs.SetSpendingLimit(r.Context(), req.Limit); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, limitBody{Limit: req.Limit, Set: req.Limit.Cents > 0})
}
