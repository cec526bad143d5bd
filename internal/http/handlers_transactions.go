package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"saldo/internal/core"
	"saldo/internal/ledger"
)

type transactionList struct {
	Cycle        core.CycleKey      `json:"cycle"`
	Filter       core.TypeFilter    `json:"type"`
	Start        core.Date          `json:"start"`
	End          core.Date          `json:"end"`
	Transactions []core.Transaction `json:"transactions"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
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

	txs, err := s.reports.Transactions(ctx, key, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.reports.Summary(ctx, key, core.FilterAll)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionList{
		Cycle:        key,
		Filter:       filter,
		Start:        report.Start,
		End:          report.End,
		Transactions: txs,
	})
}

func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	n, err := parseLimit(r.URL.Query(), 10, 100)
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.reports.Recent(r.Context(), n)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.txs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := req.toTransaction("")
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.txs.Create(r.Context(), tx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/transactions/"+created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := req.toTransaction(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.txs.Update(r.Context(), tx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.txs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleImport accepts a multipart upload in the "file" field. Imports queued
// for the worker answer 202; imports processed inline answer 201.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: fmt.Sprintf("upload exceeds %d bytes", s.maxUploadBytes)})
			return
		}
		writeError(w, r, badRequest("invalid multipart form"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, badRequest(`missing "file" field`))
		return
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}
	if len(body) == 0 {
		writeError(w, r, badRequest("uploaded file is empty"))
		return
	}

	imp, err := s.txs.RequestImport(r.Context(), filepath.Base(header.Filename), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if imp.Status == ledger.ImportPending {
		status = http.StatusAccepted
	}
	w.Header().Set("Location", "/api/imports/"+imp.ID)
	writeJSON(w, status, imp)
}

func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	imp, err := s.txs.ImportStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, imp)
}
