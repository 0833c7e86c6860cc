package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"dre/internal/core"
	"dre/internal/export"
	"dre/internal/formula"
	applog "dre/internal/log"
)

// statusForError maps domain sentinels to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, core.ErrNoData), errors.Is(err, core.ErrLineNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrHeaderRow),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidPeriod):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrStaleOverride):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, op string) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		fields := applog.NewFields().WithOperation(op).WithError(err)
		fields[applog.FieldPath] = r.URL.Path
		slog.ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

// handleStatement serves the assembled statement, optionally filtered by
// a case-insensitive description search.
func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	st, err := s.session.Current(r.Context())
	if err != nil {
		s.respondError(w, r, err, applog.OpLoad)
		return
	}

	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		st = core.Statement{Periods: st.Periods, Rows: st.FilterByText(q)}
	}

	writeJSON(w, http.StatusOK, st)
}

// overrideValue accepts the cell value as either a JSON string or a bare
// number, the way the UI submits it.
type overrideValue string

func (v *overrideValue) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = overrideValue(s)
		return nil
	}
	*v = overrideValue(data)
	return nil
}

type overrideRequest struct {
	LineNumber int           `json:"line_number"`
	Period     string        `json:"month"`
	Value      overrideValue `json:"value"`
}

type overrideResponse struct {
	LineNumber int        `json:"line_number"`
	Period     string     `json:"month"`
	Value      core.Money `json:"value"`
	Version    int64      `json:"version"`
}

// handleOverride applies a manual cell override. Non-numeric values are
// rejected before any backend write; a version conflict returns 409 and
// changes nothing.
func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	value, version, err := s.session.SubmitOverride(r.Context(), req.LineNumber, req.Period, string(req.Value))
	if err != nil {
		s.respondError(w, r, err, applog.OpOverride)
		return
	}

	s.invalidateDerived()

	writeJSON(w, http.StatusOK, overrideResponse{
		LineNumber: req.LineNumber,
		Period:     req.Period,
		Value:      value,
		Version:    version,
	})
}

type transactionsResponse struct {
	LineNumber   int                `json:"line_number"`
	Period       string             `json:"month"`
	Total        core.Money         `json:"total"`
	Count        int                `json:"count"`
	Transactions []core.Transaction `json:"transactions"`
}

func newTransactionsResponse(lineNumber int, period string, dd core.DrillDown) transactionsResponse {
	return transactionsResponse{
		LineNumber:   lineNumber,
		Period:       period,
		Total:        dd.Total,
		Count:        len(dd.Transactions),
		Transactions: dd.Transactions,
	}
}

// handleTransactions serves the drill-down for one statement cell.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	lineNumber, err := strconv.Atoi(r.PathValue("line"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid line number")
		return
	}
	period := strings.TrimSpace(r.URL.Query().Get("month"))
	if period == "" {
		writeError(w, http.StatusBadRequest, "month query parameter is required")
		return
	}

	key := strconv.Itoa(lineNumber) + ":" + period
	if dd, found := s.drillCache.Get(key); found {
		writeJSON(w, http.StatusOK, newTransactionsResponse(lineNumber, period, dd))
		return
	}

	st, err := s.session.Current(r.Context())
	if err != nil {
		s.respondError(w, r, err, applog.OpDrillDown)
		return
	}

	dd, err := s.drill.Resolve(r.Context(), st, lineNumber, period)
	if err != nil {
		s.respondError(w, r, err, applog.OpDrillDown)
		return
	}

	s.drillCache.Set(key, dd)
	writeJSON(w, http.StatusOK, newTransactionsResponse(lineNumber, period, dd))
}

// handleBreakdown serves the formula breakdown for one KPI kind.
func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	kind, ok := formula.ParseKind(r.URL.Query().Get("type"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown breakdown type")
		return
	}

	if b, found := s.breakdownCache.Get(string(kind)); found {
		writeJSON(w, http.StatusOK, b)
		return
	}

	b, err := s.breakdown.Derive(r.Context(), kind)
	if err != nil {
		s.respondError(w, r, err, applog.OpBreakdown)
		return
	}

	s.breakdownCache.Set(string(kind), b)
	writeJSON(w, http.StatusOK, b)
}

// handleExport streams the statement as CSV, or as an XLSX workbook when
// format=xlsx is requested. Both formats render the same cell values.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	st, err := s.session.Current(r.Context())
	if err != nil {
		s.respondError(w, r, err, applog.OpExport)
		return
	}

	if r.URL.Query().Get("format") == "xlsx" {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="pnl_export.xlsx"`)
		if err := export.WriteXLSX(w, st); err != nil {
			slog.ErrorContext(r.Context(), "XLSX export failed", "error", err)
		}
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="pnl_export.csv"`)
	if _, err := w.Write([]byte(st.ToCSV())); err != nil {
		slog.ErrorContext(r.Context(), "CSV export failed", "error", err)
	}
}

type dashboardResponse struct {
	Statement     core.Statement     `json:"statement"`
	KPISummary    core.KPISummary    `json:"kpi_summary"`
	CostStructure core.CostStructure `json:"cost_structure"`
}

// handleDashboard serves the statement together with the summary tables
// in one response, fetched concurrently.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	var resp dashboardResponse

	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		resp.Statement, err = s.session.Current(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		resp.KPISummary, err = s.summaries.ReadKPISummary(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		resp.CostStructure, err = s.summaries.ReadCostStructure(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.respondError(w, r, err, applog.OpDashboard)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleClearOverrides drops the override layer only; every cell reverts
// to its computed value on the next load.
func (s *Server) handleClearOverrides(w http.ResponseWriter, r *http.Request) {
	if err := s.purger.ClearOverrides(r.Context()); err != nil {
		s.respondError(w, r, err, applog.OpClear)
		return
	}

	s.session.Invalidate()
	s.invalidateDerived()

	writeJSON(w, http.StatusOK, map[string]string{"status": "overrides cleared"})
}

// handleClearData purges all transactions, overrides, and summaries. The
// layout survives so an empty statement still renders.
func (s *Server) handleClearData(w http.ResponseWriter, r *http.Request) {
	if err := s.purger.ClearAll(r.Context()); err != nil {
		s.respondError(w, r, err, applog.OpClear)
		return
	}

	s.session.Invalidate()
	s.invalidateDerived()

	if s.events != nil {
		if err := s.events.PublishDataCleared(r.Context()); err != nil {
			slog.ErrorContext(r.Context(), "Failed to publish data-cleared event", "error", err)
		}
	}

	slog.InfoContext(r.Context(), "All data cleared")
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
