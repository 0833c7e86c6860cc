// Package services holds the presentation-session logic that sits
// between the HTTP layer and the pnl ports: statement ownership,
// the override write-through path, drill-down guards, and KPI breakdown
// assembly.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	appamqp "dre/internal/amqp"
	"dre/internal/core"
	applog "dre/internal/log"
	"dre/internal/pnl"
)

// EditCell identifies the one cell a session may be editing.
type EditCell struct {
	LineNumber int
	Period     string
}

// Session owns the loaded Statement for one presentation session and is
// the only component allowed to mutate it. Mutation happens exclusively
// through SubmitOverride, which patches a single cell copy-on-write, so
// any statement handed out earlier stays consistent for its reader.
//
// A session tracks the last accepted version per cell and sends it with
// each write; a write reaching the backend with an outdated version is
// rejected, never silently overwritten.
type Session struct {
	reader pnl.StatementReader
	writer pnl.OverrideWriter
	events *appamqp.Client // nil when messaging is disabled

	mu        sync.Mutex
	statement core.Statement
	loaded    bool
	editing   *EditCell
	versions  map[EditCell]int64
}

func NewSession(reader pnl.StatementReader, writer pnl.OverrideWriter, events *appamqp.Client) *Session {
	return &Session{
		reader:   reader,
		writer:   writer,
		events:   events,
		versions: make(map[EditCell]int64),
	}
}

// Load fetches a fresh statement from the backend, replacing the session
// copy wholesale.
func (s *Session) Load(ctx context.Context) (core.Statement, error) {
	st, err := s.reader.LoadStatement(ctx)
	if err != nil {
		return core.Statement{}, fmt.Errorf("load statement: %w", err)
	}

	s.mu.Lock()
	s.statement = st
	s.loaded = true
	s.mu.Unlock()

	return st, nil
}

// Current returns the session statement, loading it on first use.
func (s *Session) Current(ctx context.Context) (core.Statement, error) {
	s.mu.Lock()
	if s.loaded {
		st := s.statement
		s.mu.Unlock()
		return st, nil
	}
	s.mu.Unlock()
	return s.Load(ctx)
}

// Invalidate drops the cached statement so the next read reloads.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.loaded = false
	s.editing = nil
	s.versions = make(map[EditCell]int64)
	s.mu.Unlock()
}

// BeginEdit opens an edit on one cell. Starting a new edit implicitly
// discards an unsaved edit on any other cell; nothing is persisted by
// the discard. Header rows have no editable cells.
func (s *Session) BeginEdit(ctx context.Context, lineNumber int, period string) error {
	st, err := s.Current(ctx)
	if err != nil {
		return err
	}
	row, err := st.Row(lineNumber)
	if err != nil {
		return err
	}
	if row.IsHeader {
		return core.ErrHeaderRow
	}

	s.mu.Lock()
	s.editing = &EditCell{LineNumber: lineNumber, Period: period}
	s.mu.Unlock()
	return nil
}

// CancelEdit discards the in-progress edit without persisting anything.
func (s *Session) CancelEdit() {
	s.mu.Lock()
	s.editing = nil
	s.mu.Unlock()
}

// Editing reports the currently open edit cell, if any.
func (s *Session) Editing() (EditCell, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editing == nil {
		return EditCell{}, false
	}
	return *s.editing, true
}

// SubmitOverride parses the raw user input, writes the override through
// the backend, and on success applies an optimistic single-cell patch to
// the session statement. Invalid input never reaches the backend. On any
// backend failure the statement is untouched and the edit stays open so
// the user can retry or cancel. Submitting the same value twice is safe:
// the resulting cell value is identical.
func (s *Session) SubmitOverride(ctx context.Context, lineNumber int, period, rawValue string) (core.Money, int64, error) {
	if err := s.BeginEdit(ctx, lineNumber, period); err != nil {
		return core.Money{}, 0, err
	}

	// Local validation comes first: a non-numeric value is rejected here,
	// before any network call.
	cents, err := core.ParseSignedDecimal(rawValue)
	if err != nil {
		return core.Money{}, 0, err
	}
	value := core.Money{Cents: cents}

	cell := EditCell{LineNumber: lineNumber, Period: period}
	s.mu.Lock()
	version := s.versions[cell]
	s.mu.Unlock()

	newVersion, err := s.writer.SaveOverride(ctx, core.Override{
		LineNumber: lineNumber,
		Period:     period,
		Value:      value,
		Version:    version,
	})
	if err != nil {
		return core.Money{}, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	patched, err := s.statement.Patch(lineNumber, period, value)
	if err != nil {
		// The backend accepted a line the local model does not know;
		// force a reload on the next read rather than show a stale cell.
		s.loaded = false
	} else {
		s.statement = patched
	}
	s.versions[cell] = newVersion
	s.editing = nil

	s.publishOverride(ctx, lineNumber, period, value.Cents, newVersion)

	return value, newVersion, nil
}

func (s *Session) publishOverride(ctx context.Context, lineNumber int, period string, valueCents, version int64) {
	if s.events == nil {
		return
	}
	ev := appamqp.NewOverrideEvent(lineNumber, period, valueCents, version)
	if err := s.events.PublishOverride(ctx, ev); err != nil {
		// The override is already persisted; a lost event only delays the
		// audit trail.
		slog.ErrorContext(ctx, "Failed to publish override event",
			applog.NewFields().WithError(err).WithOverride(lineNumber, period, valueCents, version).ToSlice()...)
	}
}
