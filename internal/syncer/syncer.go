// Package syncer is the bidirectional sync core between canonical
// text and the rich-document model. Incoming text is applied through
// the cursor preservation helper with echo suppression; genuine model
// changes are materialized, table-converted and emitted outward.
package syncer

import (
	"github.com/kobzarvs/qmark/internal/logger"
	"github.com/kobzarvs/qmark/internal/tableconv"
	"github.com/kobzarvs/qmark/internal/webdoc"
)

// Synchronizer binds one rich-document model. Two logical states:
// idle, and suppressing the echo of a programmatic replacement. Like
// the model it serves, it is single-threaded.
type Synchronizer struct {
	model       *webdoc.Model
	emit        func(text string)
	loaded      bool
	suppressing bool
}

func New(model *webdoc.Model) *Synchronizer {
	s := &Synchronizer{model: model}
	model.OnChange(s.onModelChanged)
	return s
}

// SetEmitFunc wires the outgoing side: fn receives the materialized
// (post-table-conversion) canonical text of every genuine user change.
func (s *Synchronizer) SetEmitFunc(fn func(text string)) {
	s.emit = fn
}

// ApplyIncoming pushes canonical text into the model. The very first
// call performs a raw structural load so the undo history starts with
// exactly one clean entry. Later calls are no-ops when the model's
// materialized text already matches, so an echo of the model's own
// emission never costs a history entry; otherwise the content is
// replaced with the selection preserved. Reports whether the model
// changed.
func (s *Synchronizer) ApplyIncoming(text string) bool {
	if !s.loaded {
		s.loaded = true
		s.suppressing = true
		s.model.Load(text)
		s.suppressing = false
		return true
	}
	if s.materialized() == text {
		return false
	}

	s.suppressing = true
	withPreservedSelection(s.model, func() {
		err := s.model.Transact(func(tx *webdoc.Tx) error {
			tx.ReplaceAll(text)
			return nil
		})
		if err != nil {
			logger.Error("incoming replacement failed", "error", err)
		}
	})
	s.suppressing = false
	return true
}

// onModelChanged consumes exactly one notification per programmatic
// replacement; everything else is a user change and goes out.
func (s *Synchronizer) onModelChanged(webdoc.Change) {
	if s.suppressing {
		s.suppressing = false
		return
	}
	if s.emit != nil {
		s.emit(s.materialized())
	}
}

// materialized is the model text as the canonical side sees it, with
// HTML tables converted to pipe syntax.
func (s *Synchronizer) materialized() string {
	text := s.model.Text()
	if tableconv.ContainsTable(text) {
		text = tableconv.Convert(text)
	}
	return text
}

// withPreservedSelection captures the selection, runs the replacement
// and puts the selection back. A captured range the new content can
// no longer hold falls back to just past the last top-level block;
// the fallback always succeeds.
func withPreservedSelection(m *webdoc.Model, applyReplacement func()) {
	captured := m.Selection()
	applyReplacement()
	if m.SelectionValid(captured) {
		m.SetSelection(captured)
		return
	}
	m.SetSelection(webdoc.Caret(m.EndOfLastBlock()))
}
