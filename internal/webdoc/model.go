// Package webdoc is the rich-document side of the sync bridge: a
// structured Markdown document model backed by a parse tree, with a
// byte-offset selection, transactional mutation, an undo history and
// a key-binding registry. Canonical text always uses \n line endings;
// EOL conversion happens at the durable-buffer boundary, never here.
//
// The model is single-threaded. All calls must come from one
// goroutine, the same cooperative scheduling the session loop
// provides.
package webdoc

import (
	"context"
	"errors"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	tree_sitter_markdown "github.com/smacker/go-tree-sitter/markdown/tree-sitter-markdown"
)

// Span is a selection range in canonical text, byte offsets, Start <= End.
// A caret is a zero-width span.
type Span struct {
	Start int
	End   int
}

func Caret(off int) Span {
	return Span{Start: off, End: off}
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

// Change describes one committed model mutation.
type Change struct {
	Revision uint64
	Load     bool
}

type snapshot struct {
	text string
	sel  Span
}

type Model struct {
	text     string
	sel      Span
	revision uint64

	parser *sitter.Parser
	tree   *sitter.Tree

	history []snapshot
	future  []snapshot

	onChange []func(Change)
	bindings map[bindingKey]Handler
	inTx     bool
}

func New() *Model {
	parser := sitter.NewParser()
	parser.SetLanguage(tree_sitter_markdown.GetLanguage())
	m := &Model{
		parser:   parser,
		bindings: make(map[bindingKey]Handler),
	}
	m.reparse()
	m.history = []snapshot{{}}
	return m
}

func (m *Model) Text() string     { return m.text }
func (m *Model) Revision() uint64 { return m.revision }
func (m *Model) Selection() Span  { return m.sel }

// UndoDepth is the number of states in the undo history, the current
// one included.
func (m *Model) UndoDepth() int { return len(m.history) }

// OnChange registers a callback fired synchronously after every
// committed content mutation. Selection-only updates do not fire it.
func (m *Model) OnChange(fn func(Change)) {
	m.onChange = append(m.onChange, fn)
}

// Load replaces the whole document as a raw structural load: history
// is reset to this single state, the selection moves to the start. The
// change notification carries Load=true.
func (m *Model) Load(text string) {
	m.text = text
	m.sel = Span{}
	m.reparse()
	m.history = []snapshot{{text: text}}
	m.future = nil
	m.revision++
	m.notify(Change{Revision: m.revision, Load: true})
}

// SetSelection moves the selection without touching content or
// history. Out-of-range offsets are clamped.
func (m *Model) SetSelection(sel Span) {
	m.sel = m.clampSpan(sel)
}

// SelectionValid reports whether sel still addresses existing text.
func (m *Model) SelectionValid(sel Span) bool {
	return sel.Start >= 0 && sel.Start <= sel.End && sel.End <= len(m.text)
}

var errNestedTransaction = errors.New("webdoc: nested transaction")

// Transact runs fn against a buffered copy of the document state and
// commits it atomically: at most one history entry, one reparse and
// one change notification per call, no matter how many mutations fn
// performs. Returning an error discards everything.
func (m *Model) Transact(fn func(*Tx) error) error {
	if m.inTx {
		return errNestedTransaction
	}
	m.inTx = true
	tx := &Tx{text: m.text, sel: m.sel}
	err := fn(tx)
	m.inTx = false
	if err != nil {
		return err
	}

	contentChanged := tx.text != m.text
	m.sel = clampSpanTo(tx.sel, len(tx.text))
	if !contentChanged {
		return nil
	}
	m.text = tx.text
	m.reparse()
	m.history = append(m.history, snapshot{text: m.text, sel: m.sel})
	m.future = nil
	m.revision++
	m.notify(Change{Revision: m.revision})
	return nil
}

// Undo steps back one committed state. Reports whether a step happened.
func (m *Model) Undo() bool {
	if len(m.history) < 2 {
		return false
	}
	last := m.history[len(m.history)-1]
	m.history = m.history[:len(m.history)-1]
	m.future = append(m.future, last)
	prev := m.history[len(m.history)-1]
	m.text = prev.text
	m.sel = prev.sel
	m.reparse()
	m.revision++
	m.notify(Change{Revision: m.revision})
	return true
}

func (m *Model) Redo() bool {
	if len(m.future) == 0 {
		return false
	}
	next := m.future[len(m.future)-1]
	m.future = m.future[:len(m.future)-1]
	m.history = append(m.history, next)
	m.text = next.text
	m.sel = next.sel
	m.reparse()
	m.revision++
	m.notify(Change{Revision: m.revision})
	return true
}

func (m *Model) notify(ch Change) {
	for _, fn := range m.onChange {
		fn(ch)
	}
}

func (m *Model) reparse() {
	tree, _ := m.parser.ParseCtx(context.Background(), nil, []byte(m.text))
	m.tree = tree
}

func (m *Model) clampSpan(sel Span) Span {
	return clampSpanTo(sel, len(m.text))
}

func clampSpanTo(sel Span, max int) Span {
	if sel.Start > sel.End {
		sel.Start, sel.End = sel.End, sel.Start
	}
	if sel.Start < 0 {
		sel.Start = 0
	}
	if sel.End < 0 {
		sel.End = 0
	}
	if sel.Start > max {
		sel.Start = max
	}
	if sel.End > max {
		sel.End = max
	}
	return sel
}

// Tx is the mutation scope handed to Transact callbacks. It edits a
// detached copy; nothing is visible outside until commit.
type Tx struct {
	text string
	sel  Span
}

func (tx *Tx) Text() string    { return tx.text }
func (tx *Tx) Selection() Span { return tx.sel }

func (tx *Tx) SetSelection(sel Span) {
	tx.sel = clampSpanTo(sel, len(tx.text))
}

// ReplaceAll swaps the entire text. The selection is clamped into the
// new bounds; callers that care set it explicitly afterwards.
func (tx *Tx) ReplaceAll(text string) {
	tx.text = text
	tx.sel = clampSpanTo(tx.sel, len(text))
}

// Insert splices s in at off, clamped to the text bounds. The
// selection shifts right when the insert lands at or before it.
func (tx *Tx) Insert(off int, s string) {
	if off < 0 {
		off = 0
	}
	if off > len(tx.text) {
		off = len(tx.text)
	}
	tx.text = tx.text[:off] + s + tx.text[off:]
	if tx.sel.Start >= off {
		tx.sel.Start += len(s)
	}
	if tx.sel.End >= off {
		tx.sel.End += len(s)
	}
}

// Delete removes the span from the text and collapses the selection
// to the cut point.
func (tx *Tx) Delete(span Span) {
	span = clampSpanTo(span, len(tx.text))
	tx.text = tx.text[:span.Start] + tx.text[span.End:]
	tx.sel = Caret(span.Start)
}

// insertAtCursor replaces the current selection with s and leaves a
// caret after it. The default editing primitives go through here.
func (tx *Tx) insertAtCursor(s string) {
	sel := clampSpanTo(tx.sel, len(tx.text))
	tx.text = tx.text[:sel.Start] + s + tx.text[sel.End:]
	tx.sel = Caret(sel.Start + len(s))
}

func (tx *Tx) deleteBack() {
	sel := clampSpanTo(tx.sel, len(tx.text))
	if !sel.Empty() {
		tx.Delete(sel)
		return
	}
	if sel.Start == 0 {
		return
	}
	_, size := utf8.DecodeLastRuneInString(tx.text[:sel.Start])
	tx.Delete(Span{Start: sel.Start - size, End: sel.Start})
}
