package nav

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/kobzarvs/qmark/internal/webdoc"
)

func newTestNav(t *testing.T, doc string, tolerance int) *webdoc.Model {
	t.Helper()
	m := webdoc.New()
	m.Load(doc)
	New(m, tolerance)
	return m
}

func keyEvent(k tcell.Key) *tcell.EventKey {
	return tcell.NewEventKey(k, 0, tcell.ModNone)
}

func TestDownExitAtEndToSibling(t *testing.T) {
	doc := "```go\ncode()\n```\n\nafter\n"
	m := newTestNav(t, doc, DefaultEndTolerance)
	m.SetSelection(webdoc.Caret(12)) // right after code()

	if !m.HandleKey(keyEvent(tcell.KeyDown)) {
		t.Fatal("down at region end not consumed")
	}
	if want := webdoc.Caret(strings.Index(doc, "after")); m.Selection() != want {
		t.Errorf("Selection() = %+v, want %+v", m.Selection(), want)
	}
	if m.Text() != doc {
		t.Errorf("Text() = %q, relocation must not edit", m.Text())
	}
	if m.UndoDepth() != 1 {
		t.Errorf("UndoDepth() = %d, want 1", m.UndoDepth())
	}
}

func TestDownMidRegionFallsThrough(t *testing.T) {
	doc := "```go\ncode()\n```\n\nafter\n"
	m := newTestNav(t, doc, DefaultEndTolerance)
	m.SetSelection(webdoc.Caret(6)) // start of code()

	if m.HandleKey(keyEvent(tcell.KeyDown)) {
		t.Error("down mid-region consumed")
	}
	if m.Text() != doc {
		t.Errorf("Text() = %q, want untouched", m.Text())
	}
	if m.Selection() != webdoc.Caret(6) {
		t.Errorf("Selection() = %+v, want unchanged", m.Selection())
	}
}

func TestDownNoSiblingInsertsParagraph(t *testing.T) {
	doc := "```go\ncode()\n```\n"
	m := newTestNav(t, doc, DefaultEndTolerance)
	m.SetSelection(webdoc.Caret(12))

	if !m.HandleKey(keyEvent(tcell.KeyDown)) {
		t.Fatal("down at region end not consumed")
	}
	if want := doc + "\n"; m.Text() != want {
		t.Errorf("Text() = %q, want %q", m.Text(), want)
	}
	if want := webdoc.Caret(len(doc) + 1); m.Selection() != want {
		t.Errorf("Selection() = %+v, want %+v", m.Selection(), want)
	}
	if m.UndoDepth() != 2 {
		t.Errorf("UndoDepth() = %d, want one entry for the whole insertion", m.UndoDepth())
	}
}

func TestUpAtStartToPrevSibling(t *testing.T) {
	doc := "before\n\n```go\ncode\n```\n"
	m := newTestNav(t, doc, DefaultEndTolerance)
	m.SetSelection(webdoc.Caret(strings.Index(doc, "code")))

	if !m.HandleKey(keyEvent(tcell.KeyUp)) {
		t.Fatal("up at region start not consumed")
	}
	if want := webdoc.Caret(len("before")); m.Selection() != want {
		t.Errorf("Selection() = %+v, want %+v (end of previous block)", m.Selection(), want)
	}
	if m.Text() != doc {
		t.Errorf("Text() = %q, relocation must not edit", m.Text())
	}
}

func TestUpMidRegionFallsThrough(t *testing.T) {
	doc := "before\n\n```go\ncode\n```\n"
	m := newTestNav(t, doc, DefaultEndTolerance)
	caret := webdoc.Caret(strings.Index(doc, "code") + 2)
	m.SetSelection(caret)

	if m.HandleKey(keyEvent(tcell.KeyUp)) {
		t.Error("up away from region start consumed")
	}
	if m.Selection() != caret {
		t.Errorf("Selection() = %+v, want unchanged", m.Selection())
	}
}

func TestUpNoPrevSiblingInsertsParagraph(t *testing.T) {
	doc := "```go\ncode\n```\n\ntail\n"
	m := newTestNav(t, doc, DefaultEndTolerance)
	m.SetSelection(webdoc.Caret(strings.Index(doc, "code")))

	if !m.HandleKey(keyEvent(tcell.KeyUp)) {
		t.Fatal("up at region start not consumed")
	}
	if want := "\n" + doc; m.Text() != want {
		t.Errorf("Text() = %q, want %q", m.Text(), want)
	}
	if m.Selection() != webdoc.Caret(0) {
		t.Errorf("Selection() = %+v, want caret on the new first line", m.Selection())
	}
	if m.UndoDepth() != 2 {
		t.Errorf("UndoDepth() = %d, want 2", m.UndoDepth())
	}
}

func TestEnterNearEndInsertsAfterRegion(t *testing.T) {
	doc := "```go\ncode\n```\n\nafter\n"
	m := newTestNav(t, doc, DefaultEndTolerance)
	m.SetSelection(webdoc.Caret(10)) // right after code

	if !m.HandleKey(keyEvent(tcell.KeyEnter)) {
		t.Fatal("enter near region end not consumed")
	}
	// The paragraph goes after the region even though a sibling
	// exists; enter always creates, never relocates.
	if want := "```go\ncode\n```\n\n\nafter\n"; m.Text() != want {
		t.Errorf("Text() = %q, want %q", m.Text(), want)
	}
	if want := webdoc.Caret(len("```go\ncode\n```\n") + 1); m.Selection() != want {
		t.Errorf("Selection() = %+v, want %+v", m.Selection(), want)
	}
}

func TestEnterMidRegionTypesNewline(t *testing.T) {
	doc := "```go\ncode\n```\n\nafter\n"
	m := newTestNav(t, doc, DefaultEndTolerance)
	m.SetSelection(webdoc.Caret(8)) // co|de

	if !m.HandleKey(keyEvent(tcell.KeyEnter)) {
		t.Fatal("enter mid-region did nothing")
	}
	if want := "```go\nco\nde\n```\n\nafter\n"; m.Text() != want {
		t.Errorf("Text() = %q, want default newline insert %q", m.Text(), want)
	}
}

func TestEscapePrefersNextSibling(t *testing.T) {
	doc := "before\n\n```\nc\n```\n\nafter\n"
	m := newTestNav(t, doc, DefaultEndTolerance)
	m.SetSelection(webdoc.Caret(strings.Index(doc, "c\n")))

	if !m.HandleKey(keyEvent(tcell.KeyEscape)) {
		t.Fatal("escape inside region not consumed")
	}
	if want := webdoc.Caret(strings.Index(doc, "after")); m.Selection() != want {
		t.Errorf("Selection() = %+v, want %+v", m.Selection(), want)
	}
	if m.Text() != doc {
		t.Errorf("Text() = %q, want untouched", m.Text())
	}
}

func TestEscapeFallsBackToPrevSibling(t *testing.T) {
	doc := "before\n\n```\nc\n```"
	m := newTestNav(t, doc, DefaultEndTolerance)
	m.SetSelection(webdoc.Caret(strings.Index(doc, "c\n")))

	if !m.HandleKey(keyEvent(tcell.KeyEscape)) {
		t.Fatal("escape inside region not consumed")
	}
	if want := webdoc.Caret(len("before")); m.Selection() != want {
		t.Errorf("Selection() = %+v, want %+v", m.Selection(), want)
	}
}

func TestEscapeAloneInsertsParagraph(t *testing.T) {
	doc := "```\nc\n```\n"
	m := newTestNav(t, doc, DefaultEndTolerance)
	m.SetSelection(webdoc.Caret(4))

	if !m.HandleKey(keyEvent(tcell.KeyEscape)) {
		t.Fatal("escape inside region not consumed")
	}
	if want := doc + "\n"; m.Text() != want {
		t.Errorf("Text() = %q, want %q", m.Text(), want)
	}
	if want := webdoc.Caret(len(doc) + 1); m.Selection() != want {
		t.Errorf("Selection() = %+v, want %+v", m.Selection(), want)
	}
}

func TestEscapeOutsideRegionIgnored(t *testing.T) {
	doc := "plain text\n"
	m := newTestNav(t, doc, DefaultEndTolerance)
	m.SetSelection(webdoc.Caret(3))

	if m.HandleKey(keyEvent(tcell.KeyEscape)) {
		t.Error("escape outside any region consumed")
	}
}

func TestTableIsNotAnEscapableRegion(t *testing.T) {
	doc := "| a | b |\n| --- | --- |\n| c | d |\n"
	m := newTestNav(t, doc, DefaultEndTolerance)
	m.SetSelection(webdoc.Caret(2))

	if m.HandleKey(keyEvent(tcell.KeyDown)) {
		t.Error("down inside a table consumed")
	}
}

func TestToleranceWindowEdges(t *testing.T) {
	doc := "```\nabcdef\n```\n"
	contentEnd := strings.LastIndex(doc, "```")

	m := newTestNav(t, doc, 2)
	m.SetSelection(webdoc.Caret(contentEnd - 2))
	if !m.HandleKey(keyEvent(tcell.KeyDown)) {
		t.Error("down at exactly tolerance distance not consumed")
	}

	m = newTestNav(t, doc, 2)
	m.SetSelection(webdoc.Caret(contentEnd - 3))
	if m.HandleKey(keyEvent(tcell.KeyDown)) {
		t.Error("down one byte past the tolerance window consumed")
	}
}

func TestWhitespaceTailCountsAsEnd(t *testing.T) {
	doc := "```\nab   \n```\n"
	m := newTestNav(t, doc, 2)
	m.SetSelection(webdoc.Caret(strings.Index(doc, "ab") + 2))

	if !m.HandleKey(keyEvent(tcell.KeyDown)) {
		t.Fatal("down with only whitespace to region end not consumed")
	}
	if want := doc + "\n"; m.Text() != want {
		t.Errorf("Text() = %q, want %q", m.Text(), want)
	}
}
