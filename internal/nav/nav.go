// Package nav lets the cursor escape block-structured regions. A
// fenced code block swallows arrow keys and Enter in a rich editing
// surface; the machine here intercepts those keys at the region's
// boundaries and relocates the cursor to a sibling block, creating an
// empty paragraph to land on when no sibling exists.
package nav

import (
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/kobzarvs/qmark/internal/webdoc"
)

// maxAncestorDepth bounds every ancestry walk.
const maxAncestorDepth = 10

// DefaultEndTolerance is the "at or near the end" window in bytes.
// Deliberately loose: editor-internal positions wobble around block
// boundaries, and over-triggering an exit beats trapping the cursor.
const DefaultEndTolerance = 2

// Machine binds boundary navigation onto a model's key registry.
type Machine struct {
	model        *webdoc.Model
	endTolerance int
}

func New(model *webdoc.Model, endTolerance int) *Machine {
	if endTolerance < 0 {
		endTolerance = DefaultEndTolerance
	}
	nv := &Machine{model: model, endTolerance: endTolerance}
	model.Bind(webdoc.Key{Key: tcell.KeyDown}, nv.handleDown)
	model.Bind(webdoc.Key{Key: tcell.KeyUp}, nv.handleUp)
	model.Bind(webdoc.Key{Key: tcell.KeyEnter}, nv.handleEnter)
	model.Bind(webdoc.Key{Key: tcell.KeyEscape}, nv.handleEscape)
	return nv
}

// regionContext identifies the enclosing fenced region of one
// keystroke. Rebuilt per event, never stored.
type regionContext struct {
	node    *webdoc.Node
	content webdoc.Span
}

func (nv *Machine) currentRegion() *regionContext {
	caret := nv.model.Selection().Start
	n := nv.model.NodeAt(caret)
	for depth := 0; n != nil && depth < maxAncestorDepth; depth++ {
		if webdoc.Classify(n) == webdoc.RegionFencedCode {
			return &regionContext{node: n, content: webdoc.ContentSpan(n)}
		}
		n = n.Parent()
	}
	return nil
}

// atOrNearEnd reports whether the caret sits within the tolerance
// window of the region content's end, or only whitespace remains
// between caret and end.
func (nv *Machine) atOrNearEnd(rc *regionContext) bool {
	caret := nv.model.Selection().Start
	if caret >= rc.content.End {
		return true
	}
	if rc.content.End-caret <= nv.endTolerance {
		return true
	}
	tail := nv.model.Text()[caret:rc.content.End]
	return strings.TrimSpace(tail) == ""
}

func (nv *Machine) handleDown(*tcell.EventKey) bool {
	rc := nv.currentRegion()
	if rc == nil || !nv.atOrNearEnd(rc) {
		return false
	}
	if next := nextOutside(rc.node); next != nil {
		nv.model.SetSelection(webdoc.Caret(next.Start()))
		return true
	}
	nv.insertParagraphAfter(rc.node)
	return true
}

func (nv *Machine) handleUp(*tcell.EventKey) bool {
	rc := nv.currentRegion()
	if rc == nil {
		return false
	}
	sel := nv.model.Selection()
	if !sel.Empty() || sel.Start != rc.content.Start {
		return false
	}
	if prev := prevOutside(rc.node); prev != nil {
		nv.model.SetSelection(webdoc.Caret(nv.trimmedEnd(prev)))
		return true
	}
	nv.insertParagraphBefore(rc.node)
	return true
}

func (nv *Machine) handleEnter(*tcell.EventKey) bool {
	rc := nv.currentRegion()
	if rc == nil || !nv.atOrNearEnd(rc) {
		return false
	}
	nv.insertParagraphAfter(rc.node)
	return true
}

// handleEscape leaves the region from anywhere inside it: next
// sibling first, previous sibling second, fresh paragraph last.
func (nv *Machine) handleEscape(*tcell.EventKey) bool {
	rc := nv.currentRegion()
	if rc == nil {
		return false
	}
	if next := nextOutside(rc.node); next != nil {
		nv.model.SetSelection(webdoc.Caret(next.Start()))
		return true
	}
	if prev := prevOutside(rc.node); prev != nil {
		nv.model.SetSelection(webdoc.Caret(nv.trimmedEnd(prev)))
		return true
	}
	nv.insertParagraphAfter(rc.node)
	return true
}

// nextOutside finds the following structural block, climbing out of
// enclosing containers when the region is their last child.
func nextOutside(n *webdoc.Node) *webdoc.Node {
	cur := n
	for depth := 0; cur != nil && depth < maxAncestorDepth; depth++ {
		if s := cur.NextSibling(); s != nil {
			return s
		}
		cur = cur.Parent()
	}
	return nil
}

func prevOutside(n *webdoc.Node) *webdoc.Node {
	cur := n
	for depth := 0; cur != nil && depth < maxAncestorDepth; depth++ {
		if s := cur.PrevSibling(); s != nil {
			return s
		}
		cur = cur.Parent()
	}
	return nil
}

// trimmedEnd is a node's end offset without its trailing newlines,
// where a caret visually belongs.
func (nv *Machine) trimmedEnd(n *webdoc.Node) int {
	text := nv.model.Text()
	end := n.End()
	if end > len(text) {
		end = len(text)
	}
	for end > n.Start() && text[end-1] == '\n' {
		end--
	}
	return end
}

// insertParagraphAfter opens an empty line after the region and puts
// the caret on it, one undo entry for the whole mutation.
func (nv *Machine) insertParagraphAfter(region *webdoc.Node) {
	at := region.End()
	_ = nv.model.Transact(func(tx *webdoc.Tx) error {
		text := tx.Text()
		if at > len(text) {
			at = len(text)
		}
		insertion := "\n"
		caret := at + 1
		if at == 0 || text[at-1] != '\n' {
			insertion = "\n\n"
			caret = at + 2
		}
		tx.Insert(at, insertion)
		tx.SetSelection(webdoc.Caret(caret))
		return nil
	})
}

func (nv *Machine) insertParagraphBefore(region *webdoc.Node) {
	at := region.Start()
	_ = nv.model.Transact(func(tx *webdoc.Tx) error {
		if at > len(tx.Text()) {
			at = len(tx.Text())
		}
		tx.Insert(at, "\n")
		tx.SetSelection(webdoc.Caret(at))
		return nil
	})
}
