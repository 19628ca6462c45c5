package webdoc

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// RegionKind is the structural vocabulary the navigation layer works
// with. Callers never inspect raw node type names; Classify is the
// single place that knows the grammar's spelling.
type RegionKind int

const (
	RegionNone RegionKind = iota
	RegionFencedCode
	RegionHTMLBlock
	RegionTable
	RegionParagraph
	RegionHeading
)

func (k RegionKind) String() string {
	switch k {
	case RegionFencedCode:
		return "fenced-code"
	case RegionHTMLBlock:
		return "html-block"
	case RegionTable:
		return "table"
	case RegionParagraph:
		return "paragraph"
	case RegionHeading:
		return "heading"
	default:
		return "none"
	}
}

// Classify maps a parse-tree node onto a RegionKind.
func Classify(n *Node) RegionKind {
	if n == nil {
		return RegionNone
	}
	switch n.Type() {
	case "fenced_code_block", "indented_code_block":
		return RegionFencedCode
	case "html_block":
		return RegionHTMLBlock
	case "pipe_table":
		return RegionTable
	case "paragraph":
		return RegionParagraph
	case "atx_heading", "setext_heading":
		return RegionHeading
	default:
		return RegionNone
	}
}

// Node wraps a parse-tree node; offsets are byte positions into the
// model text. Nodes are only valid until the next content commit.
type Node struct {
	n *sitter.Node
}

func wrapNode(n *sitter.Node) *Node {
	if n == nil {
		return nil
	}
	return &Node{n: n}
}

func (nd *Node) Type() string  { return nd.n.Type() }
func (nd *Node) Start() int    { return int(nd.n.StartByte()) }
func (nd *Node) End() int      { return int(nd.n.EndByte()) }
func (nd *Node) Parent() *Node { return wrapNode(nd.n.Parent()) }

// NextSibling and PrevSibling walk named siblings only; anonymous
// grammar tokens are not structural content.
func (nd *Node) NextSibling() *Node { return wrapNode(nd.n.NextNamedSibling()) }
func (nd *Node) PrevSibling() *Node { return wrapNode(nd.n.PrevNamedSibling()) }

func (nd *Node) NamedChildCount() int { return int(nd.n.NamedChildCount()) }

func (nd *Node) NamedChild(i int) *Node {
	if i < 0 || i >= nd.NamedChildCount() {
		return nil
	}
	return wrapNode(nd.n.NamedChild(i))
}

// Root returns the document node of the current parse tree.
func (m *Model) Root() *Node {
	if m.tree == nil {
		return nil
	}
	return wrapNode(m.tree.RootNode())
}

// NodeAt returns the deepest named node covering the byte offset.
func (m *Model) NodeAt(off int) *Node {
	if m.tree == nil {
		return nil
	}
	root := m.tree.RootNode()
	if root == nil {
		return nil
	}
	if off < 0 {
		off = 0
	}
	if off > len(m.text) {
		off = len(m.text)
	}
	p := pointAt(m.text, off)
	return wrapNode(root.NamedDescendantForPointRange(p, p))
}

// EndOfLastBlock is the offset just past the last top-level block,
// 0 for an empty document. The selection fallback after a shrinking
// replacement lands here.
func (m *Model) EndOfLastBlock() int {
	root := m.Root()
	if root == nil {
		return len(m.text)
	}
	n := root.NamedChildCount()
	if n == 0 {
		return 0
	}
	end := root.NamedChild(n - 1).End()
	if end > len(m.text) {
		end = len(m.text)
	}
	return end
}

// ContentSpan returns the editable interior of a region node. For a
// fenced code block that is the span between the delimiters, where a
// rich editing surface actually places the cursor; for every other
// node it is the full range.
func ContentSpan(n *Node) Span {
	if n == nil {
		return Span{}
	}
	if n.Type() != "fenced_code_block" {
		return Span{Start: n.Start(), End: n.End()}
	}
	start, end := -1, -1
	for i := 0; i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child.Type() != "code_fence_content" {
			continue
		}
		if start == -1 || child.Start() < start {
			start = child.Start()
		}
		if child.End() > end {
			end = child.End()
		}
	}
	if start == -1 {
		// Empty fence: no content node between the delimiters. The
		// cursor slot sits right before the closing fence.
		off := n.End()
		for i := n.NamedChildCount() - 1; i >= 0; i-- {
			child := n.NamedChild(i)
			if child.Type() == "fenced_code_block_delimiter" && child.Start() > n.Start() {
				off = child.Start()
				break
			}
		}
		return Span{Start: off, End: off}
	}
	return Span{Start: start, End: end}
}

// pointAt converts a byte offset to a row/column point. Columns are
// byte counts within the line, matching the parser's convention.
func pointAt(text string, off int) sitter.Point {
	row, col := 0, 0
	for i := 0; i < off && i < len(text); i++ {
		if text[i] == '\n' {
			row++
			col = 0
		} else {
			col++
		}
	}
	return sitter.Point{Row: uint32(row), Column: uint32(col)}
}
