// Package pretty is a Wadler-style layout engine. Documents are allocated in
// an Arena and rendered to fixed-width text.
//
// An Arena is not safe for concurrent use: it keeps the document graph and
// the layout scratch stacks between calls, and reuses them after Reset. Code
// that needs to format from several goroutines must funnel the work through
// a single owner.
package pretty

import (
	"strings"
	"sync/atomic"

	"github.com/mattn/go-runewidth"
)

// Doc is a handle to a document node inside an Arena. The zero Doc is the
// empty document.
type Doc int32

// Nil is the empty document.
const Nil Doc = 0

type kind uint8

const (
	kindNil kind = iota
	kindText
	kindLine     // newline, or a space when flattened
	kindSoftLine // newline, or nothing when flattened
	kindHardLine // always a newline; forces enclosing groups to break
	kindConcat
	kindNest
	kindGroup
)

type node struct {
	kind     kind
	text     string
	width    int
	indent   int
	child    Doc
	children []Doc
}

type frame struct {
	indent int
	flat   bool
	doc    Doc
}

// Arena owns document nodes and layout state.
type Arena struct {
	nodes   []node
	stack   []frame
	scratch []frame
	out     strings.Builder

	busy int32
}

// NewArena creates an empty Arena.
func NewArena() *Arena {
	a := &Arena{nodes: make([]node, 1, 256)}
	return a
}

func (a *Arena) enter() {
	if !atomic.CompareAndSwapInt32(&a.busy, 0, 1) {
		panic("pretty: concurrent use of Arena")
	}
}

func (a *Arena) exit() {
	atomic.StoreInt32(&a.busy, 0)
}

func (a *Arena) alloc(n node) Doc {
	a.enter()
	defer a.exit()

	a.nodes = append(a.nodes, n)
	return Doc(len(a.nodes) - 1)
}

// Len reports how many nodes are currently allocated.
func (a *Arena) Len() int {
	return len(a.nodes) - 1
}

// Reset releases every document allocated so far. Handles obtained before
// the call must not be used afterwards.
func (a *Arena) Reset() {
	a.enter()
	defer a.exit()

	for i := range a.nodes {
		a.nodes[i] = node{}
	}
	a.nodes = a.nodes[:1]
	a.stack = a.stack[:0]
	a.scratch = a.scratch[:0]
	a.out.Reset()
}

// Text is a literal run of text. It must not contain newlines; use Lines
// for multi-line text.
func (a *Arena) Text(s string) Doc {
	if s == "" {
		return Nil
	}
	return a.alloc(node{kind: kindText, text: s, width: runewidth.StringWidth(s)})
}

// Lines splits s on newlines and joins the pieces with hard line breaks.
func (a *Arena) Lines(s string) Doc {
	parts := strings.Split(s, "\n")
	docs := make([]Doc, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			docs = append(docs, a.HardLine())
		}
		docs = append(docs, a.Text(p))
	}
	return a.Concat(docs...)
}

// Line is a newline that becomes a single space when its group is flat.
func (a *Arena) Line() Doc { return a.alloc(node{kind: kindLine}) }

// SoftLine is a newline that disappears when its group is flat.
func (a *Arena) SoftLine() Doc { return a.alloc(node{kind: kindSoftLine}) }

// HardLine is an unconditional newline.
func (a *Arena) HardLine() Doc { return a.alloc(node{kind: kindHardLine}) }

// Space is a single literal space.
func (a *Arena) Space() Doc { return a.Text(" ") }

// Concat lays docs out one after another.
func (a *Arena) Concat(docs ...Doc) Doc {
	kept := make([]Doc, 0, len(docs))
	for _, d := range docs {
		if d != Nil {
			kept = append(kept, d)
		}
	}
	switch len(kept) {
	case 0:
		return Nil
	case 1:
		return kept[0]
	}
	return a.alloc(node{kind: kindConcat, children: kept})
}

// Nest indents every line break inside d by n more columns.
func (a *Arena) Nest(n int, d Doc) Doc {
	if d == Nil {
		return Nil
	}
	return a.alloc(node{kind: kindNest, indent: n, child: d})
}

// Group lays d out on one line when it fits, and breaks it otherwise.
func (a *Arena) Group(d Doc) Doc {
	if d == Nil {
		return Nil
	}
	return a.alloc(node{kind: kindGroup, child: d})
}

// Intersperse places sep between each pair of docs.
func (a *Arena) Intersperse(docs []Doc, sep Doc) Doc {
	out := make([]Doc, 0, 2*len(docs))
	for i, d := range docs {
		if i > 0 {
			out = append(out, sep)
		}
		out = append(out, d)
	}
	return a.Concat(out...)
}

// Parens wraps d in parentheses.
func (a *Arena) Parens(d Doc) Doc {
	return a.Concat(a.Text("("), d, a.Text(")"))
}
