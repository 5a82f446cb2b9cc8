package pretty

import (
	"strings"
)

// Pretty renders d so that lines stay within width columns wherever the
// document allows it. Trailing spaces are trimmed from every line.
func (a *Arena) Pretty(d Doc, width int) string {
	a.enter()
	defer a.exit()

	a.out.Reset()
	a.stack = append(a.stack[:0], frame{doc: d})
	col := 0

	for len(a.stack) > 0 {
		f := a.stack[len(a.stack)-1]
		a.stack = a.stack[:len(a.stack)-1]
		n := &a.nodes[f.doc]

		switch n.kind {
		case kindNil:
		case kindText:
			a.out.WriteString(n.text)
			col += n.width
		case kindLine:
			if f.flat {
				a.out.WriteByte(' ')
				col++
			} else {
				col = a.newline(f.indent)
			}
		case kindSoftLine:
			if !f.flat {
				col = a.newline(f.indent)
			}
		case kindHardLine:
			col = a.newline(f.indent)
		case kindConcat:
			for i := len(n.children) - 1; i >= 0; i-- {
				a.stack = append(a.stack, frame{indent: f.indent, flat: f.flat, doc: n.children[i]})
			}
		case kindNest:
			a.stack = append(a.stack, frame{indent: f.indent + n.indent, flat: f.flat, doc: n.child})
		case kindGroup:
			if f.flat {
				a.stack = append(a.stack, frame{indent: f.indent, flat: true, doc: n.child})
				break
			}
			flat := frame{indent: f.indent, flat: true, doc: n.child}
			if a.fits(width-col, flat) {
				a.stack = append(a.stack, flat)
			} else {
				a.stack = append(a.stack, frame{indent: f.indent, doc: n.child})
			}
		}
	}

	return trimTrailingSpaces(a.out.String())
}

func (a *Arena) newline(indent int) int {
	a.out.WriteByte('\n')
	for i := 0; i < indent; i++ {
		a.out.WriteByte(' ')
	}
	return indent
}

// fits reports whether next, followed by whatever is pending on the main
// stack up to its first line break, fits in rem columns.
func (a *Arena) fits(rem int, next frame) bool {
	a.scratch = append(a.scratch[:0], next)
	rest := len(a.stack) - 1

	for rem >= 0 {
		if len(a.scratch) == 0 {
			if rest < 0 {
				return true
			}
			a.scratch = append(a.scratch, a.stack[rest])
			rest--
		}

		f := a.scratch[len(a.scratch)-1]
		a.scratch = a.scratch[:len(a.scratch)-1]
		n := &a.nodes[f.doc]

		switch n.kind {
		case kindText:
			rem -= n.width
		case kindLine:
			if !f.flat {
				return true
			}
			rem--
		case kindSoftLine:
			if !f.flat {
				return true
			}
		case kindHardLine:
			return !f.flat
		case kindConcat:
			for i := len(n.children) - 1; i >= 0; i-- {
				a.scratch = append(a.scratch, frame{indent: f.indent, flat: f.flat, doc: n.children[i]})
			}
		case kindNest:
			a.scratch = append(a.scratch, frame{indent: f.indent + n.indent, flat: f.flat, doc: n.child})
		case kindGroup:
			a.scratch = append(a.scratch, frame{indent: f.indent, flat: f.flat, doc: n.child})
		}
	}
	return false
}

func trimTrailingSpaces(s string) string {
	if !strings.Contains(s, " \n") && !strings.HasSuffix(s, " ") {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.Join(lines, "\n")
}
