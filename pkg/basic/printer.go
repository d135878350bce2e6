package basic

import (
	"io"
	"strings"
)

// ZoneWidth is the width of a PRINT zone reached with a comma.
const ZoneWidth = 14

// printer writes program output and tracks the cursor column.
type printer struct {
	w   io.Writer
	col int
}

func (p *printer) write(s string) {
	if s == "" {
		return
	}
	io.WriteString(p.w, s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		p.col = len(s) - i - 1
	} else {
		p.col += len(s)
	}
}

func (p *printer) newline() {
	p.write("\n")
}

// zone pads to the start of the next print zone.
func (p *printer) zone() {
	p.write(strings.Repeat(" ", ZoneWidth-p.col%ZoneWidth))
}

// tab pads to the given zero-based column; it never moves backwards.
func (p *printer) tab(col int) {
	if col > p.col {
		p.write(strings.Repeat(" ", col-p.col))
	}
}

// ensureLineStart ends a partial line, e.g. before an error message.
func (p *printer) ensureLineStart() {
	if p.col != 0 {
		p.newline()
	}
}
