package basic

import "sort"

// ProgramLine is one stored line: its number, the body tokens and the
// statements split at colons.
type ProgramLine struct {
	Number     int
	Tokens     []Token
	Statements [][]Token
}

// Program is the line-number-ordered program table. The order of lines is
// the execution order.
type Program struct {
	lines map[int]*ProgramLine
	order []int
}

// NewProgram creates an empty program.
func NewProgram() *Program {
	return &Program{lines: make(map[int]*ProgramLine)}
}

// Store replaces or inserts a line. An empty body deletes the line.
func (p *Program) Store(number int, body []Token) {
	if len(body) == 0 {
		p.Delete(number)
		return
	}
	if _, exists := p.lines[number]; !exists {
		i := sort.SearchInts(p.order, number)
		p.order = append(p.order, 0)
		copy(p.order[i+1:], p.order[i:])
		p.order[i] = number
	}
	p.lines[number] = &ProgramLine{
		Number:     number,
		Tokens:     body,
		Statements: splitStatements(body),
	}
}

// Delete removes a line if it exists.
func (p *Program) Delete(number int) {
	if _, exists := p.lines[number]; !exists {
		return
	}
	delete(p.lines, number)
	i := sort.SearchInts(p.order, number)
	p.order = append(p.order[:i], p.order[i+1:]...)
}

// Clear removes every line.
func (p *Program) Clear() {
	p.lines = make(map[int]*ProgramLine)
	p.order = nil
}

// Has reports whether a line exists.
func (p *Program) Has(number int) bool {
	_, ok := p.lines[number]
	return ok
}

// Line returns a stored line.
func (p *Program) Line(number int) (*ProgramLine, bool) {
	l, ok := p.lines[number]
	return l, ok
}

// Len returns the number of lines.
func (p *Program) Len() int { return len(p.order) }

// Lines returns the line numbers in execution order.
func (p *Program) Lines() []int {
	return append([]int(nil), p.order...)
}

// First returns the lowest line number.
func (p *Program) First() (int, bool) {
	if len(p.order) == 0 {
		return 0, false
	}
	return p.order[0], true
}

// NextLine returns the line following number in program order. number does
// not need to exist.
func (p *Program) NextLine(number int) (int, bool) {
	i := sort.SearchInts(p.order, number+1)
	if i >= len(p.order) {
		return 0, false
	}
	return p.order[i], true
}

// StatementCount returns how many statements a line holds.
func (p *Program) StatementCount(number int) int {
	if l, ok := p.lines[number]; ok {
		return len(l.Statements)
	}
	return 0
}

// Range returns the lines within [from, to] in order. A zero bound is open.
func (p *Program) Range(from, to int) []*ProgramLine {
	var out []*ProgramLine
	for _, n := range p.order {
		if (from > 0 && n < from) || (to > 0 && n > to) {
			continue
		}
		out = append(out, p.lines[n])
	}
	return out
}
