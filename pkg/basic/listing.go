package basic

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// ListLine renders a stored line the way LIST prints it.
func ListLine(l *ProgramLine) string {
	return strconv.Itoa(l.Number) + " " + listTokens(l.Tokens)
}

func listTokens(tokens []Token) string {
	var sb strings.Builder
	for i, t := range tokens {
		if i > 0 && spaceBetween(tokens[i-1], t) {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.Source())
	}
	return sb.String()
}

func spaceBetween(prev, cur Token) bool {
	switch cur.Kind {
	case TokenRParen, TokenComma, TokenSemicolon:
		return false
	case TokenLParen:
		if prev.Kind == TokenIdent || prev.Kind == TokenFunction {
			return false
		}
	}
	return prev.Kind != TokenLParen
}

// WriteProgram writes every line of prog in listing form.
func WriteProgram(w io.Writer, prog *Program) error {
	bw := bufio.NewWriter(w)
	for _, l := range prog.Range(0, 0) {
		if _, err := bw.WriteString(ListLine(l) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ParseProgram reads program text with one numbered line per text line.
// Blank lines are skipped; a line without a number is a syntax error.
func ParseProgram(text string) (*Program, error) {
	prog := NewProgram()
	scanner := bufio.NewScanner(strings.NewReader(text))
	row := 0
	for scanner.Scan() {
		row++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		line, numbered, body, err := ParseLine(raw)
		if err != nil {
			if numbered && line > 0 {
				return nil, atPosition(err, line)
			}
			return nil, err
		}
		if !numbered {
			return nil, newErrorf(SyntaxError, "text line %d has no line number", row)
		}
		prog.Store(line, body)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return prog, nil
}

// LoadSource replaces the current program with the parsed text. Variables
// are cleared and any CONT point is lost. On error the old program stays.
func (r *Runtime) LoadSource(text string) error {
	parsed, err := ParseProgram(text)
	if err != nil {
		return err
	}
	r.prog.Clear()
	for _, l := range parsed.Range(0, 0) {
		r.prog.Store(l.Number, l.Tokens)
	}
	r.mem.Clear()
	r.invalidate()
	return r.rebuildData()
}

// Source returns the program in listing form.
func (r *Runtime) Source() string {
	var sb strings.Builder
	WriteProgram(&sb, r.prog)
	return sb.String()
}

// List writes the lines within [from, to] to w. A zero bound is open.
func (r *Runtime) List(w io.Writer, from, to int) error {
	for _, l := range r.prog.Range(from, to) {
		if _, err := io.WriteString(w, ListLine(l)+"\n"); err != nil {
			return err
		}
	}
	return nil
}
