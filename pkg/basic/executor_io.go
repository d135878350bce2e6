package basic

import (
	"strings"
)

// print handles PRINT with ',' (next zone) and ';' (no padding) separators.
// A trailing separator suppresses the newline.
func (e *Executor) print(tokens []Token) error {
	trailing := false
	depth, start := 0, 0
	flush := func(end int) error {
		expr := tokens[start:end]
		if len(expr) == 0 {
			return nil
		}
		trailing = false
		return e.printItem(expr)
	}
	for i, t := range tokens {
		switch t.Kind {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
		case TokenComma, TokenSemicolon:
			if depth != 0 {
				continue
			}
			if err := flush(i); err != nil {
				return err
			}
			if t.Kind == TokenComma {
				e.out.zone()
			}
			trailing = true
			start = i + 1
		}
	}
	if err := flush(len(tokens)); err != nil {
		return err
	}
	if !trailing {
		e.out.newline()
	}
	return nil
}

func (e *Executor) printItem(expr []Token) error {
	if expr[0].Kind == TokenFunction && expr[0].Builtin == FnTab && len(expr) > 1 {
		if closeIdx, ok := matchParen(expr, 1); ok && closeIdx == len(expr)-1 {
			n, err := e.eval.EvaluateNumber(expr[2:closeIdx], e.mem)
			if err != nil {
				return err
			}
			col, err := count(n)
			if err != nil {
				return err
			}
			if col > MaxStringLength {
				return newError(IllegalQuantity)
			}
			e.out.tab(col)
			return nil
		}
	}
	v, err := e.eval.Evaluate(expr, e.mem)
	if err != nil {
		return err
	}
	e.out.write(v.PrintString())
	return nil
}

// dataValues converts the literals of a DATA statement body.
func dataValues(tokens []Token) ([]Value, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	var values []Value
	for _, item := range splitTopLevel(tokens, TokenComma) {
		switch {
		case len(item) == 0:
			values = append(values, StringValue(""))
		case len(item) == 1 && item[0].Kind == TokenNumber:
			values = append(values, FloatValue(item[0].Num))
		case len(item) == 1 && item[0].Kind == TokenString:
			values = append(values, StringValue(item[0].Text))
		default:
			return nil, newErrorf(SyntaxError, "bad DATA item %s", FormatTokens(item))
		}
	}
	return values, nil
}

// read handles READ var[, var...].
func (e *Executor) read(tokens []Token) error {
	if len(tokens) == 0 {
		return newError(SyntaxError)
	}
	for _, part := range splitTopLevel(tokens, TokenComma) {
		lv, rest, err := e.target(part)
		if err != nil {
			return err
		}
		if len(rest) != 0 {
			return newErrorf(SyntaxError, "unexpected %s", rest[0].Source())
		}
		v, err := e.mem.Data.Next()
		if err != nil {
			return err
		}
		if isStringName(lv.name) && v.IsNumeric() {
			v = StringValue(v.Text())
		}
		if err := e.store(lv, v); err != nil {
			return err
		}
	}
	return nil
}

// restore handles RESTORE [line].
func (e *Executor) restore(tokens []Token) error {
	if len(tokens) == 0 {
		e.mem.Data.Restore(0)
		return nil
	}
	line, err := e.lineTarget(tokens)
	if err != nil {
		return err
	}
	e.mem.Data.Restore(line)
	return nil
}

// inputStatement handles INPUT ["prompt";] var[, var...]. Malformed numbers
// ask again instead of failing. Without input the program breaks at the
// INPUT, so CONT asks again.
func (e *Executor) inputStatement(tokens []Token, pos Position) (ControlFlow, error) {
	if pos.Line == DirectLine {
		return Continue, newError(IllegalDirect)
	}
	prompt := "? "
	if len(tokens) >= 2 && tokens[0].Kind == TokenString &&
		(tokens[1].Kind == TokenSemicolon || tokens[1].Kind == TokenComma) {
		prompt = tokens[0].Text + "? "
		tokens = tokens[2:]
	}
	if len(tokens) == 0 {
		return Continue, newError(SyntaxError)
	}
	parts := splitTopLevel(tokens, TokenComma)
	targets := make([]lvalue, len(parts))
	for i, part := range parts {
		lv, rest, err := e.target(part)
		if err != nil {
			return Continue, err
		}
		if len(rest) != 0 {
			return Continue, newErrorf(SyntaxError, "unexpected %s", rest[0].Source())
		}
		targets[i] = lv
	}

	for {
		e.out.write(prompt)
		if e.input == nil {
			return Interrupted(), nil
		}
		line, ok := e.input()
		if !ok {
			return Interrupted(), nil
		}
		e.out.col = 0
		values, valid := parseInputFields(line, targets)
		if !valid {
			e.out.write("?REDO FROM START\n")
			continue
		}
		if len(splitInput(line)) > len(targets) {
			e.out.write("?EXTRA IGNORED\n")
		}
		for i, lv := range targets {
			if err := e.store(lv, values[i]); err != nil {
				return Continue, err
			}
		}
		return Continue, nil
	}
}

// splitInput splits a typed input line at commas outside quotes.
func splitInput(line string) []string {
	var fields []string
	var sb strings.Builder
	quoted := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			quoted = !quoted
			sb.WriteByte(c)
		case c == ',' && !quoted:
			fields = append(fields, sb.String())
			sb.Reset()
		default:
			sb.WriteByte(c)
		}
	}
	return append(fields, sb.String())
}

func parseInputFields(line string, targets []lvalue) ([]Value, bool) {
	fields := splitInput(line)
	if len(fields) < len(targets) {
		return nil, false
	}
	values := make([]Value, len(targets))
	for i, lv := range targets {
		field := strings.TrimSpace(fields[i])
		if isStringName(lv.name) {
			if len(field) >= 2 && field[0] == '"' && field[len(field)-1] == '"' {
				field = field[1 : len(field)-1]
			}
			values[i] = StringValue(field)
			continue
		}
		n, ok := parseNumber(field)
		if !ok {
			return nil, false
		}
		values[i] = FloatValue(n)
	}
	return values, true
}
