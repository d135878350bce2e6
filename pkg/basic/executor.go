package basic

import (
	"io"
	"math"
)

// InputFunc supplies one line of user input for INPUT. It returns false when
// no more input is available.
type InputFunc func() (string, bool)

// Executor runs single statements against the memory model and reports
// where execution continues.
type Executor struct {
	mem   *Memory
	eval  *Evaluator
	prog  *Program
	out   *printer
	input InputFunc

	direct [][]Token // statements of the immediate-mode line being executed
}

// NewExecutor wires an executor to its collaborators.
func NewExecutor(mem *Memory, eval *Evaluator, prog *Program, out io.Writer, input InputFunc) *Executor {
	return &Executor{
		mem:   mem,
		eval:  eval,
		prog:  prog,
		out:   &printer{w: out},
		input: input,
	}
}

// SetDirect installs the statements of an immediate-mode line.
func (e *Executor) SetDirect(stmts [][]Token) {
	e.direct = stmts
}

func (e *Executor) statementCount(line int) int {
	if line == DirectLine {
		return len(e.direct)
	}
	return e.prog.StatementCount(line)
}

// Execute runs one statement located at pos.
func (e *Executor) Execute(stmt []Token, pos Position) (ControlFlow, error) {
	if len(stmt) == 0 {
		return Continue, nil
	}
	first := stmt[0]
	if first.Kind == TokenIdent {
		return Continue, e.assign(stmt)
	}
	if first.Kind != TokenKeyword {
		return Continue, newErrorf(SyntaxError, "unexpected %s", first.Source())
	}

	switch first.Keyword {
	case KwLet:
		return Continue, e.assign(stmt[1:])
	case KwPrint:
		return Continue, e.print(stmt[1:])
	case KwInput:
		return e.inputStatement(stmt[1:], pos)
	case KwGoto:
		line, err := e.lineTarget(stmt[1:])
		if err != nil {
			return Continue, err
		}
		return Jump(line), nil
	case KwGosub:
		line, err := e.lineTarget(stmt[1:])
		if err != nil {
			return Continue, err
		}
		return e.gosub(line, pos)
	case KwReturn:
		if len(stmt) > 1 {
			return Continue, newError(SyntaxError)
		}
		frame, err := e.mem.PopGosub()
		if err != nil {
			return Continue, err
		}
		return Return(frame.Line, frame.Stmt), nil
	case KwIf:
		return e.ifThen(stmt, pos)
	case KwFor:
		return e.forLoop(stmt[1:], pos)
	case KwNext:
		return e.next(stmt[1:])
	case KwData, KwRem:
		return Continue, nil
	case KwRead:
		return Continue, e.read(stmt[1:])
	case KwRestore:
		return Continue, e.restore(stmt[1:])
	case KwEnd:
		return Halt(), nil
	case KwStop:
		return ControlFlow{Kind: FlowHalt, Stop: true}, nil
	case KwDim:
		return Continue, e.dim(stmt[1:])
	case KwOn:
		return e.on(stmt[1:], pos)
	case KwClear:
		e.mem.Clear()
		return Continue, nil
	}
	return Continue, newErrorf(SyntaxError, "%s is not a statement", first.Text)
}

// lvalue is an assignment target: a scalar or one array cell.
type lvalue struct {
	name    string
	indices []int
	array   bool
}

// target parses a variable reference at the start of tokens and returns the
// tokens that follow it.
func (e *Executor) target(tokens []Token) (lvalue, []Token, error) {
	if len(tokens) == 0 || tokens[0].Kind != TokenIdent {
		return lvalue{}, nil, newErrorf(SyntaxError, "variable expected")
	}
	lv := lvalue{name: tokens[0].Text}
	if len(tokens) > 1 && tokens[1].Kind == TokenLParen {
		closeIdx, ok := matchParen(tokens, 1)
		if !ok {
			return lvalue{}, nil, newError(ExpectedRightParen)
		}
		indices, err := e.eval.subscripts(tokens[2:closeIdx], e.mem)
		if err != nil {
			return lvalue{}, nil, err
		}
		lv.indices, lv.array = indices, true
		return lv, tokens[closeIdx+1:], nil
	}
	return lv, tokens[1:], nil
}

func (e *Executor) store(lv lvalue, v Value) error {
	if lv.array {
		return e.mem.SetElement(lv.name, lv.indices, v)
	}
	return e.mem.Set(lv.name, v)
}

func (e *Executor) assign(tokens []Token) error {
	lv, rest, err := e.target(tokens)
	if err != nil {
		return err
	}
	if len(rest) == 0 || rest[0].Kind != TokenEqual {
		return newErrorf(SyntaxError, "= expected")
	}
	v, err := e.eval.Evaluate(rest[1:], e.mem)
	if err != nil {
		return err
	}
	return e.store(lv, v)
}

// lineTarget reads a literal line number and checks that the line exists.
func (e *Executor) lineTarget(tokens []Token) (int, error) {
	if len(tokens) != 1 || tokens[0].Kind != TokenNumber {
		return 0, newErrorf(SyntaxError, "line number expected")
	}
	n := tokens[0].Num
	if n < 0 || n > MaxLineNumber || n != math.Trunc(n) {
		return 0, newErrorf(SyntaxError, "bad line number %s", tokens[0].Source())
	}
	line := int(n)
	if !e.prog.Has(line) {
		return 0, newErrorf(UndefinedStatement, "line %d", line)
	}
	return line, nil
}

func (e *Executor) gosub(line int, pos Position) (ControlFlow, error) {
	if err := e.mem.PushGosub(GosubFrame{Line: pos.Line, Stmt: pos.Stmt}); err != nil {
		return Continue, err
	}
	return Call(line), nil
}

// ifThen evaluates IF cond THEN clause. A false condition skips the rest of
// the line.
func (e *Executor) ifThen(stmt []Token, pos Position) (ControlFlow, error) {
	var cond, clause []Token
	if i := indexKeyword(stmt, KwThen); i > 0 {
		cond, clause = stmt[1:i], stmt[i+1:]
	} else if i := indexKeyword(stmt, KwGoto); i > 0 {
		cond, clause = stmt[1:i], stmt[i:]
	} else {
		return Continue, newErrorf(SyntaxError, "THEN expected")
	}
	if len(clause) == 0 {
		return Continue, newErrorf(SyntaxError, "empty THEN clause")
	}

	v, err := e.eval.Evaluate(cond, e.mem)
	if err != nil {
		return Continue, err
	}
	if v.IsString() {
		return Continue, newError(TypeMismatch)
	}
	if !v.Truthy() {
		return JumpToStatement(pos.Line, e.statementCount(pos.Line)), nil
	}

	if clause[0].Kind == TokenNumber {
		line, err := e.lineTarget(clause)
		if err != nil {
			return Continue, err
		}
		return Jump(line), nil
	}
	return e.Execute(clause, pos)
}

// dim handles DIM A(3), B$(2,5), ...
func (e *Executor) dim(tokens []Token) error {
	if len(tokens) == 0 {
		return newError(SyntaxError)
	}
	for _, decl := range splitTopLevel(tokens, TokenComma) {
		if len(decl) < 3 || decl[0].Kind != TokenIdent || decl[1].Kind != TokenLParen {
			return newErrorf(SyntaxError, "array declaration expected")
		}
		closeIdx, ok := matchParen(decl, 1)
		if !ok {
			return newError(ExpectedRightParen)
		}
		if closeIdx != len(decl)-1 {
			return newErrorf(SyntaxError, "unexpected %s", decl[closeIdx+1].Source())
		}
		dims, err := e.eval.subscripts(decl[2:closeIdx], e.mem)
		if err != nil {
			return err
		}
		if err := e.mem.Dim(decl[0].Text, dims); err != nil {
			return err
		}
	}
	return nil
}

// on handles ON expr GOTO|GOSUB l1, l2, ... An index of zero or past the list
// falls through.
func (e *Executor) on(tokens []Token, pos Position) (ControlFlow, error) {
	kwIdx, isGosub := indexKeyword(tokens, KwGoto), false
	if kwIdx < 0 {
		kwIdx, isGosub = indexKeyword(tokens, KwGosub), true
	}
	if kwIdx <= 0 || kwIdx == len(tokens)-1 {
		return Continue, newErrorf(SyntaxError, "ON needs GOTO or GOSUB")
	}
	n, err := e.eval.EvaluateNumber(tokens[:kwIdx], e.mem)
	if err != nil {
		return Continue, err
	}
	idx := int(math.Trunc(n))
	if n < 0 || idx > 255 {
		return Continue, newError(IllegalQuantity)
	}
	targets := splitTopLevel(tokens[kwIdx+1:], TokenComma)
	if idx == 0 || idx > len(targets) {
		return Continue, nil
	}
	line, err := e.lineTarget(targets[idx-1])
	if err != nil {
		return Continue, err
	}
	if isGosub {
		return e.gosub(line, pos)
	}
	return Jump(line), nil
}
