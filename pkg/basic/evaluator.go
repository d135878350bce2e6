package basic

import (
	"math"
	"math/rand"
)

// Evaluator computes the value of expression token slices.
type Evaluator struct {
	rng *rand.Rand
}

// NewEvaluator creates an evaluator drawing RND values from rng.
func NewEvaluator(rng *rand.Rand) *Evaluator {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Evaluator{rng: rng}
}

// Evaluate computes a complete expression. Every token must be consumed.
func (e *Evaluator) Evaluate(tokens []Token, mem *Memory) (Value, error) {
	if len(tokens) == 0 {
		return Value{}, newError(ExpectedExpression)
	}
	p := &exprParser{e: e, mem: mem, tokens: tokens}
	v, err := p.parseOr()
	if err != nil {
		return Value{}, err
	}
	if p.pos < len(tokens) {
		if tokens[p.pos].Kind == TokenRParen {
			return Value{}, newError(ExpectedRightParen)
		}
		return Value{}, newErrorf(UnexpectedToken, "%s", tokens[p.pos].Source())
	}
	return v, nil
}

// EvaluateNumber evaluates an expression that must be numeric.
func (e *Evaluator) EvaluateNumber(tokens []Token, mem *Memory) (float64, error) {
	v, err := e.Evaluate(tokens, mem)
	if err != nil {
		return 0, err
	}
	if v.IsString() {
		return 0, newError(TypeMismatch)
	}
	return v.Number(), nil
}

// evaluateList evaluates comma separated expressions, e.g. call arguments
// or subscripts. Empty items are ExpectedExpression.
func (e *Evaluator) evaluateList(tokens []Token, mem *Memory) ([]Value, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	parts := splitTopLevel(tokens, TokenComma)
	values := make([]Value, 0, len(parts))
	for _, part := range parts {
		v, err := e.Evaluate(part, mem)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// subscripts evaluates an index list into integer subscripts.
func (e *Evaluator) subscripts(tokens []Token, mem *Memory) ([]int, error) {
	values, err := e.evaluateList(tokens, mem)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, newError(ExpectedExpression)
	}
	indices := make([]int, len(values))
	for i, v := range values {
		if indices[i], err = toSubscript(v); err != nil {
			return nil, err
		}
	}
	return indices, nil
}

// exprParser is a precedence-climbing cursor over one expression.
type exprParser struct {
	e      *Evaluator
	mem    *Memory
	tokens []Token
	pos    int
}

func (p *exprParser) peek() (Token, bool) {
	if p.pos >= len(p.tokens) {
		return Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *exprParser) parseOr() (Value, error) {
	left, err := p.parseAnd()
	if err != nil {
		return Value{}, err
	}
	for {
		t, ok := p.peek()
		if !ok || !t.Is(KwOr) {
			return left, nil
		}
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return Value{}, err
		}
		if left.IsString() || right.IsString() {
			return Value{}, newError(TypeMismatch)
		}
		left = BoolValue(left.Truthy() || right.Truthy())
	}
}

func (p *exprParser) parseAnd() (Value, error) {
	left, err := p.parseNot()
	if err != nil {
		return Value{}, err
	}
	for {
		t, ok := p.peek()
		if !ok || !t.Is(KwAnd) {
			return left, nil
		}
		p.pos++
		right, err := p.parseNot()
		if err != nil {
			return Value{}, err
		}
		if left.IsString() || right.IsString() {
			return Value{}, newError(TypeMismatch)
		}
		left = BoolValue(left.Truthy() && right.Truthy())
	}
}

// parseNot binds looser than comparisons, so NOT A = B negates the comparison.
func (p *exprParser) parseNot() (Value, error) {
	if t, ok := p.peek(); ok && t.Is(KwNot) {
		p.pos++
		v, err := p.parseNot()
		if err != nil {
			return Value{}, err
		}
		if v.IsString() {
			return Value{}, newError(TypeMismatch)
		}
		return BoolValue(!v.Truthy()), nil
	}
	return p.parseAdditive()
}

// parseAdditive handles + and - together with all six comparisons, which
// share one precedence level.
func (p *exprParser) parseAdditive() (Value, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return Value{}, err
	}
	for {
		t, ok := p.peek()
		if !ok {
			return left, nil
		}
		switch t.Kind {
		case TokenPlus, TokenMinus, TokenEqual, TokenNotEqual,
			TokenLess, TokenLessEqual, TokenGreater, TokenGreaterEqual:
		default:
			return left, nil
		}
		p.pos++
		right, err := p.parseMultiplicative()
		if err != nil {
			return Value{}, err
		}
		if left, err = binaryOp(t.Kind, left, right); err != nil {
			return Value{}, err
		}
	}
}

func (p *exprParser) parseMultiplicative() (Value, error) {
	left, err := p.parsePower()
	if err != nil {
		return Value{}, err
	}
	for {
		t, ok := p.peek()
		if !ok || (t.Kind != TokenMultiply && t.Kind != TokenDivide) {
			return left, nil
		}
		p.pos++
		right, err := p.parsePower()
		if err != nil {
			return Value{}, err
		}
		if left, err = binaryOp(t.Kind, left, right); err != nil {
			return Value{}, err
		}
	}
}

// parsePower is right-associative: 2^3^2 = 2^9.
func (p *exprParser) parsePower() (Value, error) {
	base, err := p.parseUnary()
	if err != nil {
		return Value{}, err
	}
	if t, ok := p.peek(); ok && t.Kind == TokenPower {
		p.pos++
		exp, err := p.parsePower()
		if err != nil {
			return Value{}, err
		}
		return binaryOp(TokenPower, base, exp)
	}
	return base, nil
}

func (p *exprParser) parseUnary() (Value, error) {
	t, ok := p.peek()
	if ok && (t.Kind == TokenMinus || t.Kind == TokenPlus) {
		p.pos++
		v, err := p.parseUnary()
		if err != nil {
			return Value{}, err
		}
		if v.IsString() {
			return Value{}, newError(TypeMismatch)
		}
		if t.Kind == TokenMinus {
			return FloatValue(-v.Number()), nil
		}
		return FloatValue(v.Number()), nil
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (Value, error) {
	t, ok := p.peek()
	if !ok {
		return Value{}, newError(ExpectedExpression)
	}
	switch t.Kind {
	case TokenNumber:
		p.pos++
		return FloatValue(t.Num), nil
	case TokenString:
		p.pos++
		return StringValue(t.Text), nil
	case TokenLParen:
		inner, err := p.group()
		if err != nil {
			return Value{}, err
		}
		// A fresh cursor scoped to the parentheses.
		return p.e.Evaluate(inner, p.mem)
	case TokenIdent:
		p.pos++
		if next, ok := p.peek(); ok && next.Kind == TokenLParen {
			inner, err := p.group()
			if err != nil {
				return Value{}, err
			}
			indices, err := p.e.subscripts(inner, p.mem)
			if err != nil {
				return Value{}, err
			}
			return p.mem.GetElement(t.Text, indices)
		}
		return p.mem.Get(t.Text), nil
	case TokenFunction:
		p.pos++
		return p.call(t.Builtin)
	case TokenRParen:
		return Value{}, newError(ExpectedExpression)
	}
	return Value{}, newErrorf(UnexpectedToken, "%s", t.Source())
}

// group consumes a parenthesised token range and returns its interior.
func (p *exprParser) group() ([]Token, error) {
	closeIdx, ok := matchParen(p.tokens, p.pos)
	if !ok {
		return nil, newError(ExpectedRightParen)
	}
	inner := p.tokens[p.pos+1 : closeIdx]
	p.pos = closeIdx + 1
	return inner, nil
}

// call parses the argument list of a built-in and applies it.
func (p *exprParser) call(fn Builtin) (Value, error) {
	var args []Value
	if next, ok := p.peek(); ok && next.Kind == TokenLParen {
		inner, err := p.group()
		if err != nil {
			return Value{}, err
		}
		if args, err = p.e.evaluateList(inner, p.mem); err != nil {
			return Value{}, err
		}
	} else if fn != FnRnd {
		return Value{}, newErrorf(SyntaxError, "missing argument list")
	}
	return p.e.applyBuiltin(fn, args)
}

func binaryOp(op TokenKind, left, right Value) (Value, error) {
	if left.IsString() || right.IsString() {
		return stringOp(op, left, right)
	}
	a, b := left.Number(), right.Number()
	var r float64
	switch op {
	case TokenPlus:
		r = a + b
	case TokenMinus:
		r = a - b
	case TokenMultiply:
		r = a * b
	case TokenDivide:
		if b == 0 {
			return Value{}, newError(DivisionByZero)
		}
		r = a / b
	case TokenPower:
		r = math.Pow(a, b)
	case TokenEqual:
		return BoolValue(math.Abs(a-b) <= Epsilon), nil
	case TokenNotEqual:
		return BoolValue(math.Abs(a-b) > Epsilon), nil
	case TokenLess:
		return BoolValue(a < b), nil
	case TokenLessEqual:
		return BoolValue(a <= b), nil
	case TokenGreater:
		return BoolValue(a > b), nil
	case TokenGreaterEqual:
		return BoolValue(a >= b), nil
	default:
		return Value{}, newError(SyntaxError)
	}
	if math.IsInf(r, 0) {
		return Value{}, newError(Overflow)
	}
	return FloatValue(r), nil
}

func stringOp(op TokenKind, left, right Value) (Value, error) {
	if !left.IsString() || !right.IsString() {
		return Value{}, newError(TypeMismatch)
	}
	a, b := left.Str, right.Str
	switch op {
	case TokenPlus:
		if len(a)+len(b) > MaxStringLength {
			return Value{}, newError(StringTooLong)
		}
		return StringValue(a + b), nil
	case TokenEqual:
		return BoolValue(a == b), nil
	case TokenNotEqual:
		return BoolValue(a != b), nil
	case TokenLess:
		return BoolValue(a < b), nil
	case TokenLessEqual:
		return BoolValue(a <= b), nil
	case TokenGreater:
		return BoolValue(a > b), nil
	case TokenGreaterEqual:
		return BoolValue(a >= b), nil
	}
	return Value{}, newError(TypeMismatch)
}
