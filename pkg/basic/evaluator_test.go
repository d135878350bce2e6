package basic

import (
	"math"
	"testing"
)

func evalString(t *testing.T, expr string, mem *Memory) (Value, error) {
	t.Helper()
	tokens, err := Tokenize(expr)
	if err != nil {
		return Value{}, err
	}
	return NewEvaluator(nil).Evaluate(tokens, mem)
}

// TestEvaluate tests the expression evaluation engine
func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		expr     string
		expected Value
	}{
		{"precedence", "2 + 3 * 4", FloatValue(14)},
		{"parentheses", "(2 + 3) * 4", FloatValue(20)},
		{"power is right associative", "2 ^ 3 ^ 2", FloatValue(512)},
		{"division", "10 / 4", FloatValue(2.5)},
		{"left associative subtraction", "10 - 4 - 3", FloatValue(3)},
		{"unary minus", "-5 + 2", FloatValue(-3)},
		{"double negation", "- -5", FloatValue(5)},
		{"comparison true", "1 < 2", FloatValue(1)},
		{"comparison false", "3 <= 2", FloatValue(0)},
		{"comparison shares the additive level", "1 + 2 = 3", FloatValue(1)},
		{"epsilon equality", "0.1 + 0.2 = 0.3", FloatValue(1)},
		{"not", "NOT 0", FloatValue(1)},
		{"not negates a comparison", "NOT 1 = 2", FloatValue(1)},
		{"and", "1 AND 0", FloatValue(0)},
		{"or", "0 OR 2", FloatValue(1)},
		{"and binds tighter than or", "1 OR 0 AND 0", FloatValue(1)},
		{"string literal", `"hello"`, StringValue("hello")},
		{"concatenation", `"AB" + "CD"`, StringValue("ABCD")},
		{"string comparison", `"A" < "B"`, FloatValue(1)},
		{"string equality", `"A" = "A"`, FloatValue(1)},
		{"nested groups", "((1 + 1) * (2 + 2))", FloatValue(8)},
		{"unset variable is zero", "Q + 1", FloatValue(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalString(t, tt.expr, NewMemory())
			if err != nil {
				t.Fatalf("Evaluate(%q) failed: %v", tt.expr, err)
			}
			if got.Kind != tt.expected.Kind {
				t.Fatalf("Expected kind %d, got %d", tt.expected.Kind, got.Kind)
			}
			if got.IsString() {
				if got.Str != tt.expected.Str {
					t.Errorf("Expected %q, got %q", tt.expected.Str, got.Str)
				}
				return
			}
			if math.Abs(got.Number()-tt.expected.Number()) > Epsilon {
				t.Errorf("Expected %v, got %v", tt.expected.Number(), got.Number())
			}
		})
	}
}

// TestEvaluateErrors tests expression failures
func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
		kind ErrorKind
	}{
		{"division by zero", "1 / 0", DivisionByZero},
		{"square root of negative", "SQR(-1)", IllegalQuantity},
		{"string plus number", `"A" + 1`, TypeMismatch},
		{"number minus string", `1 - "A"`, TypeMismatch},
		{"string subtraction", `"A" - "B"`, TypeMismatch},
		{"missing right paren", "(1 + 2", ExpectedRightParen},
		{"stray right paren", "1 + 2)", ExpectedRightParen},
		{"dangling operator", "1 +", ExpectedExpression},
		{"two operands", "1 2", UnexpectedToken},
		{"overflow", "10 ^ 400", Overflow},
		{"not of a string", `NOT "A"`, TypeMismatch},
		{"wrong argument count", "LEFT$(\"A\")", SyntaxError},
		{"wrong argument type", "LEN(1)", TypeMismatch},
		{"tab outside print", "TAB(3)", SyntaxError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evalString(t, tt.expr, NewMemory())
			if !IsKind(err, tt.kind) {
				t.Fatalf("Evaluate(%q): expected %v, got %v", tt.expr, tt.kind, err)
			}
		})
	}
}

// TestEvaluateEmpty tests that an empty token slice is rejected
func TestEvaluateEmpty(t *testing.T) {
	_, err := NewEvaluator(nil).Evaluate(nil, NewMemory())
	if !IsKind(err, ExpectedExpression) {
		t.Fatalf("Expected ExpectedExpression, got %v", err)
	}
}

// TestBuiltins tests the built-in functions
func TestBuiltins(t *testing.T) {
	tests := []struct {
		name     string
		expr     string
		expected Value
	}{
		{"sgn negative", "SGN(-4)", FloatValue(-1)},
		{"sgn zero", "SGN(0)", FloatValue(0)},
		{"int floors", "INT(-2.5)", FloatValue(-3)},
		{"int positive", "INT(2.7)", FloatValue(2)},
		{"abs", "ABS(-7)", FloatValue(7)},
		{"sqr", "SQR(16)", FloatValue(4)},
		{"left", `LEFT$("HELLO", 2)`, StringValue("HE")},
		{"left clamps", `LEFT$("HI", 10)`, StringValue("HI")},
		{"right", `RIGHT$("HELLO", 3)`, StringValue("LLO")},
		{"mid with length", `MID$("HELLO", 2, 3)`, StringValue("ELL")},
		{"mid to end", `MID$("HELLO", 4)`, StringValue("LO")},
		{"mid past end", `MID$("HELLO", 9, 2)`, StringValue("")},
		{"str drops the fraction marker", "STR$(5)", StringValue("5")},
		{"str of fraction", "STR$(2.5)", StringValue("2.5")},
		{"chr", "CHR$(65)", StringValue("A")},
		{"asc", `ASC("A")`, FloatValue(65)},
		{"val", `VAL("12.5")`, FloatValue(12.5)},
		{"len", `LEN("HELLO")`, FloatValue(5)},
		{"spc", "SPC(3)", StringValue("   ")},
		{"cos", "COS(0)", FloatValue(1)},
		{"exp", "EXP(0)", FloatValue(1)},
		{"log", "LOG(1)", FloatValue(0)},
		{"atn", "ATN(0)", FloatValue(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalString(t, tt.expr, NewMemory())
			if err != nil {
				t.Fatalf("Evaluate(%q) failed: %v", tt.expr, err)
			}
			if got.IsString() != tt.expected.IsString() {
				t.Fatalf("Expected %v, got %v", tt.expected, got)
			}
			if got.IsString() && got.Str != tt.expected.Str {
				t.Errorf("Expected %q, got %q", tt.expected.Str, got.Str)
			}
			if !got.IsString() && math.Abs(got.Number()-tt.expected.Number()) > Epsilon {
				t.Errorf("Expected %v, got %v", tt.expected.Number(), got.Number())
			}
		})
	}
}

// TestRnd tests that RND stays in [0, 1) and works without parentheses
func TestRnd(t *testing.T) {
	mem := NewMemory()
	for _, expr := range []string{"RND(1)", "RND"} {
		for i := 0; i < 50; i++ {
			v, err := evalString(t, expr, mem)
			if err != nil {
				t.Fatalf("Evaluate(%q) failed: %v", expr, err)
			}
			if v.Number() < 0 || v.Number() >= 1 {
				t.Fatalf("RND out of range: %v", v.Number())
			}
		}
	}
}

// TestEvaluateArrays tests array references inside expressions
func TestEvaluateArrays(t *testing.T) {
	mem := NewMemory()
	if err := mem.Dim("A", []int{3, 4}); err != nil {
		t.Fatalf("Dim failed: %v", err)
	}
	if err := mem.SetElement("A", []int{2, 3}, FloatValue(9)); err != nil {
		t.Fatalf("SetElement failed: %v", err)
	}
	if err := mem.Set("I", FloatValue(2)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	v, err := evalString(t, "A(I, I + 1) * 2", mem)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if v.Number() != 18 {
		t.Errorf("Expected 18, got %v", v.Number())
	}

	if _, err := evalString(t, "A(3, 0)", mem); !IsKind(err, BadSubscript) {
		t.Errorf("Expected bad subscript, got %v", err)
	}
	if _, err := evalString(t, `A("X", 0)`, mem); !IsKind(err, TypeMismatch) {
		t.Errorf("Expected type mismatch for string subscript, got %v", err)
	}
}
