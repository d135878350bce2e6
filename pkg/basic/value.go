package basic

import (
	"math"
	"strconv"
	"strings"
)

// Epsilon is the tolerance used for float equality and truthiness.
const Epsilon = 1e-9

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KindFloat ValueKind = iota
	KindInteger
	KindString
)

// Value is a BASIC runtime value: a 16-bit integer, a double or a string.
type Value struct {
	Kind ValueKind
	Int  int16
	Num  float64
	Str  string
}

// FloatValue wraps a double.
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Num: f} }

// IntegerValue wraps a 16-bit integer.
func IntegerValue(i int16) Value { return Value{Kind: KindInteger, Int: i} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// BoolValue returns 1.0 for true and 0.0 for false.
func BoolValue(b bool) Value {
	if b {
		return FloatValue(1)
	}
	return FloatValue(0)
}

func (v Value) IsString() bool  { return v.Kind == KindString }
func (v Value) IsNumeric() bool { return v.Kind != KindString }

// Number returns the numeric content as a double. Strings yield 0.
func (v Value) Number() float64 {
	switch v.Kind {
	case KindInteger:
		return float64(v.Int)
	case KindFloat:
		return v.Num
	}
	return 0
}

// Truthy reports whether the float value lies further than Epsilon from zero.
func (v Value) Truthy() bool {
	return math.Abs(v.Number()) > Epsilon
}

// PrintString renders the value the way PRINT shows it. Integral floats keep
// a trailing ".0".
func (v Value) PrintString() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInteger:
		return strconv.Itoa(int(v.Int))
	}
	s := formatNumber(v.Num)
	if isIntegral(v.Num) {
		s += ".0"
	}
	return s
}

// Text renders the value the way STR$ and READ-into-string show it.
func (v Value) Text() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInteger:
		return strconv.Itoa(int(v.Int))
	}
	return formatNumber(v.Num)
}

// String implements fmt.Stringer; strings are quoted.
func (v Value) String() string {
	if v.Kind == KindString {
		return strconv.Quote(v.Str)
	}
	return v.Text()
}

func isIntegral(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f)
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// parseNumber accepts the numeric forms understood by VAL, READ and INPUT.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// isStringName reports whether a variable name carries the string suffix.
func isStringName(name string) bool {
	return strings.HasSuffix(name, "$")
}

func isIntegerName(name string) bool {
	return strings.HasSuffix(name, "%")
}

// zeroFor returns the initial value of a variable or array cell.
func zeroFor(name string) Value {
	switch {
	case isStringName(name):
		return StringValue("")
	case isIntegerName(name):
		return IntegerValue(0)
	}
	return FloatValue(0)
}

// coerce converts v into the value stored under name, enforcing the suffix
// type rules.
func coerce(name string, v Value) (Value, error) {
	if isStringName(name) {
		if !v.IsString() {
			return Value{}, newErrorf(TypeMismatch, "%s needs a string", name)
		}
		if len(v.Str) > MaxStringLength {
			return Value{}, newError(StringTooLong)
		}
		return v, nil
	}
	if v.IsString() {
		return Value{}, newErrorf(TypeMismatch, "%s needs a number", name)
	}
	if isIntegerName(name) {
		n := math.Trunc(v.Number())
		if math.IsNaN(n) || n < math.MinInt16 || n > math.MaxInt16 {
			return Value{}, newError(Overflow)
		}
		return IntegerValue(int16(n)), nil
	}
	return FloatValue(v.Number()), nil
}

// MaxStringLength is the longest string a variable may hold.
const MaxStringLength = 255
