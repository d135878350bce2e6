package basic

import (
	"math"
	"strings"
)

type arity struct{ min, max int }

var builtinArity = map[Builtin]arity{
	FnSgn:   {1, 1},
	FnInt:   {1, 1},
	FnAbs:   {1, 1},
	FnSqr:   {1, 1},
	FnRnd:   {0, 1},
	FnLeft:  {2, 2},
	FnRight: {2, 2},
	FnMid:   {2, 3},
	FnStr:   {1, 1},
	FnChr:   {1, 1},
	FnAsc:   {1, 1},
	FnVal:   {1, 1},
	FnLen:   {1, 1},
	FnSin:   {1, 1},
	FnCos:   {1, 1},
	FnTan:   {1, 1},
	FnAtn:   {1, 1},
	FnLog:   {1, 1},
	FnExp:   {1, 1},
	FnTab:   {1, 1},
	FnSpc:   {1, 1},
}

// argument type expectations per position: 'n' numeric, 's' string
var builtinSignature = map[Builtin]string{
	FnSgn:   "n",
	FnInt:   "n",
	FnAbs:   "n",
	FnSqr:   "n",
	FnRnd:   "n",
	FnLeft:  "sn",
	FnRight: "sn",
	FnMid:   "snn",
	FnStr:   "n",
	FnChr:   "n",
	FnAsc:   "s",
	FnVal:   "s",
	FnLen:   "s",
	FnSin:   "n",
	FnCos:   "n",
	FnTan:   "n",
	FnAtn:   "n",
	FnLog:   "n",
	FnExp:   "n",
	FnTab:   "n",
	FnSpc:   "n",
}

func checkArgs(fn Builtin, args []Value) error {
	a, ok := builtinArity[fn]
	if !ok {
		return newError(UndefinedFunction)
	}
	if len(args) < a.min || len(args) > a.max {
		return newErrorf(SyntaxError, "wrong number of arguments")
	}
	sig := builtinSignature[fn]
	for i, v := range args {
		if (sig[i] == 's') != v.IsString() {
			return newError(TypeMismatch)
		}
	}
	return nil
}

// applyBuiltin evaluates a built-in function on already evaluated arguments.
func (e *Evaluator) applyBuiltin(fn Builtin, args []Value) (Value, error) {
	if err := checkArgs(fn, args); err != nil {
		return Value{}, err
	}
	num := func(i int) float64 { return args[i].Number() }

	switch fn {
	case FnSgn:
		switch x := num(0); {
		case x > 0:
			return FloatValue(1), nil
		case x < 0:
			return FloatValue(-1), nil
		}
		return FloatValue(0), nil
	case FnInt:
		return FloatValue(math.Floor(num(0))), nil
	case FnAbs:
		return FloatValue(math.Abs(num(0))), nil
	case FnSqr:
		if num(0) < 0 {
			return Value{}, newError(IllegalQuantity)
		}
		return FloatValue(math.Sqrt(num(0))), nil
	case FnRnd:
		return FloatValue(e.rng.Float64()), nil
	case FnSin:
		return FloatValue(math.Sin(num(0))), nil
	case FnCos:
		return FloatValue(math.Cos(num(0))), nil
	case FnTan:
		return FloatValue(math.Tan(num(0))), nil
	case FnAtn:
		return FloatValue(math.Atan(num(0))), nil
	case FnLog:
		if num(0) <= 0 {
			return Value{}, newError(IllegalQuantity)
		}
		return FloatValue(math.Log(num(0))), nil
	case FnExp:
		r := math.Exp(num(0))
		if math.IsInf(r, 0) {
			return Value{}, newError(Overflow)
		}
		return FloatValue(r), nil

	case FnLeft, FnRight:
		s := args[0].Str
		n, err := count(num(1))
		if err != nil {
			return Value{}, err
		}
		if n > len(s) {
			n = len(s)
		}
		if fn == FnLeft {
			return StringValue(s[:n]), nil
		}
		return StringValue(s[len(s)-n:]), nil
	case FnMid:
		return mid(args)
	case FnStr:
		return StringValue(args[0].Text()), nil
	case FnChr:
		n := math.Trunc(num(0))
		if n < 0 || n > 255 {
			return Value{}, newError(IllegalQuantity)
		}
		return StringValue(string([]byte{byte(n)})), nil
	case FnAsc:
		if args[0].Str == "" {
			return Value{}, newError(IllegalQuantity)
		}
		return FloatValue(float64(args[0].Str[0])), nil
	case FnVal:
		f, ok := parseNumber(args[0].Str)
		if !ok {
			return Value{}, newErrorf(TypeMismatch, "VAL(%q)", args[0].Str)
		}
		return FloatValue(f), nil
	case FnLen:
		return FloatValue(float64(len(args[0].Str))), nil
	case FnSpc:
		n, err := count(num(0))
		if err != nil {
			return Value{}, err
		}
		if n > MaxStringLength {
			return Value{}, newError(IllegalQuantity)
		}
		return StringValue(strings.Repeat(" ", n)), nil
	case FnTab:
		return Value{}, newErrorf(SyntaxError, "TAB outside PRINT")
	}
	return Value{}, newError(UndefinedFunction)
}

// count truncates a length argument; negative lengths are ILLEGAL QUANTITY.
func count(f float64) (int, error) {
	f = math.Trunc(f)
	if math.IsNaN(f) || f < 0 {
		return 0, newError(IllegalQuantity)
	}
	if f > math.MaxInt32 {
		return math.MaxInt32, nil
	}
	return int(f), nil
}

// mid implements MID$(s, start[, len]) with a 1-based start. A start of 0 or
// past the end yields "" and the end is clamped to the string.
func mid(args []Value) (Value, error) {
	s := args[0].Str
	start, err := count(args[1].Number())
	if err != nil {
		return Value{}, err
	}
	length := len(s)
	if len(args) == 3 {
		if length, err = count(args[2].Number()); err != nil {
			return Value{}, err
		}
	}
	if start == 0 || start > len(s) {
		return StringValue(""), nil
	}
	from := start - 1
	to := from + length
	if to > len(s) || to < from {
		to = len(s)
	}
	return StringValue(s[from:to]), nil
}
