// Package basic implements a classic line-numbered BASIC interpreter: the
// value and memory model, an operator-precedence expression evaluator, a
// statement executor and the program driver with STOP/CONT support.
package basic

import (
	"errors"
	"fmt"
	"strings"
)

// Error definitions for conditions outside the classic BASIC error table.
var (
	ErrStoreUnavailable = errors.New("program library not available")
	ErrProgramNotFound  = errors.New("program not found")
	ErrInvalidName      = errors.New("invalid program name")
	ErrSessionClosed    = errors.New("session closed")
)

// ErrorKind identifies one BASIC error condition.
type ErrorKind int

const (
	NextWithoutFor ErrorKind = iota + 1
	SyntaxError
	ReturnWithoutGosub
	OutOfData
	IllegalQuantity
	Overflow
	OutOfMemory
	UndefinedStatement
	BadSubscript
	RedimensionedArray
	DivisionByZero
	IllegalDirect
	TypeMismatch
	StringTooLong
	CantContinue
	UndefinedFunction

	// Structural errors produced while lexing or parsing. They all surface
	// to the user as SYNTAX ERROR.
	InvalidNumber
	InvalidString
	UnexpectedCharacter
	UnexpectedToken
	ExpectedExpression
	ExpectedRightParen
)

type errorInfo struct {
	code    string
	message string
}

var errorTable = map[ErrorKind]errorInfo{
	NextWithoutFor:     {"NF", "NEXT WITHOUT FOR"},
	SyntaxError:        {"SN", "SYNTAX ERROR"},
	ReturnWithoutGosub: {"RG", "RETURN WITHOUT GOSUB"},
	OutOfData:          {"OD", "OUT OF DATA"},
	IllegalQuantity:    {"FC", "ILLEGAL QUANTITY"},
	Overflow:           {"OV", "OVERFLOW"},
	OutOfMemory:        {"OM", "OUT OF MEMORY"},
	UndefinedStatement: {"US", "UNDEFINED STATEMENT"},
	BadSubscript:       {"BS", "BAD SUBSCRIPT"},
	RedimensionedArray: {"DD", "REDIMENSIONED ARRAY"},
	DivisionByZero:     {"/0", "DIVISION BY ZERO"},
	IllegalDirect:      {"ID", "ILLEGAL DIRECT"},
	TypeMismatch:       {"TM", "TYPE MISMATCH"},
	StringTooLong:      {"LS", "STRING TOO LONG"},
	CantContinue:       {"CN", "CAN'T CONTINUE"},
	UndefinedFunction:  {"UF", "UNDEFINED FUNCTION"},
}

// classic maps structural kinds onto the error the user sees.
func (k ErrorKind) classic() ErrorKind {
	if k >= InvalidNumber {
		return SyntaxError
	}
	return k
}

// Code returns the two-letter legacy code, e.g. "TM".
func (k ErrorKind) Code() string {
	return errorTable[k.classic()].code
}

// Message returns the fixed legacy message, e.g. "TYPE MISMATCH".
func (k ErrorKind) Message() string {
	return errorTable[k.classic()].message
}

// CanContinue reports whether a program halted by this error may be resumed with CONT.
func (k ErrorKind) CanContinue() bool {
	switch k.classic() {
	case SyntaxError, OutOfMemory, UndefinedStatement:
		return false
	}
	return true
}

func (k ErrorKind) String() string {
	switch k {
	case InvalidNumber:
		return "invalid number"
	case InvalidString:
		return "invalid string"
	case UnexpectedCharacter:
		return "unexpected character"
	case UnexpectedToken:
		return "unexpected token"
	case ExpectedExpression:
		return "expected expression"
	case ExpectedRightParen:
		return "expected right parenthesis"
	}
	return k.Message()
}

// BASICError is a runtime or structural error raised while executing BASIC code.
type BASICError struct {
	Kind       ErrorKind
	LineNumber int    // Program line, 0 when unknown
	DirectMode bool   // Raised by an immediate-mode statement
	Detail     string // Optional context, mostly for structural errors
}

// Error renders the classic form "?TYPE MISMATCH ERROR IN 40".
func (be *BASICError) Error() string {
	msg := "?" + strings.TrimSuffix(be.Kind.Message(), " ERROR") + " ERROR"
	if !be.DirectMode && be.LineNumber > 0 {
		msg += fmt.Sprintf(" IN %d", be.LineNumber)
	}
	return msg
}

// NewBASICError creates an error of the given kind without position information.
func NewBASICError(kind ErrorKind, detail string) *BASICError {
	return &BASICError{Kind: kind, Detail: detail}
}

func newError(kind ErrorKind) *BASICError {
	return &BASICError{Kind: kind}
}

func newErrorf(kind ErrorKind, format string, args ...interface{}) *BASICError {
	return &BASICError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// AsBASICError unwraps err into a *BASICError if it is one.
func AsBASICError(err error) (*BASICError, bool) {
	var be *BASICError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// IsKind reports whether err is a BASIC error of the given kind. Structural
// kinds also match SyntaxError.
func IsKind(err error, kind ErrorKind) bool {
	be, ok := AsBASICError(err)
	if !ok {
		return false
	}
	return be.Kind == kind || (kind == SyntaxError && be.Kind.classic() == SyntaxError)
}

// atPosition returns a copy of err that carries the position it was raised at.
func atPosition(err error, line int) error {
	be, ok := AsBASICError(err)
	if !ok {
		return err
	}
	located := *be
	if line == DirectLine {
		located.DirectMode = true
		located.LineNumber = 0
	} else {
		located.LineNumber = line
	}
	return &located
}
