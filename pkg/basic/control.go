package basic

import "fmt"

// DirectLine is the pseudo line number of statements typed without a line number.
const DirectLine = -1

// Position addresses one statement: a program line and the index of the
// statement within it.
type Position struct {
	Line int
	Stmt int
}

func (p Position) String() string {
	if p.Line == DirectLine {
		return fmt.Sprintf("direct:%d", p.Stmt)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Stmt)
}

// FlowKind enumerates the control-flow outcomes of a statement.
type FlowKind int

const (
	FlowContinue FlowKind = iota
	FlowJump
	FlowJumpToStatement
	FlowCall
	FlowReturn
	FlowHalt
)

// ControlFlow tells the driver where execution goes after a statement.
// Errors never travel through it.
type ControlFlow struct {
	Kind  FlowKind
	Line  int
	Stmt  int
	Stop  bool // Halt raised by STOP (prints BREAK) rather than END
	Retry bool // CONT re-executes the halting statement
}

// Continue falls through to the next statement.
var Continue = ControlFlow{Kind: FlowContinue}

func Jump(line int) ControlFlow { return ControlFlow{Kind: FlowJump, Line: line} }

// JumpToStatement resumes at a statement inside a line. A statement index
// past the end of the line means the start of the following line.
func JumpToStatement(line, stmt int) ControlFlow {
	return ControlFlow{Kind: FlowJumpToStatement, Line: line, Stmt: stmt}
}

func Call(line int) ControlFlow { return ControlFlow{Kind: FlowCall, Line: line} }

// Return resumes after the GOSUB statement at (line, stmt).
func Return(line, stmt int) ControlFlow {
	return ControlFlow{Kind: FlowReturn, Line: line, Stmt: stmt}
}

func Halt() ControlFlow { return ControlFlow{Kind: FlowHalt} }

// Interrupted halts with BREAK; CONT runs the interrupted statement again.
func Interrupted() ControlFlow { return ControlFlow{Kind: FlowHalt, Stop: true, Retry: true} }

func (c ControlFlow) String() string {
	switch c.Kind {
	case FlowContinue:
		return "Continue"
	case FlowJump:
		return fmt.Sprintf("Jump(%d)", c.Line)
	case FlowJumpToStatement:
		return fmt.Sprintf("JumpToStatement(%d,%d)", c.Line, c.Stmt)
	case FlowCall:
		return fmt.Sprintf("Call(%d)", c.Line)
	case FlowReturn:
		return fmt.Sprintf("Return(%d,%d)", c.Line, c.Stmt)
	case FlowHalt:
		if c.Retry {
			return "Halt(BREAK)"
		}
		if c.Stop {
			return "Halt(STOP)"
		}
		return "Halt"
	}
	return "?"
}
