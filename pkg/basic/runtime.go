package basic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/antibyte/retrobasic/pkg/configuration"
	"github.com/antibyte/retrobasic/pkg/logger"

	"github.com/goforj/godump"
)

// State is the driver state.
type State int

const (
	StateReady State = iota
	StateRunning
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	}
	return "ready"
}

// ProgramStore persists named program texts for SAVE, LOAD and CATALOG.
type ProgramStore interface {
	Save(ctx context.Context, owner, name, source string) error
	Load(ctx context.Context, owner, name string) (string, error)
	List(ctx context.Context, owner string) ([]string, error)
	Delete(ctx context.Context, owner, name string) error
}

// Options configures a Runtime. Zero values fall back to the [Interpreter]
// configuration section.
type Options struct {
	Output        io.Writer
	ErrorOutput   io.Writer // error lines, defaults to Output
	Input         InputFunc
	Store         ProgramStore
	Owner         string // library namespace used by SAVE/LOAD
	Seed          int64  // RND seed, 0 picks one from the clock
	MaxForDepth   int
	MaxGosubDepth int
	Trace         bool
}

// Runtime is the program driver. It owns the program table and all
// interpreter state; nothing is shared between runtimes.
type Runtime struct {
	mem  *Memory
	prog *Program
	eval *Evaluator
	exec *Executor

	store  ProgramStore
	owner  string
	trace  bool
	errOut io.Writer

	state       State
	resume      Position
	canContinue bool
	leftDirect  bool
	interrupt   atomic.Bool
}

// NewRuntime creates a runtime in the ready state with an empty program.
func NewRuntime(opts Options) *Runtime {
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	if opts.MaxForDepth <= 0 {
		opts.MaxForDepth = configuration.GetInt("Interpreter", "max_for_depth", DefaultMaxForDepth)
	}
	if opts.MaxGosubDepth <= 0 {
		opts.MaxGosubDepth = configuration.GetInt("Interpreter", "max_gosub_depth", DefaultMaxGosubDepth)
	}
	if opts.Seed == 0 {
		opts.Seed = int64(configuration.GetInt("Interpreter", "rnd_seed", 0))
		if opts.Seed == 0 {
			opts.Seed = time.Now().UnixNano()
		}
	}
	if !opts.Trace {
		opts.Trace = configuration.GetBool("Interpreter", "trace", false)
	}

	mem := NewMemory()
	mem.SetLimits(opts.MaxForDepth, opts.MaxGosubDepth)
	prog := NewProgram()
	eval := NewEvaluator(rand.New(rand.NewSource(opts.Seed)))

	return &Runtime{
		mem:    mem,
		prog:   prog,
		eval:   eval,
		exec:   NewExecutor(mem, eval, prog, opts.Output, opts.Input),
		store:  opts.Store,
		owner:  opts.Owner,
		trace:  opts.Trace,
		errOut: opts.ErrorOutput,
	}
}

func (r *Runtime) Memory() *Memory   { return r.mem }
func (r *Runtime) Program() *Program { return r.prog }
func (r *Runtime) State() State      { return r.state }

// ResumePoint returns where CONT would continue and whether it may.
func (r *Runtime) ResumePoint() (Position, bool) {
	return r.resume, r.state == StateHalted && r.canContinue
}

// Break requests an interrupt. It is safe to call from another goroutine;
// the run loop notices it before the next statement.
func (r *Runtime) Break() {
	r.interrupt.Store(true)
}

// Exec handles one line of user input: a numbered line is stored (or deleted
// when its body is empty), a command such as RUN or LIST is dispatched, and
// anything else runs immediately. Errors are printed to the output in their
// classic form and also returned.
func (r *Runtime) Exec(ctx context.Context, text string) error {
	line, numbered, body, err := ParseLine(text)
	if err == nil {
		switch {
		case numbered:
			r.StoreLine(line, body)
		case len(body) == 0:
		case body[0].Kind == TokenKeyword && isCommand(body[0].Keyword):
			err = r.command(ctx, body)
		default:
			err = r.runDirect(ctx, body)
		}
	}
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if be, ok := AsBASICError(err); ok && be.LineNumber == 0 && !be.DirectMode {
		err = atPosition(err, DirectLine)
	}
	r.report(err)
	return err
}

// StoreLine enters a program line. Editing the program discards any CONT point.
func (r *Runtime) StoreLine(line int, body []Token) {
	r.prog.Store(line, body)
	r.rebuildData()
	r.invalidate()
}

// New clears the program and every variable.
func (r *Runtime) New() {
	r.prog.Clear()
	r.mem.Clear()
	r.mem.Data.Reset()
	r.invalidate()
}

// Clear drops variables, arrays and stacks but keeps the program.
func (r *Runtime) Clear() {
	r.mem.Clear()
	r.invalidate()
}

func (r *Runtime) invalidate() {
	r.state = StateReady
	r.canContinue = false
}

// Run starts the program from its first line with fresh variables.
func (r *Runtime) Run(ctx context.Context) error {
	return r.RunFrom(ctx, 0)
}

// RunFrom starts the program at line (0 for the first line) with fresh
// variables and a rewound DATA cursor.
func (r *Runtime) RunFrom(ctx context.Context, line int) error {
	r.mem.Clear()
	if err := r.rebuildData(); err != nil {
		r.invalidate()
		return err
	}
	start, ok := r.prog.First()
	if line > 0 {
		if !r.prog.Has(line) {
			r.invalidate()
			return newErrorf(UndefinedStatement, "line %d", line)
		}
		start, ok = line, true
	}
	if !ok {
		r.invalidate()
		return nil
	}
	logger.Info(logger.AreaInterpreter, "RUN from line %d (%d lines, %d data items)", start, r.prog.Len(), r.mem.Data.Len())
	return r.loop(ctx, Position{Line: start})
}

// Cont resumes a halted program at the statement after the halt point.
func (r *Runtime) Cont(ctx context.Context) error {
	pos, ok := r.ResumePoint()
	if !ok {
		return newError(CantContinue)
	}
	logger.Debug(logger.AreaInterpreter, "CONT at %s", pos)
	return r.loop(ctx, pos)
}

// rebuildData pre-scans every DATA statement into the pool, in program order.
func (r *Runtime) rebuildData() error {
	r.mem.Data.Reset()
	for _, n := range r.prog.Lines() {
		line, _ := r.prog.Line(n)
		for _, stmt := range line.Statements {
			if !stmt[0].Is(KwData) {
				continue
			}
			values, err := dataValues(stmt[1:])
			if err != nil {
				return atPosition(err, n)
			}
			r.mem.Data.Append(n, values)
		}
	}
	return nil
}

// runDirect executes an immediate-mode line. Statements that stay in
// immediate mode keep a pending CONT point intact.
func (r *Runtime) runDirect(ctx context.Context, body []Token) error {
	state, resume, canContinue := r.state, r.resume, r.canContinue
	r.exec.SetDirect(splitStatements(body))
	r.leftDirect = false
	err := r.loop(ctx, Position{Line: DirectLine})
	if err == nil && !r.leftDirect && r.state == StateReady {
		r.state, r.resume, r.canContinue = state, resume, canContinue
	}
	return err
}

func (r *Runtime) statements(line int) [][]Token {
	if line == DirectLine {
		return r.exec.direct
	}
	if l, ok := r.prog.Line(line); ok {
		return l.Statements
	}
	return nil
}

// loop executes statements from pos until the program ends, halts, breaks
// or fails.
func (r *Runtime) loop(ctx context.Context, pos Position) error {
	r.state = StateRunning
	r.canContinue = false
	r.interrupt.Store(false)

	for {
		stmts := r.statements(pos.Line)
		if pos.Stmt >= len(stmts) {
			if pos.Line == DirectLine {
				if r.state == StateRunning {
					r.state = StateReady
				}
				return nil
			}
			next, ok := r.prog.NextLine(pos.Line)
			if !ok {
				r.state = StateReady
				return nil
			}
			pos = Position{Line: next}
			continue
		}
		if pos.Line != DirectLine {
			r.leftDirect = true
		}

		if r.interrupt.Swap(false) || ctx.Err() != nil {
			r.breakAt(pos, Position{Line: pos.Line, Stmt: len(stmts)})
			return ctx.Err()
		}

		stmt := stmts[pos.Stmt]
		if r.trace {
			r.traceStatement(pos, stmt)
		}
		flow, err := r.exec.Execute(stmt, pos)
		if err != nil {
			located := atPosition(err, pos.Line)
			if IsKind(err, OutOfData) {
				r.report(located)
				pos.Stmt++
				continue
			}
			r.fail(located, pos)
			return located
		}

		switch flow.Kind {
		case FlowContinue:
			pos.Stmt++
		case FlowJump, FlowCall:
			if !r.prog.Has(flow.Line) {
				err := atPosition(newErrorf(UndefinedStatement, "line %d", flow.Line), pos.Line)
				r.fail(err, pos)
				return err
			}
			pos = Position{Line: flow.Line}
		case FlowJumpToStatement, FlowReturn:
			target := Position{Line: flow.Line, Stmt: flow.Stmt}
			if flow.Kind == FlowReturn {
				target.Stmt++
			}
			if target.Line != DirectLine && !r.prog.Has(target.Line) {
				err := atPosition(newErrorf(UndefinedStatement, "line %d", target.Line), pos.Line)
				r.fail(err, pos)
				return err
			}
			pos = target
		case FlowHalt:
			next := Position{Line: pos.Line, Stmt: pos.Stmt + 1}
			if flow.Retry {
				next = pos
			}
			if flow.Stop {
				r.breakAt(pos, next)
			} else {
				r.haltAt(next)
			}
			return nil
		}
	}
}

// haltAt stops the loop and remembers where CONT continues. Halts in
// immediate mode cannot be continued.
func (r *Runtime) haltAt(resume Position) {
	if resume.Line == DirectLine {
		r.invalidate()
		return
	}
	r.state = StateHalted
	r.resume = resume
	r.canContinue = true
}

func (r *Runtime) breakAt(at, resume Position) {
	r.exec.out.ensureLineStart()
	if at.Line == DirectLine {
		r.exec.out.write("BREAK\n")
	} else {
		r.exec.out.write(fmt.Sprintf("BREAK IN %d\n", at.Line))
	}
	logger.Debug(logger.AreaInterpreter, "break at %s, resume at %s", at, resume)
	r.haltAt(resume)
}

// fail stops the loop after an error. Continuable errors resume at the
// failing statement.
func (r *Runtime) fail(err error, pos Position) {
	logger.Debug(logger.AreaInterpreter, "error at %s: %v", pos, err)
	if be, ok := AsBASICError(err); ok && be.Kind.CanContinue() {
		r.haltAt(pos)
		return
	}
	r.invalidate()
}

// report prints an error in its classic form.
func (r *Runtime) report(err error) {
	r.exec.out.ensureLineStart()
	if r.errOut != nil {
		fmt.Fprintln(r.errOut, FormatError(err))
		return
	}
	r.exec.out.write(FormatError(err) + "\n")
}

// EndLine terminates a partial output line, so the host can print its own
// prompt at column zero.
func (r *Runtime) EndLine() {
	r.exec.out.ensureLineStart()
}

// FormatError renders err the way the interpreter prints it.
func FormatError(err error) string {
	if be, ok := AsBASICError(err); ok {
		return be.Error()
	}
	return "?" + strings.ToUpper(err.Error())
}

// ansiEscape matches the color codes godump puts into its dumps.
var ansiEscape = regexp.MustCompile("\x1b\\[[0-9;]*m")

type traceEntry struct {
	Line      int
	Statement int
	Source    string
}

func (r *Runtime) traceStatement(pos Position, stmt []Token) {
	entry := traceEntry{Line: pos.Line, Statement: pos.Stmt, Source: FormatTokens(stmt)}
	dump := ansiEscape.ReplaceAllString(godump.DumpStr(entry), "")
	logger.Debug(logger.AreaInterpreter, "trace %s: %s\n%s", pos, entry.Source, dump)
}
