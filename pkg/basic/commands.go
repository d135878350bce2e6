package basic

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/antibyte/retrobasic/pkg/logger"
)

var programNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,31}$`)

// ValidProgramName reports whether name may be used with SAVE and LOAD.
func ValidProgramName(name string) bool {
	return programNamePattern.MatchString(name)
}

func isCommand(kw Keyword) bool {
	switch kw {
	case KwRun, KwList, KwNew, KwCont, KwClear, KwSave, KwLoad, KwCatalog, KwScratch:
		return true
	}
	return false
}

// command runs an immediate-mode command. These never appear inside a
// program; the executor rejects them there.
func (r *Runtime) command(ctx context.Context, body []Token) error {
	args := body[1:]
	switch body[0].Keyword {
	case KwRun:
		if len(args) == 0 {
			return r.Run(ctx)
		}
		if len(args) == 1 && args[0].Kind == TokenString {
			if err := r.load(ctx, args); err != nil {
				return err
			}
			return r.Run(ctx)
		}
		line, err := commandLine(args)
		if err != nil {
			return err
		}
		return r.RunFrom(ctx, line)
	case KwCont:
		if len(args) != 0 {
			return newError(SyntaxError)
		}
		return r.Cont(ctx)
	case KwList:
		from, to, err := listRange(args)
		if err != nil {
			return err
		}
		for _, l := range r.prog.Range(from, to) {
			r.exec.out.write(ListLine(l) + "\n")
		}
		return nil
	case KwNew:
		if len(args) != 0 {
			return newError(SyntaxError)
		}
		r.New()
		return nil
	case KwClear:
		if len(args) != 0 {
			return newError(SyntaxError)
		}
		r.Clear()
		return nil
	case KwSave:
		return r.save(ctx, args)
	case KwLoad:
		return r.load(ctx, args)
	case KwCatalog:
		if len(args) != 0 {
			return newError(SyntaxError)
		}
		return r.catalog(ctx)
	case KwScratch:
		return r.scratch(ctx, args)
	}
	return newError(SyntaxError)
}

// commandLine reads a single literal line number argument.
func commandLine(args []Token) (int, error) {
	if len(args) != 1 || args[0].Kind != TokenNumber {
		return 0, newErrorf(SyntaxError, "line number expected")
	}
	n := args[0].Num
	if n < 0 || n > MaxLineNumber || n != math.Trunc(n) {
		return 0, newErrorf(SyntaxError, "bad line number %s", args[0].Source())
	}
	return int(n), nil
}

// listRange parses the LIST forms "n", "n-", "-m" and "n-m".
func listRange(args []Token) (int, int, error) {
	if len(args) == 0 {
		return 0, 0, nil
	}
	dash := -1
	for i, t := range args {
		if t.Kind == TokenMinus {
			dash = i
			break
		}
	}
	if dash < 0 {
		n, err := commandLine(args)
		return n, n, err
	}
	from, to := 0, 0
	var err error
	if dash > 0 {
		if from, err = commandLine(args[:dash]); err != nil {
			return 0, 0, err
		}
	}
	if dash < len(args)-1 {
		if to, err = commandLine(args[dash+1:]); err != nil {
			return 0, 0, err
		}
	}
	return from, to, nil
}

func programName(args []Token) (string, error) {
	if len(args) != 1 || args[0].Kind != TokenString {
		return "", newErrorf(SyntaxError, "program name expected")
	}
	name := strings.TrimSpace(args[0].Text)
	if !ValidProgramName(name) {
		return "", ErrInvalidName
	}
	return name, nil
}

func (r *Runtime) save(ctx context.Context, args []Token) error {
	name, err := programName(args)
	if err != nil {
		return err
	}
	if r.store == nil {
		return ErrStoreUnavailable
	}
	if err := r.store.Save(ctx, r.owner, name, r.Source()); err != nil {
		logger.Warn(logger.AreaInterpreter, "SAVE %q for %s failed: %v", name, r.owner, err)
		return err
	}
	logger.Info(logger.AreaInterpreter, "saved program %q for %s (%d lines)", name, r.owner, r.prog.Len())
	return nil
}

func (r *Runtime) load(ctx context.Context, args []Token) error {
	name, err := programName(args)
	if err != nil {
		return err
	}
	if r.store == nil {
		return ErrStoreUnavailable
	}
	source, err := r.store.Load(ctx, r.owner, name)
	if err != nil {
		logger.Debug(logger.AreaInterpreter, "LOAD %q for %s failed: %v", name, r.owner, err)
		return err
	}
	return r.LoadSource(source)
}

func (r *Runtime) catalog(ctx context.Context) error {
	if r.store == nil {
		return ErrStoreUnavailable
	}
	names, err := r.store.List(ctx, r.owner)
	if err != nil {
		return err
	}
	for _, name := range names {
		r.exec.out.write(name + "\n")
	}
	return nil
}

// scratch removes a saved program from the library. The program in memory
// stays untouched.
func (r *Runtime) scratch(ctx context.Context, args []Token) error {
	name, err := programName(args)
	if err != nil {
		return err
	}
	if r.store == nil {
		return ErrStoreUnavailable
	}
	if err := r.store.Delete(ctx, r.owner, name); err != nil {
		logger.Debug(logger.AreaInterpreter, "SCRATCH %q for %s failed: %v", name, r.owner, err)
		return err
	}
	logger.Info(logger.AreaInterpreter, "scratched program %q for %s", name, r.owner)
	return nil
}
