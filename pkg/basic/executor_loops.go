package basic

// forLoop handles FOR var = start TO end [STEP step].
func (e *Executor) forLoop(tokens []Token, pos Position) (ControlFlow, error) {
	toIdx := indexKeyword(tokens, KwTo)
	if toIdx < 0 {
		return Continue, newErrorf(SyntaxError, "TO expected")
	}
	head := tokens[:toIdx]
	if len(head) < 3 || head[0].Kind != TokenIdent || head[1].Kind != TokenEqual {
		return Continue, newErrorf(SyntaxError, "FOR variable expected")
	}
	name := head[0].Text
	if isStringName(name) {
		return Continue, newError(TypeMismatch)
	}

	tail := tokens[toIdx+1:]
	var stepTokens []Token
	if stepIdx := indexKeyword(tail, KwStep); stepIdx >= 0 {
		tail, stepTokens = tail[:stepIdx], tail[stepIdx+1:]
	}

	start, err := e.eval.EvaluateNumber(head[2:], e.mem)
	if err != nil {
		return Continue, err
	}
	end, err := e.eval.EvaluateNumber(tail, e.mem)
	if err != nil {
		return Continue, err
	}
	step := 1.0
	if stepTokens != nil {
		if step, err = e.eval.EvaluateNumber(stepTokens, e.mem); err != nil {
			return Continue, err
		}
	}
	if err := e.mem.Set(name, FloatValue(start)); err != nil {
		return Continue, err
	}

	frame := ForFrame{Var: name, End: end, Step: step, Resume: e.loopResume(pos)}
	if err := e.mem.PushFor(frame); err != nil {
		return Continue, err
	}
	return Continue, nil
}

// loopResume picks where NEXT continues: the statement after the FOR when
// the line goes on, otherwise the next line in program order.
func (e *Executor) loopResume(pos Position) Position {
	if pos.Stmt+1 < e.statementCount(pos.Line) || pos.Line == DirectLine {
		return Position{Line: pos.Line, Stmt: pos.Stmt + 1}
	}
	if next, ok := e.prog.NextLine(pos.Line); ok {
		return Position{Line: next}
	}
	return Position{Line: pos.Line, Stmt: pos.Stmt + 1}
}

// next handles NEXT [var[, var...]].
func (e *Executor) next(tokens []Token) (ControlFlow, error) {
	var names []string
	if len(tokens) > 0 {
		for _, part := range splitTopLevel(tokens, TokenComma) {
			if len(part) != 1 || part[0].Kind != TokenIdent {
				return Continue, newErrorf(SyntaxError, "NEXT variable expected")
			}
			names = append(names, part[0].Text)
		}
	} else {
		names = []string{""}
	}

	for _, name := range names {
		frame, ok := e.mem.TopFor()
		if !ok || (name != "" && name != frame.Var) {
			return Continue, newErrorf(NextWithoutFor, "%s", name)
		}
		if err := e.mem.Set(frame.Var, FloatValue(e.mem.Get(frame.Var).Number()+frame.Step)); err != nil {
			return Continue, err
		}
		if frame.Continues(e.mem.Get(frame.Var).Number()) {
			if frame.Resume.Stmt == 0 {
				return Jump(frame.Resume.Line), nil
			}
			return JumpToStatement(frame.Resume.Line, frame.Resume.Stmt), nil
		}
		e.mem.PopFor()
	}
	return Continue, nil
}
