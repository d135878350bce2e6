package basic

import (
	"strconv"
	"strings"
)

// TokenKind classifies a lexical token.
type TokenKind int

const (
	TokenNumber TokenKind = iota
	TokenString
	TokenIdent
	TokenKeyword
	TokenFunction
	TokenRemark // raw text following REM
	TokenPlus
	TokenMinus
	TokenMultiply
	TokenDivide
	TokenPower
	TokenEqual
	TokenNotEqual
	TokenLess
	TokenLessEqual
	TokenGreater
	TokenGreaterEqual
	TokenLParen
	TokenRParen
	TokenComma
	TokenSemicolon
	TokenColon
)

// Keyword is the closed set of statement and operator keywords.
type Keyword int

const (
	KwNone Keyword = iota
	KwLet
	KwPrint
	KwInput
	KwGoto
	KwGosub
	KwReturn
	KwIf
	KwThen
	KwFor
	KwTo
	KwStep
	KwNext
	KwData
	KwRead
	KwRestore
	KwEnd
	KwRem
	KwDim
	KwStop
	KwOn
	KwClear
	KwAnd
	KwOr
	KwNot
	KwRun
	KwList
	KwNew
	KwCont
	KwSave
	KwLoad
	KwCatalog
	KwScratch
)

var keywordNames = map[string]Keyword{
	"LET":     KwLet,
	"PRINT":   KwPrint,
	"INPUT":   KwInput,
	"GOTO":    KwGoto,
	"GOSUB":   KwGosub,
	"RETURN":  KwReturn,
	"IF":      KwIf,
	"THEN":    KwThen,
	"FOR":     KwFor,
	"TO":      KwTo,
	"STEP":    KwStep,
	"NEXT":    KwNext,
	"DATA":    KwData,
	"READ":    KwRead,
	"RESTORE": KwRestore,
	"END":     KwEnd,
	"REM":     KwRem,
	"DIM":     KwDim,
	"STOP":    KwStop,
	"ON":      KwOn,
	"CLEAR":   KwClear,
	"AND":     KwAnd,
	"OR":      KwOr,
	"NOT":     KwNot,
	"RUN":     KwRun,
	"LIST":    KwList,
	"NEW":     KwNew,
	"CONT":    KwCont,
	"SAVE":    KwSave,
	"LOAD":    KwLoad,
	"CATALOG": KwCatalog,
	"SCRATCH": KwScratch,
}

// Builtin identifies a built-in function. The lexer resolves names once so
// the evaluator dispatches on the enum.
type Builtin int

const (
	FnNone Builtin = iota
	FnSgn
	FnInt
	FnAbs
	FnSqr
	FnRnd
	FnLeft
	FnRight
	FnMid
	FnStr
	FnChr
	FnAsc
	FnVal
	FnLen
	FnSin
	FnCos
	FnTan
	FnAtn
	FnLog
	FnExp
	FnTab
	FnSpc
)

var builtinNames = map[string]Builtin{
	"SGN":    FnSgn,
	"INT":    FnInt,
	"ABS":    FnAbs,
	"SQR":    FnSqr,
	"RND":    FnRnd,
	"LEFT$":  FnLeft,
	"RIGHT$": FnRight,
	"MID$":   FnMid,
	"STR$":   FnStr,
	"CHR$":   FnChr,
	"ASC":    FnAsc,
	"VAL":    FnVal,
	"LEN":    FnLen,
	"SIN":    FnSin,
	"COS":    FnCos,
	"TAN":    FnTan,
	"ATN":    FnAtn,
	"LOG":    FnLog,
	"EXP":    FnExp,
	"TAB":    FnTab,
	"SPC":    FnSpc,
}

// Token is one lexical element of a program line.
type Token struct {
	Kind    TokenKind
	Text    string
	Num     float64
	Keyword Keyword
	Builtin Builtin
}

// Is reports whether t is the given keyword.
func (t Token) Is(kw Keyword) bool {
	return t.Kind == TokenKeyword && t.Keyword == kw
}

// Source returns the token as it appears in a listing.
func (t Token) Source() string {
	switch t.Kind {
	case TokenString:
		return `"` + strings.ReplaceAll(t.Text, `"`, `""`) + `"`
	case TokenNumber:
		if t.Text != "" {
			return t.Text
		}
		return strconv.FormatFloat(t.Num, 'g', -1, 64)
	}
	return t.Text
}

func (t Token) String() string {
	return t.Source()
}

// FormatTokens joins tokens into listing text.
func FormatTokens(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.Source()
	}
	return strings.Join(parts, " ")
}

// splitStatements splits a line body at top-level colons.
func splitStatements(tokens []Token) [][]Token {
	var stmts [][]Token
	start := 0
	for i, t := range tokens {
		if t.Kind == TokenColon {
			if i > start {
				stmts = append(stmts, tokens[start:i])
			}
			start = i + 1
		}
	}
	if start < len(tokens) {
		stmts = append(stmts, tokens[start:])
	}
	return stmts
}

// splitTopLevel splits tokens at separators that are not nested in parentheses.
func splitTopLevel(tokens []Token, sep TokenKind) [][]Token {
	var parts [][]Token
	depth, start := 0, 0
	for i, t := range tokens {
		switch t.Kind {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, tokens[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, tokens[start:])
}

// matchParen returns the index of the parenthesis closing the one at open.
func matchParen(tokens []Token, open int) (int, bool) {
	depth := 0
	for i := open; i < len(tokens); i++ {
		switch tokens[i].Kind {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// indexKeyword finds the first top-level occurrence of kw.
func indexKeyword(tokens []Token, kw Keyword) int {
	depth := 0
	for i, t := range tokens {
		switch {
		case t.Kind == TokenLParen:
			depth++
		case t.Kind == TokenRParen:
			depth--
		case depth == 0 && t.Is(kw):
			return i
		}
	}
	return -1
}
