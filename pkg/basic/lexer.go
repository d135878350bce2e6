package basic

import (
	"strconv"
	"strings"
)

// MaxLineNumber is the largest line number a program may use.
const MaxLineNumber = 65535

// Lexer turns the text of one BASIC line into tokens.
type Lexer struct {
	input  string
	pos    int
	char   byte
	tokens []Token
}

// NewLexer creates a lexer over a single line of input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// Tokenize is a convenience wrapper around NewLexer(input).Tokens().
func Tokenize(input string) ([]Token, error) {
	return NewLexer(input).Tokens()
}

// ParseLine splits an input line into its optional line number and body.
func ParseLine(text string) (line int, numbered bool, body []Token, err error) {
	text = strings.TrimSpace(text)
	end := 0
	for end < len(text) && isDigit(text[end]) {
		end++
	}
	if end > 0 {
		n, convErr := strconv.Atoi(text[:end])
		if convErr != nil || n > MaxLineNumber {
			return 0, true, nil, newErrorf(SyntaxError, "line number %s out of range", text[:end])
		}
		line, numbered = n, true
		text = text[end:]
	}
	body, err = Tokenize(text)
	return line, numbered, body, err
}

func (l *Lexer) readChar() {
	if l.pos >= len(l.input) {
		l.char = 0
	} else {
		l.char = l.input[l.pos]
	}
	l.pos++
}

func (l *Lexer) peekChar() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) skipWhitespace() {
	for l.char == ' ' || l.char == '\t' || l.char == '\r' || l.char == '\n' {
		l.readChar()
	}
}

func (l *Lexer) emit(kind TokenKind, text string) {
	l.tokens = append(l.tokens, Token{Kind: kind, Text: text})
}

// Tokens lexes the whole input.
func (l *Lexer) Tokens() ([]Token, error) {
	for {
		l.skipWhitespace()
		if l.char == 0 {
			return l.tokens, nil
		}
		if err := l.next(); err != nil {
			return nil, err
		}
	}
}

func (l *Lexer) next() error {
	c := l.char
	switch {
	case isDigit(c) || (c == '.' && isDigit(l.peekChar())):
		return l.readNumber()
	case isLetter(c):
		l.readWord()
		return nil
	case c == '"':
		s, err := l.readString()
		if err != nil {
			return err
		}
		l.emit(TokenString, s)
		return nil
	}

	l.readChar()
	switch c {
	case '+':
		l.emit(TokenPlus, "+")
	case '-':
		l.emit(TokenMinus, "-")
	case '*':
		l.emit(TokenMultiply, "*")
	case '/':
		l.emit(TokenDivide, "/")
	case '^':
		l.emit(TokenPower, "^")
	case '=':
		l.emit(TokenEqual, "=")
	case '<':
		switch l.char {
		case '=':
			l.readChar()
			l.emit(TokenLessEqual, "<=")
		case '>':
			l.readChar()
			l.emit(TokenNotEqual, "<>")
		default:
			l.emit(TokenLess, "<")
		}
	case '>':
		if l.char == '=' {
			l.readChar()
			l.emit(TokenGreaterEqual, ">=")
		} else {
			l.emit(TokenGreater, ">")
		}
	case '(':
		l.emit(TokenLParen, "(")
	case ')':
		l.emit(TokenRParen, ")")
	case ',':
		l.emit(TokenComma, ",")
	case ';':
		l.emit(TokenSemicolon, ";")
	case ':':
		l.emit(TokenColon, ":")
	case '?':
		l.tokens = append(l.tokens, Token{Kind: TokenKeyword, Text: "PRINT", Keyword: KwPrint})
	default:
		return newErrorf(UnexpectedCharacter, "%q", c)
	}
	return nil
}

func (l *Lexer) readNumber() error {
	start := l.pos - 1
	dots := 0
	for isDigit(l.char) || l.char == '.' {
		if l.char == '.' {
			dots++
		}
		l.readChar()
	}
	// Exponent only when digits follow, so "1 END" style input stays intact.
	if l.char == 'E' || l.char == 'e' {
		next := l.peekChar()
		if isDigit(next) || ((next == '+' || next == '-') && l.pos+1 < len(l.input) && isDigit(l.input[l.pos+1])) {
			l.readChar()
			if l.char == '+' || l.char == '-' {
				l.readChar()
			}
			for isDigit(l.char) {
				l.readChar()
			}
		}
	}
	text := l.input[start : l.pos-1]
	if dots > 1 {
		return newErrorf(InvalidNumber, "%s", text)
	}
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return newErrorf(InvalidNumber, "%s", text)
	}
	l.tokens = append(l.tokens, Token{Kind: TokenNumber, Text: text, Num: n})
	return nil
}

// readString reads a quoted literal; a doubled quote stands for one quote.
func (l *Lexer) readString() (string, error) {
	var sb strings.Builder
	l.readChar() // opening quote
	for {
		switch l.char {
		case 0:
			return "", newErrorf(InvalidString, "unterminated string")
		case '"':
			if l.peekChar() == '"' {
				sb.WriteByte('"')
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar()
			return sb.String(), nil
		default:
			sb.WriteByte(l.char)
			l.readChar()
		}
	}
}

func (l *Lexer) readWord() {
	start := l.pos - 1
	for isLetter(l.char) || isDigit(l.char) {
		l.readChar()
	}
	if l.char == '$' || l.char == '%' {
		l.readChar()
	}
	word := strings.ToUpper(l.input[start : l.pos-1])

	if kw, ok := keywordNames[word]; ok {
		l.tokens = append(l.tokens, Token{Kind: TokenKeyword, Text: word, Keyword: kw})
		switch kw {
		case KwRem:
			l.readRemark()
		case KwData:
			l.readData()
		}
		return
	}
	if fn, ok := builtinNames[word]; ok {
		l.tokens = append(l.tokens, Token{Kind: TokenFunction, Text: word, Builtin: fn})
		return
	}
	l.emit(TokenIdent, word)
}

func (l *Lexer) readRemark() {
	if l.char == ' ' {
		l.readChar()
	}
	if l.char == 0 {
		return
	}
	l.emit(TokenRemark, l.input[l.pos-1:])
	l.pos = len(l.input)
	l.char = 0
}

// readData reads DATA items verbatim up to the end of the statement.
// Unquoted items that are not numbers become string literals.
func (l *Lexer) readData() {
	for {
		l.skipWhitespace()
		if l.char == '"' {
			s, err := l.readString()
			if err != nil {
				s = l.input[l.pos-1:]
				l.pos = len(l.input)
				l.char = 0
			}
			l.emit(TokenString, s)
			l.skipWhitespace()
		} else {
			start := l.pos - 1
			for l.char != 0 && l.char != ',' && l.char != ':' {
				l.readChar()
			}
			end := l.pos - 1
			if l.char == 0 {
				end = len(l.input)
			}
			item := strings.TrimSpace(l.input[start:end])
			if n, ok := parseNumber(item); ok {
				l.tokens = append(l.tokens, Token{Kind: TokenNumber, Text: item, Num: n})
			} else {
				l.emit(TokenString, item)
			}
		}
		if l.char != ',' {
			return
		}
		l.readChar()
		l.emit(TokenComma, ",")
	}
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') }
