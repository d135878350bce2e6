package basic

import (
	"testing"
)

// TestTokenize tests the lexer on single line bodies
func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kinds []TokenKind
		texts []string
	}{
		{
			name:  "assignment",
			input: "LET A = 1.5",
			kinds: []TokenKind{TokenKeyword, TokenIdent, TokenEqual, TokenNumber},
			texts: []string{"LET", "A", "=", "1.5"},
		},
		{
			name:  "lower case is folded",
			input: "print a$",
			kinds: []TokenKind{TokenKeyword, TokenIdent},
			texts: []string{"PRINT", "A$"},
		},
		{
			name:  "question mark is PRINT",
			input: "? 1",
			kinds: []TokenKind{TokenKeyword, TokenNumber},
			texts: []string{"PRINT", "1"},
		},
		{
			name:  "doubled quote",
			input: `PRINT "A""B"`,
			kinds: []TokenKind{TokenKeyword, TokenString},
			texts: []string{"PRINT", `A"B`},
		},
		{
			name:  "two character operators",
			input: "A <> B <= C >= D",
			kinds: []TokenKind{TokenIdent, TokenNotEqual, TokenIdent, TokenLessEqual, TokenIdent, TokenGreaterEqual, TokenIdent},
			texts: []string{"A", "<>", "B", "<=", "C", ">=", "D"},
		},
		{
			name:  "function call",
			input: "LEFT$(S$, 2)",
			kinds: []TokenKind{TokenFunction, TokenLParen, TokenIdent, TokenComma, TokenNumber, TokenRParen},
			texts: []string{"LEFT$", "(", "S$", ",", "2", ")"},
		},
		{
			name:  "remark keeps the rest of the line",
			input: "REM hello: world",
			kinds: []TokenKind{TokenKeyword, TokenRemark},
			texts: []string{"REM", "hello: world"},
		},
		{
			name:  "data items",
			input: `DATA 1, "A,B", HELLO WORLD : PRINT`,
			kinds: []TokenKind{TokenKeyword, TokenNumber, TokenComma, TokenString, TokenComma, TokenString, TokenColon, TokenKeyword},
			texts: []string{"DATA", "1", ",", "A,B", ",", "HELLO WORLD", ":", "PRINT"},
		},
		{
			name:  "exponent",
			input: "X = 1E3",
			kinds: []TokenKind{TokenIdent, TokenEqual, TokenNumber},
			texts: []string{"X", "=", "1E3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.input)
			if err != nil {
				t.Fatalf("Tokenize(%q) failed: %v", tt.input, err)
			}
			if len(tokens) != len(tt.kinds) {
				t.Fatalf("Expected %d tokens, got %d: %v", len(tt.kinds), len(tokens), tokens)
			}
			for i, tok := range tokens {
				if tok.Kind != tt.kinds[i] {
					t.Errorf("Token %d: expected kind %d, got %d", i, tt.kinds[i], tok.Kind)
				}
				if tok.Text != tt.texts[i] {
					t.Errorf("Token %d: expected text %q, got %q", i, tt.texts[i], tok.Text)
				}
			}
		})
	}
}

// TestTokenizeErrors tests lexical errors
func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  ErrorKind
	}{
		{"two decimal points", "A = 1.2.3", InvalidNumber},
		{"unterminated string", `PRINT "abc`, InvalidString},
		{"unknown character", "A = @", UnexpectedCharacter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.input)
			if !IsKind(err, tt.kind) {
				t.Fatalf("Expected %v, got %v", tt.kind, err)
			}
			if !IsKind(err, SyntaxError) {
				t.Errorf("Structural error %v should surface as a syntax error", err)
			}
		})
	}
}

// TestParseLine tests line number handling
func TestParseLine(t *testing.T) {
	line, numbered, body, err := ParseLine("  120 PRINT X")
	if err != nil {
		t.Fatalf("ParseLine failed: %v", err)
	}
	if !numbered || line != 120 {
		t.Errorf("Expected numbered line 120, got %d (numbered=%v)", line, numbered)
	}
	if len(body) != 2 || !body[0].Is(KwPrint) {
		t.Errorf("Unexpected body %v", body)
	}

	_, numbered, body, err = ParseLine("PRINT 1")
	if err != nil || numbered || len(body) != 2 {
		t.Errorf("Direct line parsed wrong: numbered=%v body=%v err=%v", numbered, body, err)
	}

	line, numbered, body, err = ParseLine("30")
	if err != nil || !numbered || line != 30 || len(body) != 0 {
		t.Errorf("Bare line number parsed wrong: %d %v %v %v", line, numbered, body, err)
	}

	if _, _, _, err := ParseLine("70000 PRINT"); !IsKind(err, SyntaxError) {
		t.Errorf("Expected syntax error for line 70000, got %v", err)
	}
}
