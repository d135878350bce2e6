package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func newTestREPL() (*repl, *bytes.Buffer) {
	var out bytes.Buffer
	return newREPL(&out, newStyles(false), nil, "tester"), &out
}

func TestRunScript(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{
			name:   "program and run",
			script: "10 PRINT \"HELLO\"\n20 PRINT 1+1\nRUN\n",
			want:   "HELLO\n2.0\n",
		},
		{
			name:   "input from the same stream",
			script: "10 INPUT A\n20 PRINT A*3\nRUN\n7\n",
			want:   "? 21.0\n",
		},
		{
			name:   "error goes to the error writer",
			script: "PRINT 1/0\n",
			want:   "?DIVISION BY ZERO ERROR\n",
		},
		{
			name:   "bye stops reading",
			script: "PRINT 1\nBYE\nPRINT 2\n",
			want:   "1.0\n",
		},
		{
			name:   "input at end of stream breaks",
			script: "10 INPUT A\n20 PRINT \"NEVER\"\nRUN\n",
			want:   "? \nBREAK IN 10\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, out := newTestREPL()
			if err := r.runScript(context.Background(), strings.NewReader(tt.script)); err != nil {
				t.Fatalf("runScript failed: %v", err)
			}
			if got := out.String(); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLineTracker(t *testing.T) {
	var out bytes.Buffer
	lt := &lineTracker{w: &out}

	lt.Write([]byte("FIRST\nNAME"))
	lt.Write([]byte("? "))
	if got := lt.takeTail(); got != "NAME? " {
		t.Errorf("tail = %q, want %q", got, "NAME? ")
	}
	if got := lt.takeTail(); got != "" {
		t.Errorf("tail after take = %q", got)
	}
	if out.String() != "FIRST\nNAME? " {
		t.Errorf("passthrough = %q", out.String())
	}
}

func TestStyledWriter(t *testing.T) {
	var out bytes.Buffer
	w := styledWriter{w: &out, style: newStyles(false).err}
	if _, err := w.Write([]byte("?SYNTAX ERROR\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if out.String() != "?SYNTAX ERROR\n" {
		t.Errorf("plain style output = %q", out.String())
	}
}

func TestIsQuit(t *testing.T) {
	for _, line := range []string{"BYE", "quit", " exit ", "System"} {
		if !isQuit(line) {
			t.Errorf("isQuit(%q) = false", line)
		}
	}
	for _, line := range []string{"", "RUN", "10 BYE", "PRINT \"BYE\""} {
		if isQuit(line) {
			t.Errorf("isQuit(%q) = true", line)
		}
	}
}
