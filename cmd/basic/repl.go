package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/antibyte/retrobasic/pkg/basic"
	"github.com/antibyte/retrobasic/pkg/logger"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"
)

const (
	historyFile = ".retrobasic_history"
	prompt      = "] "
)

var (
	accentColor = lipgloss.Color("#F59E0B")
	errorColor  = lipgloss.Color("#EF4444")
	mutedColor  = lipgloss.Color("#6B7280")
)

type styles struct {
	banner lipgloss.Style
	muted  lipgloss.Style
	err    lipgloss.Style
}

// newStyles liefert ungestylte Ausgabe, wenn kein Terminal angeschlossen ist
func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{banner: plain, muted: plain, err: plain}
	}
	return styles{
		banner: lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 2),
		muted: lipgloss.NewStyle().
			Foreground(mutedColor),
		err: lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true),
	}
}

// styledWriter renders every written line with a style.
type styledWriter struct {
	w     io.Writer
	style lipgloss.Style
}

func (s styledWriter) Write(p []byte) (int, error) {
	text := strings.TrimRight(string(p), "\n")
	if _, err := fmt.Fprintln(s.w, s.style.Render(text)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// lineTracker remembers the unterminated tail of the output so INPUT can
// hand it to liner as prompt; liner redraws the whole line.
type lineTracker struct {
	w io.Writer

	mu   sync.Mutex
	tail string
}

func (t *lineTracker) Write(p []byte) (int, error) {
	t.mu.Lock()
	s := string(p)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		t.tail = s[i+1:]
	} else {
		t.tail += s
	}
	t.mu.Unlock()
	return t.w.Write(p)
}

func (t *lineTracker) takeTail() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	tail := t.tail
	t.tail = ""
	return tail
}

type repl struct {
	out     *lineTracker
	styles  styles
	runtime *basic.Runtime

	readLine func(prompt string) (string, error)
}

func newREPL(w io.Writer, st styles, library basic.ProgramStore, owner string) *repl {
	r := &repl{out: &lineTracker{w: w}, styles: st}
	r.runtime = basic.NewRuntime(basic.Options{
		Output:      r.out,
		ErrorOutput: styledWriter{w: w, style: st.err},
		Input:       r.input,
		Store:       library,
		Owner:       owner,
	})
	return r
}

// input serves INPUT statements from the current line reader.
func (r *repl) input() (string, bool) {
	if r.readLine == nil {
		return "", false
	}
	line, err := r.readLine(r.out.takeTail())
	if err != nil {
		return "", false
	}
	return line, true
}

// isQuit erkennt die REPL-eigenen Befehle zum Beenden
func isQuit(line string) bool {
	switch strings.ToUpper(strings.TrimSpace(line)) {
	case "BYE", "QUIT", "EXIT", "SYSTEM":
		return true
	}
	return false
}

// runScript executes lines from a non-interactive reader. INPUT statements
// read from the same stream.
func (r *repl) runScript(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	r.readLine = func(prompt string) (string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		return scanner.Text(), nil
	}
	defer func() { r.readLine = nil }()

	for {
		line, err := r.readLine("")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if isQuit(line) {
			return nil
		}
		r.runtime.Exec(ctx, line)
	}
}

// interactive runs the line-edited prompt until BYE or end of input.
func (r *repl) interactive(width int) int {
	banner := r.styles.banner.Render("RETROBASIC")
	if lipgloss.Width(banner) <= width {
		fmt.Fprintln(r.out.w, banner)
	}
	fmt.Fprintln(r.out.w, r.styles.muted.Render("Type BYE to leave, Ctrl-C interrupts a running program."))

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
		if f, err := os.Open(histPath); err == nil {
			ln.ReadHistory(f)
			f.Close()
		}
	}
	defer func() {
		if histPath == "" {
			return
		}
		if f, err := os.Create(histPath); err == nil {
			ln.WriteHistory(f)
			f.Close()
		}
	}()

	// Während ein Programm läuft ist liner nicht im Raw-Modus, Ctrl-C kommt als Signal
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	defer signal.Stop(sigc)
	go func() {
		for range sigc {
			r.runtime.Break()
		}
	}()

	r.readLine = ln.Prompt
	fmt.Fprintln(r.out.w, "READY.")
	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Error(logger.AreaREPL, "Reading input failed: %v", err)
			}
			fmt.Fprintln(r.out.w)
			return 0
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		ln.AppendHistory(line)
		if isQuit(line) {
			return 0
		}

		numbered := len(line) > 0 && line[0] >= '0' && line[0] <= '9'
		r.runtime.Exec(context.Background(), line)
		if !numbered {
			r.finishLine()
			fmt.Fprintln(r.out.w, "READY.")
		}
	}
}

// finishLine ends a trailing partial output line before the next prompt.
func (r *repl) finishLine() {
	r.runtime.EndLine()
	r.out.takeTail()
}
