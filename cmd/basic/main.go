// Command basic is the interactive RetroBASIC terminal.
//
//	basic [-config settings.cfg] [-run] [program.bas]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/user"

	"github.com/antibyte/retrobasic/pkg/basic"
	"github.com/antibyte/retrobasic/pkg/configuration"
	"github.com/antibyte/retrobasic/pkg/logger"
	"github.com/antibyte/retrobasic/pkg/store"

	"golang.org/x/term"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "settings.cfg", "path to the configuration file")
	runFile := flag.Bool("run", false, "run the program file and exit")
	flag.Parse()

	// Ohne Konfigurationsdatei wird keine angelegt, der REPL nutzt Defaults
	if _, err := os.Stat(*configPath); err == nil {
		if err := configuration.Initialize(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing configuration: %v\n", err)
			return 1
		}
	} else {
		configuration.InitializeDefaults()
	}
	if err := logger.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		return 1
	}
	defer logger.Close()

	var library basic.ProgramStore
	if db, err := store.Open(configuration.GetString("Database", "path", "retrobasic.db")); err != nil {
		logger.Warn(logger.AreaREPL, "Program library unavailable: %v", err)
	} else {
		defer db.Close()
		library = db
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
	styles := newStyles(interactive)
	r := newREPL(os.Stdout, styles, library, localOwner())

	if flag.NArg() > 0 {
		source, err := os.ReadFile(flag.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, styles.err.Render(err.Error()))
			return 1
		}
		if err := r.runtime.LoadSource(string(source)); err != nil {
			fmt.Fprintln(os.Stderr, styles.err.Render(basic.FormatError(err)))
			return 1
		}
		logger.Info(logger.AreaREPL, "Loaded %s (%d lines)", flag.Arg(0), r.runtime.Program().Len())
		if *runFile {
			err := r.runtime.Exec(context.Background(), "RUN")
			r.finishLine()
			if err != nil {
				return 1
			}
			return 0
		}
	}

	if !interactive {
		if err := r.runScript(context.Background(), os.Stdin); err != nil {
			fmt.Fprintln(os.Stderr, styles.err.Render(err.Error()))
			return 1
		}
		return 0
	}
	return r.interactive(terminalWidth())
}

// localOwner ist der Namensraum der Programmbibliothek im Terminal
func localOwner() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "local"
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}
