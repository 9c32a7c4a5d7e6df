package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ffcd00/tlox/internal/config"
	"github.com/ffcd00/tlox/internal/vm"
	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
)

const prompt = "> "

// repl reads lines and interprets each on the same VM, so globals carry over
// between lines. Errors are reported and the session continues.
func repl(machine *vm.VM, opts *config.Options, stdin io.Reader, stdout io.Writer) int {
	if f, ok := stdin.(*os.File); ok && isTerminal(f) {
		return lineEditorREPL(machine, opts, stdout)
	}
	return plainREPL(machine, stdin, stdout)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// plainREPL serves piped input.
func plainREPL(machine *vm.VM, stdin io.Reader, stdout io.Writer) int {
	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(stdout)
			break
		}
		machine.Interpret(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return config.ExitIOError
	}
	return 0
}

// lineEditorREPL serves a terminal, with line editing and history.
func lineEditorREPL(machine *vm.VM, opts *config.Options, stdout io.Writer) int {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := historyPath(opts.HistoryFile)
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			fmt.Fprintln(stdout)
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		ln.AppendHistory(line)
		machine.Interpret(line)
	}
	return 0
}

// historyPath resolves a relative history file against the home directory.
func historyPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, name)
}
