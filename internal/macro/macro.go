// Package macro executes simulator command scripts.
//
// A macro is plain text with one command per line: the first field is
// the command name, the rest of the line is its argument. Blank lines
// are skipped and '#' starts a comment that runs to end of line. Script
// execution stops at the first failing command; the interactive console
// reports the failure and keeps the session alive.
package macro

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Dispatcher executes one command. Satisfied by the simulator runtime.
type Dispatcher interface {
	Invoke(name, raw string) error
}

// Run executes every command in r against d, in order. The source name
// appears in error positions, e.g. "setup.mac:7".
func Run(d Dispatcher, r io.Reader, source string) error {
	sc := bufio.NewScanner(r)
	ln := 0
	for sc.Scan() {
		ln++
		name, raw, ok := splitLine(sc.Text())
		if !ok {
			continue
		}
		if err := d.Invoke(name, raw); err != nil {
			return fmt.Errorf("%s:%d: %w", source, ln, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}
	return nil
}

// RunFile executes the macro at path.
func RunFile(d Dispatcher, path string) error {
	fh, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open macro: %w", err)
	}
	defer func() { _ = fh.Close() }()
	return Run(d, fh, path)
}

// Console is an interactive command session. Unlike Run, a failed
// command is printed and the session continues; "exit" or "quit" ends
// it, as does end of input.
type Console struct {
	Dispatch Dispatcher
	In       io.Reader
	Out      io.Writer
	Prompt   string
}

// Run drives the session until exit or end of input.
func (c *Console) Run() error {
	prompt := c.Prompt
	if prompt == "" {
		prompt = "sim> "
	}
	sc := bufio.NewScanner(c.In)
	for {
		fmt.Fprint(c.Out, prompt)
		if !sc.Scan() {
			break
		}
		name, raw, ok := splitLine(sc.Text())
		if !ok {
			continue
		}
		if name == "exit" || name == "quit" {
			return nil
		}
		if err := c.Dispatch.Invoke(name, raw); err != nil {
			fmt.Fprintf(c.Out, "error: %v\n", err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read console input: %w", err)
	}
	return nil
}

// splitLine strips comments and whitespace and cuts the command name
// from its argument. ok is false for lines with nothing to execute.
func splitLine(line string) (name, raw string, ok bool) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", "", false
	}
	name, raw, _ = strings.Cut(line, " ")
	return name, strings.TrimSpace(raw), true
}
