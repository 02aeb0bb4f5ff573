package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/danswartzendruber/liner"
	"golang.org/x/term"

	emuera "github.com/IceThunder/emuera-mac-sub001"
)

//
// Ensure we are connected to a tty!
//

func checkTerminal() bool {
	return term.IsTerminal(0) && term.IsTerminal(1)
}

// terminalWidth returns the window width, or 0 when unknown.
func terminalWidth() int {

	cols, _, err := term.GetSize(1)
	if err != nil {
		return 0
	}
	return cols
}

// We create two Liner instances.  One for the REPL, and one for any
// INPUT commands.  We do this because we want a scrollback history for
// the REPL, but not for user input.  They are closed in LIFO order, as
// Close restores the terminal to the state it found on creation
//

func setupLiners() {
	g.replLiner = setupLiner(false)
	g.inputLiner = setupLiner(true)
}

func setupLiner(allowCtrlC bool) *liner.State {

	l := liner.NewLiner()

	l.SetMultiLineMode(allowCtrlC)
	l.SetCtrlCAborts(allowCtrlC)

	return l
}

//
// Restore terminal state. NB: we cannot call (or cause to be called)
// crash(), as that would recurse
//

func cleanupLiners() {
	cleanupLiner(&g.inputLiner)
	cleanupLiner(&g.replLiner)
}

func cleanupLiner(linerState **liner.State) {

	if *linerState != nil {
		(*linerState).Close()
		*linerState = nil
	}
}

//
// Read a line from the terminal, with editing and history. eof is set
// when the user typed ^D at the start of the line
//

func readLine(l *liner.State, prompt string, history bool) (s string, eof bool, err error) {

	s, err = l.Prompt(prompt)

	//
	// Annoyingly, a non-nil error here can be totally okay. This
	// happens when the user enters ^D at the beginning of the line
	// (so EOF is seen)
	//

	switch {
	case err == io.EOF:
		return "", true, nil
	case err == liner.ErrPromptAborted:
		return "", false, emuera.ErrInterrupted
	case err == liner.ErrTimedOut:
		return "", false, emuera.ErrTimeout
	case err != nil:
		return "", false, fmt.Errorf("readLine: %w", err)
	}

	if history && s != "" {
		l.AppendHistory(s)
	}
	return s, false, nil
}

//
// lineConsole answers WAIT and INPUT from the input liner, or from
// plain standard input when that is not a terminal
//

type lineConsole struct {
	in    *liner.State
	plain *bufio.Reader
}

func newLineConsole(in *liner.State) *lineConsole {
	return &lineConsole{in: in, plain: bufio.NewReader(os.Stdin)}
}

func (c *lineConsole) Wait(ctx context.Context) error {

	_, err := c.ReadLine(ctx, 0)
	if err == emuera.ErrTimeout {
		return nil
	}
	return err
}

func (c *lineConsole) ReadLine(ctx context.Context, timeout time.Duration) (string, error) {

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if c.in == nil {
		return c.readPlainLine()
	}

	//
	// The liner counts its timeout in whole seconds, 1 to 32767
	//

	secs := int16(0)
	if timeout > 0 {
		secs = int16(min((timeout+time.Second-1)/time.Second, 32767))
	}
	if err := c.in.SetTimeout(secs); err != nil {
		return "", err
	}

	s, eof, err := readLine(c.in, "", false)
	if eof {
		return "", io.EOF
	}
	return s, err
}

func (c *lineConsole) readPlainLine() (string, error) {

	s, err := c.plain.ReadString('\n')
	if err == io.EOF && s != "" {
		err = nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

//
// printOutput is the interpreter's output hook. The pause markers are
// not shown; text goes straight to the terminal
//

func printOutput(s string) {

	switch s {
	case emuera.MarkWait, emuera.MarkInput:
		return
	}
	fmt.Print(s)
}

//
// Dump the message to stderr and exit. Liners are cleaned up first so
// the terminal state is sane
//

func crash(msg string) {

	var w *os.File

	cleanupLiners()

	if msg != "" {
		fd, err := syscall.Dup(int(os.Stderr.Fd()))
		if err == nil {
			w = os.NewFile(uintptr(fd), "stderr on new fd")
		} else {
			w = os.Stderr
		}

		fmt.Fprintln(w, msg)
	}

	os.Exit(1)
}
