package launcher

import (
	"bufio"
	"fmt"
	"io"
)

// Pauser holds the launcher open until the operator acknowledges a
// diagnostic, so a double-clicked launcher does not close its window
// before the message can be read.
type Pauser interface {
	Pause()
}

// NoPause never waits. Used for --no-pause and non-interactive callers.
type NoPause struct{}

// Pause returns immediately.
func (NoPause) Pause() {}

// LinePauser prints a prompt and blocks until a line (or EOF) arrives on
// its input.
type LinePauser struct {
	in     *bufio.Reader
	out    io.Writer
	prompt string
}

// NewLinePauser creates a LinePauser reading from in and prompting on out.
func NewLinePauser(in io.Reader, out io.Writer, prompt string) *LinePauser {
	return &LinePauser{in: bufio.NewReader(in), out: out, prompt: prompt}
}

// Pause prints the prompt and waits. Read errors (including EOF on a closed
// or redirected stdin) end the wait.
func (p *LinePauser) Pause() {
	_, _ = fmt.Fprint(p.out, p.prompt)
	_, _ = p.in.ReadString('\n')
	_, _ = fmt.Fprintln(p.out)
}
