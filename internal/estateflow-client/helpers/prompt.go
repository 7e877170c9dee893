package helpers

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// IsInteractive reports whether stdin is a terminal, so prompting makes sense.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

func (p *Prompter) LineWithDefault(label, def string) string {
	if def != "" {
		_, _ = fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		_, _ = fmt.Fprintf(p.out, "%s: ", label)
	}

	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return def
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

// Required asks until a non-empty answer is given or input ends.
func (p *Prompter) Required(label string) (string, error) {
	for {
		_, _ = fmt.Fprintf(p.out, "%s: ", label)
		line, err := p.in.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			return line, nil
		}
		if err != nil {
			return "", fmt.Errorf("%s: no input", label)
		}
		_, _ = fmt.Fprintf(p.out, "%s cannot be empty.\n", label)
	}
}
