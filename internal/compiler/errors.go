package compiler

import (
	"fmt"
	"os"

	"poise/internal/scanner"
)

// reportError prints a Compiler.cpp::error-style diagnostic to stderr:
// message, location, and a source excerpt spanning one line of context on
// either side of the offending token with a caret underline.
func (c *Compiler) reportError(tok scanner.Token, message string) {
	c.hadError = true

	if tok.Type == scanner.TokenEOF {
		fmt.Fprintf(os.Stderr, "Compiler Error at EOF: %s\n", message)
	} else {
		fmt.Fprintf(os.Stderr, "Compiler Error at '%s': %s\n", tok.Text, message)
	}
	fmt.Fprintf(os.Stderr, "       --> %s:%d:%d\n", c.path, tok.Line, tok.Column)
	fmt.Fprintf(os.Stderr, "        |\n")

	if tok.Line > 1 {
		fmt.Fprintf(os.Stderr, "%7d | %s\n", tok.Line-1, scanner.GetCodeAtLine(c.path, tok.Line-1))
	}
	fmt.Fprintf(os.Stderr, "%7d | %s\n", tok.Line, scanner.GetCodeAtLine(c.path, tok.Line))

	fmt.Fprintf(os.Stderr, "        | ")
	for i := 1; i < tok.Column; i++ {
		fmt.Fprint(os.Stderr, " ")
	}
	for i := 0; i < len(tok.Text); i++ {
		fmt.Fprint(os.Stderr, "^")
	}
	fmt.Fprintln(os.Stderr)

	if tok.Line < scanner.GetNumLines(c.path) {
		fmt.Fprintf(os.Stderr, "%7d | %s\n", tok.Line+1, scanner.GetCodeAtLine(c.path, tok.Line+1))
	}
	fmt.Fprintf(os.Stderr, "        |\n")
}

// errorAtCurrent and errorAtPrevious are the two call sites every parsing
// function uses, naming the token the message is anchored to.
func (c *Compiler) errorAtCurrent(message string) {
	c.reportError(c.current, message)
}

func (c *Compiler) errorAtPrevious(message string) {
	c.reportError(c.previous, message)
}
