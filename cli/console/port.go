// Package console is the operator-facing side of the CLI: a line-oriented
// port and the interactive conversion session built on it.
package console

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Port reads operator input one line at a time and writes messages back.
type Port interface {
	ReadLine() (string, error)
	WriteLine(format string, args ...any)
}

type Stdio struct {
	mu      sync.Mutex
	scanner *bufio.Scanner
	w       io.Writer
}

func NewStdio(r io.Reader, w io.Writer) *Stdio {
	return &Stdio{scanner: bufio.NewScanner(r), w: w}
}

// ReadLine returns the next line without its terminator. io.EOF is returned
// once the input is exhausted.
func (s *Stdio) ReadLine() (string, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimRight(s.scanner.Text(), "\r"), nil
}

// WriteLine is safe for concurrent use.
func (s *Stdio) WriteLine(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, format+"\n", args...)
}
