// Package password implements the interactive side of passphrase-based key
// generation: detecting a terminal and prompting for a line without local
// echo. The actual key stretching lives in internal/keygen.
//
// Raw-mode terminal I/O is handled by golang.org/x/term rather than
// hand-rolled per-platform ioctl calls, since it covers exactly this gap
// portably.
package password

import (
	"bufio"
	"fmt"
	"io"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/lmaotrigine/klip/internal/errs"
)

// IsTerminal reports whether fd refers to an interactive terminal.
func IsTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Prompt writes label to w and reads one line from fd without local echo,
// returning the line with any trailing newline stripped.
func Prompt(w io.Writer, fd uintptr, label string) ([]byte, error) {
	fmt.Fprint(w, label)
	b, err := term.ReadPassword(int(fd))
	fmt.Fprintln(w)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, err, "read password")
	}
	return b, nil
}

// PromptConfirm prompts twice and requires the two reads to match, the
// usual "set a new password" flow.
func PromptConfirm(w io.Writer, fd uintptr) ([]byte, error) {
	first, err := Prompt(w, fd, "New passphrase: ")
	if err != nil {
		return nil, err
	}
	second, err := Prompt(w, fd, "Confirm passphrase: ")
	if err != nil {
		return nil, err
	}
	if string(first) != string(second) {
		return nil, errs.New(errs.KindConfig, "passphrases do not match")
	}
	return first, nil
}

// ReadLine reads one line from r without any terminal handling — used when
// stdin isn't a TTY (e.g. piped input in scripts/tests).
func ReadLine(r io.Reader) ([]byte, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, errs.Wrap(errs.KindIO, err, "read line")
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return []byte(line), nil
}
