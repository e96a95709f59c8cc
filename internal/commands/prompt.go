package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"shoplist/internal/output"
	"shoplist/internal/store"
)

// confirmDelete lists items on errOut and asks for a y/N answer on in.
// Anything but "y" or "yes" declines, including EOF.
func confirmDelete(in io.Reader, errOut io.Writer, items []store.Item) bool {
	for i, item := range items {
		output.FormatSelectedItem(errOut, i+1, item)
	}
	fmt.Fprintf(errOut, "Delete %d item(s)? [y/N] ", len(items))

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(errOut)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// readPassword prompts for the family password. Input is hidden when in is
// a terminal.
func readPassword(in io.Reader, errOut io.Writer) (string, error) {
	fmt.Fprint(errOut, "Family password: ")
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(errOut)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
