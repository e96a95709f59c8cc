// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	log "github.com/sirupsen/logrus"

	"shoplist/internal/config"
	"shoplist/internal/list"
	"shoplist/internal/output"
	"shoplist/internal/store"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsBackend returns true if the command needs the store and gate.
	// Commands like help and version return false.
	NeedsBackend() bool

	// NeedsAuth returns true if the command requires a restored session.
	// The dispatcher restores it before Run and fails when there is none.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int
}

// Env is what a command runs against.
// Config, Logger and In are always set. List, Screen, Store and Gate are nil
// unless NeedsBackend returns true.
type Env struct {
	Config *config.Config
	Logger log.FieldLogger

	// In is read for confirmations and password prompts.
	In io.Reader

	List   *list.Controller
	Screen *output.Screen
	Store  store.ItemStore
	Gate   list.AuthGate
}

// info prints an informational line unless --quiet is set.
func (e *Env) info(out io.Writer, n output.Notice) {
	if e.Config.Quiet {
		return
	}
	output.FormatNotice(out, n)
}
