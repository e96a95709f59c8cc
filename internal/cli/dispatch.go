// Package cli parses the command line and runs commands against the
// configured backend.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"shoplist/internal/commands"
	"shoplist/internal/config"
	"shoplist/internal/exitcode"
	"shoplist/internal/list"
	"shoplist/internal/logging"
	"shoplist/internal/output"
	"shoplist/internal/store"
)

// Backend is what a Factory builds for commands that need one.
type Backend struct {
	Store store.ItemStore
	Gate  list.AuthGate
}

// Factory creates the item store and auth gate from config.
// notice receives interactive sign-in instructions.
type Factory func(ctx context.Context, cfg *config.Config, logger log.FieldLogger, notice io.Writer) (*Backend, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  Factory
	in       io.Reader
}

// NewDispatcher creates a new dispatcher with the given registry and backend factory.
func NewDispatcher(registry *commands.Registry, factory Factory) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		factory:  factory,
		in:       os.Stdin,
	}
}

// SetInput replaces stdin for prompts (for testing).
func (d *Dispatcher) SetInput(r io.Reader) {
	d.in = r
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to "list" command with no args
	if len(args) == 0 {
		return d.dispatch(ctx, "list", nil, out, errOut)
	}

	cmdName := args[0]

	// If first token starts with -, it's an error (flags require a command)
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatch(ctx, cmdName, args[1:], out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	// Create flag set with custom error handling
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	// Common flags
	var configDir string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	// Register command-specific flags
	cmd.RegisterFlags(fs)

	positionalArgs, err := parseArgs(fs, args)
	if err != nil {
		return flagError(errOut, err)
	}

	cfg, err := config.New(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug

	logger := logging.New(errOut, debug)
	env := &commands.Env{Config: cfg, Logger: logger, In: d.in}

	if cmd.NeedsBackend() {
		if d.factory == nil {
			fmt.Fprintln(errOut, "error: no backend configured")
			return exitcode.AuthError
		}
		backend, err := d.factory(ctx, cfg, logger, errOut)
		if err != nil {
			fmt.Fprintf(errOut, "error: %s\n", err)
			return exitcode.AuthError
		}
		env.Store = backend.Store
		env.Gate = backend.Gate
		env.Screen = output.NewScreen()
		env.List = list.New(list.Options{
			Store:    backend.Store,
			Gate:     backend.Gate,
			Renderer: env.Screen,
			Logger:   logger.WithField("command", cmd.Name()),
		})

		if cmd.NeedsAuth() {
			ok, err := env.List.Restore(ctx)
			switch {
			case err != nil && !env.List.Session().Authenticated:
				fmt.Fprintf(errOut, "error: %s\n", err)
				return exitcode.AuthError
			case err != nil:
				return commands.Fail(errOut, err)
			case !ok:
				return commands.Fail(errOut, list.ErrAuthRequired)
			}
		}
	}

	logger.WithField("command", cmd.Name()).Debug("running")
	return cmd.Run(ctx, env, positionalArgs, out, errOut)
}

// parseArgs parses flags wherever they appear, so "add milk --quiet" adds
// "milk". A bare "--" ends flag parsing and everything after it is positional.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if n := len(args) - len(rest); n > 0 && args[n-1] == "--" {
			return append(positional, rest...), nil
		}
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// flagError reports a flag parsing failure.
func flagError(errOut io.Writer, err error) int {
	if errors.Is(err, flag.ErrHelp) {
		fmt.Fprintln(errOut, "error: unknown flag: -h (run: shoplist help)")
		return exitcode.UserError
	}
	errStr := err.Error()

	// Check for missing flag value
	if strings.Contains(errStr, "needs a value") || strings.Contains(errStr, "flag needs an argument") {
		parts := strings.Split(errStr, ":")
		if len(parts) > 0 {
			flagPart := strings.TrimSpace(parts[len(parts)-1])
			fmt.Fprintf(errOut, "error: flag needs an argument: %s\n", flagPart)
			return exitcode.UserError
		}
	}

	if strings.HasPrefix(errStr, "flag provided but not defined:") {
		flagName := strings.TrimPrefix(errStr, "flag provided but not defined: ")
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", flagName)
		return exitcode.UserError
	}

	fmt.Fprintf(errOut, "error: %s\n", errStr)
	return exitcode.UserError
}
