package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"shoplist/internal/exitcode"
	"shoplist/internal/list"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `shoplist` (no args) and `shoplist list --filter <f>`.
type ListCmd struct {
	filter string
}

// SetFilter sets the filter name (for testing).
func (c *ListCmd) SetFilter(f string) {
	c.filter = f
}

func (c *ListCmd) Name() string       { return "list" }
func (c *ListCmd) Aliases() []string  { return []string{"ls"} }
func (c *ListCmd) Synopsis() string   { return "Show the shopping list" }
func (c *ListCmd) Usage() string      { return "shoplist list [--filter all|pending|completed]" }
func (c *ListCmd) NeedsBackend() bool { return true }
func (c *ListCmd) NeedsAuth() bool    { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.filter, "filter", "all", "")
	fs.StringVar(&c.filter, "f", "all", "")
}

func (c *ListCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	if code := applyFilter(env, c.filter, errOut); code != exitcode.Success {
		return code
	}
	env.Screen.Flush(out)
	return exitcode.Success
}

// applyFilter parses name and sets it on the controller.
func applyFilter(env *Env, name string, errOut io.Writer) int {
	f, err := list.ParseFilter(name)
	if err != nil {
		fmt.Fprintf(errOut, "error: unknown filter: %s\n", name)
		return exitcode.UserError
	}
	if err := env.List.SetFilter(f); err != nil {
		return Fail(errOut, err)
	}
	return exitcode.Success
}
