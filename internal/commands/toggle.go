package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"shoplist/internal/exitcode"
	"shoplist/internal/output"
)

func init() {
	Register(&ToggleCmd{})
}

// ToggleCmd implements the toggle command.
// It flips the completed flag of one item.
type ToggleCmd struct {
	filter string
}

// SetFilter sets the filter the item number refers to (for testing).
func (c *ToggleCmd) SetFilter(f string) {
	c.filter = f
}

func (c *ToggleCmd) Name() string       { return "toggle" }
func (c *ToggleCmd) Aliases() []string  { return []string{"check", "done"} }
func (c *ToggleCmd) Synopsis() string   { return "Check or uncheck an item" }
func (c *ToggleCmd) Usage() string      { return "shoplist toggle [--filter <f>] <n>" }
func (c *ToggleCmd) NeedsBackend() bool { return true }
func (c *ToggleCmd) NeedsAuth() bool    { return true }

func (c *ToggleCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.filter, "filter", "all", "")
	fs.StringVar(&c.filter, "f", "all", "")
}

func (c *ToggleCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	nums, err := ParseItemNumbers(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if len(nums) > 1 {
		fmt.Fprintln(errOut, "error: toggle takes one item number")
		return exitcode.UserError
	}
	if code := applyFilter(env, c.filter, errOut); code != exitcode.Success {
		return code
	}

	items, err := ResolveItems(env.List.Filtered(), nums)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	item := items[0]

	completed, err := env.List.ToggleCompletion(ctx, item.ID)
	if err != nil {
		return Fail(errOut, err)
	}

	verb := "unchecked"
	if completed {
		verb = "checked"
	}
	env.info(out, output.Noticef(output.Success, "%s: %s", verb, item.Text))
	return exitcode.Success
}
