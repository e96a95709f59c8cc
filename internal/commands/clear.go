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
	Register(&ClearCmd{})
}

// ClearCmd implements the clear command.
// By default it deletes completed items; --all deletes everything.
type ClearCmd struct {
	all bool
	yes bool
}

// SetAll selects every item instead of completed ones (for testing).
func (c *ClearCmd) SetAll(all bool) {
	c.all = all
}

// SetYes skips the confirmation prompt (for testing).
func (c *ClearCmd) SetYes(yes bool) {
	c.yes = yes
}

func (c *ClearCmd) Name() string       { return "clear" }
func (c *ClearCmd) Aliases() []string  { return nil }
func (c *ClearCmd) Synopsis() string   { return "Delete completed items" }
func (c *ClearCmd) Usage() string      { return "shoplist clear [--all] [--yes]" }
func (c *ClearCmd) NeedsBackend() bool { return true }
func (c *ClearCmd) NeedsAuth() bool    { return true }

func (c *ClearCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.all, "all", false, "")
	fs.BoolVar(&c.yes, "yes", false, "")
	fs.BoolVar(&c.yes, "y", false, "")
}

func (c *ClearCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	var n int
	var err error
	if c.all {
		n, err = env.List.SelectAll()
	} else {
		n, err = env.List.SelectCompleted()
	}
	if err != nil {
		return Fail(errOut, err)
	}
	if n == 0 {
		msg := "no completed items"
		if c.all {
			msg = "nothing to delete"
		}
		env.info(out, output.Noticef(output.Info, "%s", msg))
		return exitcode.Success
	}
	return runDelete(ctx, env, c.yes, out, errOut)
}
