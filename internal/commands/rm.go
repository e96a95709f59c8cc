package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"shoplist/internal/exitcode"
	"shoplist/internal/list"
	"shoplist/internal/output"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct {
	filter string
	yes    bool
}

// SetYes skips the confirmation prompt (for testing).
func (c *RmCmd) SetYes(yes bool) {
	c.yes = yes
}

func (c *RmCmd) Name() string       { return "rm" }
func (c *RmCmd) Aliases() []string  { return []string{"delete"} }
func (c *RmCmd) Synopsis() string   { return "Delete items" }
func (c *RmCmd) Usage() string      { return "shoplist rm [--filter <f>] [--yes] <n...>" }
func (c *RmCmd) NeedsBackend() bool { return true }
func (c *RmCmd) NeedsAuth() bool    { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.filter, "filter", "all", "")
	fs.StringVar(&c.filter, "f", "all", "")
	fs.BoolVar(&c.yes, "yes", false, "")
	fs.BoolVar(&c.yes, "y", false, "")
}

func (c *RmCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	nums, err := ParseItemNumbers(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
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

	env.List.CancelSelection()
	for _, item := range items {
		if err := env.List.Select(item.ID); err != nil {
			return Fail(errOut, err)
		}
	}
	return runDelete(ctx, env, c.yes, out, errOut)
}

// runDelete confirms and deletes the controller's current selection.
func runDelete(ctx context.Context, env *Env, yes bool, out, errOut io.Writer) int {
	confirm := func([]string) bool {
		if yes {
			return true
		}
		return confirmDelete(env.In, errOut, env.List.Selection())
	}

	result, err := env.List.ConfirmDelete(ctx, confirm)
	var batchErr *list.BatchDeleteError
	switch {
	case errors.As(err, &batchErr):
		for _, id := range result.Failed {
			env.Logger.WithField("id", id).WithError(batchErr.Failed[id]).Debug("delete failed")
		}
		fmt.Fprintf(errOut, "error: %v\n", batchErr)
		return exitcode.BackendError
	case err != nil:
		return Fail(errOut, err)
	case result.Cancelled:
		env.List.CancelSelection()
		env.info(out, output.Noticef(output.Info, "cancelled"))
		return exitcode.Success
	}

	env.info(out, output.Noticef(output.Success, "deleted %d item(s)", len(result.Deleted)))
	return exitcode.Success
}
