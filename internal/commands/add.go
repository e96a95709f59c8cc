package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"shoplist/internal/exitcode"
	"shoplist/internal/output"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct{}

func (c *AddCmd) Name() string       { return "add" }
func (c *AddCmd) Aliases() []string  { return []string{"create"} }
func (c *AddCmd) Synopsis() string   { return "Add an item" }
func (c *AddCmd) Usage() string      { return "shoplist add <text...>" }
func (c *AddCmd) NeedsBackend() bool { return true }
func (c *AddCmd) NeedsAuth() bool    { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *AddCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	// Join args to form the item text
	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		fmt.Fprintln(errOut, "error: item text required")
		return exitcode.UserError
	}

	item, err := env.List.AddItem(ctx, text)
	if err != nil {
		return Fail(errOut, err)
	}

	env.info(out, output.Noticef(output.Success, "added: %s", item.Text))
	return exitcode.Success
}
