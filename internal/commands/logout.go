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
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string       { return "logout" }
func (c *LogoutCmd) Aliases() []string  { return nil }
func (c *LogoutCmd) Synopsis() string   { return "Forget the stored session" }
func (c *LogoutCmd) Usage() string      { return "shoplist logout [common flags]" }
func (c *LogoutCmd) NeedsBackend() bool { return true }
func (c *LogoutCmd) NeedsAuth() bool    { return false }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	// Check for a stored session
	if _, ok, _ := env.Gate.Restore(ctx); !ok {
		env.info(out, output.Noticef(output.Info, "not logged in"))
		return exitcode.Success
	}

	if err := env.List.Logout(ctx); err != nil {
		fmt.Fprintf(errOut, "error: failed to sign out: %v\n", err)
		return exitcode.AuthError
	}

	env.info(out, output.Noticef(output.Success, "logged out"))
	return exitcode.Success
}
