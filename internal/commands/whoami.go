package commands

import (
	"context"
	"flag"
	"io"

	"shoplist/internal/exitcode"
	"shoplist/internal/list"
	"shoplist/internal/output"
)

func init() {
	Register(&WhoamiCmd{})
}

// WhoamiCmd implements the whoami command.
// It reads the persisted session without loading items.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Name() string       { return "whoami" }
func (c *WhoamiCmd) Aliases() []string  { return nil }
func (c *WhoamiCmd) Synopsis() string   { return "Print the signed-in identity" }
func (c *WhoamiCmd) Usage() string      { return "shoplist whoami" }
func (c *WhoamiCmd) NeedsBackend() bool { return true }
func (c *WhoamiCmd) NeedsAuth() bool    { return false }

func (c *WhoamiCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *WhoamiCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	id, ok, err := env.Gate.Restore(ctx)
	if err != nil {
		return Fail(errOut, err)
	}
	output.FormatIdentity(out, env.Gate.Mode(), list.Session{Authenticated: ok, Identity: id})
	if !ok {
		return exitcode.AuthError
	}
	return exitcode.Success
}
