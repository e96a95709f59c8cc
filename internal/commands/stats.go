package commands

import (
	"context"
	"flag"
	"io"

	"shoplist/internal/exitcode"
	"shoplist/internal/output"
)

func init() {
	Register(&StatsCmd{})
}

// StatsCmd implements the stats command.
type StatsCmd struct{}

func (c *StatsCmd) Name() string       { return "stats" }
func (c *StatsCmd) Aliases() []string  { return nil }
func (c *StatsCmd) Synopsis() string   { return "Print item counts" }
func (c *StatsCmd) Usage() string      { return "shoplist stats" }
func (c *StatsCmd) NeedsBackend() bool { return true }
func (c *StatsCmd) NeedsAuth() bool    { return true }

func (c *StatsCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *StatsCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	output.FormatStats(out, env.List.Stats())
	return exitcode.Success
}
