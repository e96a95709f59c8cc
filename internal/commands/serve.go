package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"

	"shoplist/internal/config"
	"shoplist/internal/exitcode"
	"shoplist/internal/logging"
	"shoplist/internal/web"
)

func init() {
	Register(&ServeCmd{})
}

// ServeCmd runs the web front end and JSON API.
type ServeCmd struct {
	addr      string
	staticDir string
}

func (c *ServeCmd) Name() string       { return "serve" }
func (c *ServeCmd) Aliases() []string  { return nil }
func (c *ServeCmd) Synopsis() string   { return "Serve the web app" }
func (c *ServeCmd) Usage() string      { return "shoplist serve [--addr <host:port>] [--static <dir>]" }
func (c *ServeCmd) NeedsBackend() bool { return true }
func (c *ServeCmd) NeedsAuth() bool    { return false }

func (c *ServeCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.addr, "addr", "", "")
	fs.StringVar(&c.staticDir, "static", "", "")
}

func (c *ServeCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	cfg := env.Config
	if cfg.Mode != config.ModeShared {
		fmt.Fprintf(errOut, "error: serve requires mode %s\n", config.ModeShared)
		return exitcode.AuthError
	}

	if tc, ok := env.Store.(tableCreator); ok {
		if err := tc.EnsureTable(ctx); err != nil {
			fmt.Fprintf(errOut, "error: backend error: %v\n", err)
			return exitcode.BackendError
		}
	}

	addr := c.addr
	if addr == "" {
		addr = ":" + strings.TrimPrefix(cfg.Web.Port, ":")
	}
	staticDir := c.staticDir
	if staticDir == "" {
		staticDir = cfg.Web.StaticDir
	}

	logger := logging.NewJSON(errOut, cfg.Debug)
	if cfg.Quiet && !cfg.Debug {
		logger.SetLevel(log.WarnLevel)
	}
	if cfg.Web.SessionSecret == "" {
		logger.Warn("no session secret configured, browsers are logged out on restart")
	}

	srv, err := web.New(web.Options{
		Store:          env.Store,
		FamilyPassword: cfg.FamilyPassword,
		StaticDir:      staticDir,
		SessionSecret:  []byte(cfg.Web.SessionSecret),
		Logger:         logger,
	})
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	if err := srv.Start(ctx, addr); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	return exitcode.Success
}
