package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"shoplist/internal/auth"
	"shoplist/internal/config"
	"shoplist/internal/exitcode"
	"shoplist/internal/list"
	"shoplist/internal/output"
)

func init() {
	Register(&LoginCmd{})
}

// tableCreator is implemented by stores that can create their backing table.
type tableCreator interface {
	EnsureTable(ctx context.Context) error
}

// LoginCmd implements the login command.
// Shared mode asks for the family password; oauth mode runs the Google flow.
type LoginCmd struct {
	password string
}

// SetPassword sets the family password (for testing).
func (c *LoginCmd) SetPassword(pw string) {
	c.password = pw
}

func (c *LoginCmd) Name() string       { return "login" }
func (c *LoginCmd) Aliases() []string  { return nil }
func (c *LoginCmd) Synopsis() string   { return "Sign in" }
func (c *LoginCmd) Usage() string      { return "shoplist login [--password <p>]" }
func (c *LoginCmd) NeedsBackend() bool { return true }
func (c *LoginCmd) NeedsAuth() bool    { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.password, "password", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	// Check if already logged in
	if id, ok, err := env.Gate.Restore(ctx); err == nil && ok {
		env.info(out, output.Noticef(output.Info, "already logged in as %s", id))
		return exitcode.Success
	}

	if tc, ok := env.Store.(tableCreator); ok {
		if err := tc.EnsureTable(ctx); err != nil {
			fmt.Fprintf(errOut, "error: backend error: %v\n", err)
			return exitcode.BackendError
		}
	}

	credential := c.password
	if env.List.Mode() == list.ModeShared && credential == "" {
		pw, err := readPassword(env.In, errOut)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		credential = pw
	}

	err := env.List.Authenticate(ctx, credential)
	switch {
	case errors.Is(err, auth.ErrNoOAuthClient):
		printOAuthSetup(errOut, env.Config)
		return exitcode.AuthError
	case errors.Is(err, list.ErrInvalidCredential):
		if env.List.Mode() == list.ModeShared {
			fmt.Fprintln(errOut, "error: wrong password")
		} else {
			fmt.Fprintf(errOut, "error: sign-in rejected: %v\n", err)
		}
		return exitcode.AuthError
	case err != nil && !env.List.Session().Authenticated:
		fmt.Fprintf(errOut, "error: sign-in failed: %v\n", err)
		return exitcode.AuthError
	case err != nil:
		// Signed in, but the first load failed.
		env.info(out, output.Noticef(output.Success, "logged in as %s", env.List.Session().Identity))
		return Fail(errOut, err)
	}

	env.info(out, output.Noticef(output.Success, "logged in as %s", env.List.Session().Identity))
	return exitcode.Success
}

func printOAuthSetup(errOut io.Writer, cfg *config.Config) {
	fmt.Fprintf(errOut, "error: oauth_client.json not found in %s\n\n", cfg.Dir)
	fmt.Fprintln(errOut, "To sign in with Google, you need OAuth credentials:")
	fmt.Fprintln(errOut, "")
	fmt.Fprintln(errOut, "1. Go to https://console.cloud.google.com/apis/credentials")
	fmt.Fprintln(errOut, "2. Create a project (or select an existing one)")
	if cfg.Backend == config.BackendTasks {
		fmt.Fprintln(errOut, "3. Enable the Google Tasks API:")
		fmt.Fprintln(errOut, "   https://console.cloud.google.com/apis/library/tasks.googleapis.com")
	} else {
		fmt.Fprintln(errOut, "3. Configure the OAuth consent screen")
	}
	fmt.Fprintln(errOut, "4. Create OAuth 2.0 credentials:")
	fmt.Fprintln(errOut, "   - Click 'Create Credentials' > 'OAuth client ID'")
	fmt.Fprintln(errOut, "   - Choose 'Desktop app' as application type")
	fmt.Fprintln(errOut, "   - Download the JSON file")
	fmt.Fprintln(errOut, "5. Save it as:")
	fmt.Fprintf(errOut, "   %s\n", cfg.OAuthClientPath())
	fmt.Fprintln(errOut, "")
	fmt.Fprintln(errOut, "Then run 'shoplist login' again.")
}
