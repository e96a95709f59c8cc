package commands_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"shoplist/internal/auth"
	"shoplist/internal/commands"
	"shoplist/internal/config"
	"shoplist/internal/exitcode"
	"shoplist/internal/list"
	"shoplist/internal/logging"
	"shoplist/internal/testutil"
)

// tableStore is a FakeStore with a creatable table.
type tableStore struct {
	*testutil.FakeStore
	ensured int
	err     error
}

func (s *tableStore) EnsureTable(ctx context.Context) error {
	s.ensured++
	return s.err
}

func TestLoginCommand_Password(t *testing.T) {
	st := &tableStore{FakeStore: testutil.NewFakeStore()}
	gate := testutil.NewSharedGate("milk123")
	env := newEnv(t, st, gate, false)

	cmd := &commands.LoginCmd{}
	cmd.SetPassword("milk123")
	stdout, stderr, code := runCommand(t, cmd, env, nil)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "logged in as family\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
	if !gate.Persisted {
		t.Error("session not persisted")
	}
	if st.ensured != 1 {
		t.Errorf("EnsureTable called %d times, want 1", st.ensured)
	}
	if st.Calls("query") != 1 {
		t.Errorf("items loaded %d times, want 1", st.Calls("query"))
	}
}

func TestLoginCommand_Prompt(t *testing.T) {
	gate := testutil.NewSharedGate("milk123")
	env := newEnv(t, testutil.NewFakeStore(), gate, false)
	env.In = strings.NewReader("milk123\n")

	stdout, stderr, code := runCommand(t, &commands.LoginCmd{}, env, nil)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stderr != "Family password: " {
		t.Errorf("unexpected prompt %q", stderr)
	}
	if stdout != "logged in as family\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
}

func TestLoginCommand_WrongPassword(t *testing.T) {
	gate := testutil.NewSharedGate("milk123")
	env := newEnv(t, testutil.NewFakeStore(), gate, false)

	cmd := &commands.LoginCmd{}
	cmd.SetPassword("bread")
	stdout, stderr, code := runCommand(t, cmd, env, nil)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	if stderr != "error: wrong password\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if gate.Persisted || env.List.Session().Authenticated {
		t.Error("wrong password must leave the session logged out")
	}
}

func TestLoginCommand_AlreadyLoggedIn(t *testing.T) {
	fs := testutil.NewFakeStore()
	env := newEnv(t, fs, loggedInGate(), false)

	stdout, _, code := runCommand(t, &commands.LoginCmd{}, env, nil)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "already logged in as family\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
}

func TestLoginCommand_EnsureTableFails(t *testing.T) {
	st := &tableStore{FakeStore: testutil.NewFakeStore(), err: errors.New("forbidden")}
	env := newEnv(t, st, testutil.NewSharedGate("milk123"), false)

	cmd := &commands.LoginCmd{}
	cmd.SetPassword("milk123")
	_, stderr, code := runCommand(t, cmd, env, nil)

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if stderr != "error: backend error: forbidden\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestLoginCommand_LoadFails(t *testing.T) {
	fs := testutil.NewFakeStore()
	fs.QueryErr = errors.New("timeout")
	gate := testutil.NewSharedGate("milk123")
	env := newEnv(t, fs, gate, false)

	cmd := &commands.LoginCmd{}
	cmd.SetPassword("milk123")
	stdout, stderr, code := runCommand(t, cmd, env, nil)

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if stdout != "logged in as family\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
	if stderr != "error: backend error: query: timeout\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if !gate.Persisted {
		t.Error("sign-in should persist even when loading fails")
	}
}

// TestLoginCommand_NoOAuthClient verifies login explains how to set up
// oauth_client.json.
func TestLoginCommand_NoOAuthClient(t *testing.T) {
	cfg := config.Defaults()
	cfg.Dir = t.TempDir()
	cfg.Mode = config.ModeOAuth
	cfg.Backend = config.BackendTasks

	gate := auth.NewOAuthGate(cfg)
	fs := testutil.NewFakeStore()
	env := &commands.Env{
		Config: cfg,
		Logger: logging.Discard(),
		In:     strings.NewReader(""),
		List:   list.New(list.Options{Store: fs, Gate: gate}),
		Store:  fs,
		Gate:   gate,
	}

	stdout, stderr, code := runCommand(t, &commands.LoginCmd{}, env, nil)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	for _, want := range []string{
		"error: oauth_client.json not found in " + cfg.Dir,
		"tasks.googleapis.com",
		cfg.OAuthClientPath(),
	} {
		if !strings.Contains(stderr, want) {
			t.Errorf("stderr missing %q:\n%s", want, stderr)
		}
	}
}

func TestLogoutCommand(t *testing.T) {
	fs := testutil.NewFakeStore()
	seedList(fs)
	gate := loggedInGate()
	env := newEnv(t, fs, gate, false)

	stdout, stderr, code := runCommand(t, &commands.LogoutCmd{}, env, nil)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "logged out\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
	if gate.Persisted {
		t.Error("session still persisted")
	}
	if len(env.List.Items()) != 0 || env.List.Session().Authenticated {
		t.Error("local state not discarded")
	}
	if fs.Len() != 3 {
		t.Errorf("logout must not touch stored items, store has %d", fs.Len())
	}
}

func TestLogoutCommand_NotLoggedIn(t *testing.T) {
	env := newEnv(t, testutil.NewFakeStore(), testutil.NewSharedGate("milk123"), false)

	stdout, _, code := runCommand(t, &commands.LogoutCmd{}, env, nil)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "not logged in\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
}

func TestLogoutCommand_SignOutFails(t *testing.T) {
	gate := loggedInGate()
	gate.SignOutErr = errors.New("permission denied")
	env := newEnv(t, testutil.NewFakeStore(), gate, false)

	_, stderr, code := runCommand(t, &commands.LogoutCmd{}, env, nil)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stderr != "error: failed to sign out: permission denied\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if env.List.Session().Authenticated {
		t.Error("local state must be discarded even when sign-out fails")
	}
}

func TestServeCommand_RequiresSharedMode(t *testing.T) {
	env := newEnv(t, testutil.NewFakeStore(), loggedInGate(), false)
	env.Config.Mode = config.ModeOAuth

	_, stderr, code := runCommand(t, &commands.ServeCmd{}, env, nil)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stderr != "error: serve requires mode shared\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestServeCommand_NoPassword(t *testing.T) {
	env := newEnv(t, testutil.NewFakeStore(), loggedInGate(), false)
	env.Config.FamilyPassword = ""

	_, stderr, code := runCommand(t, &commands.ServeCmd{}, env, nil)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.Contains(stderr, "family password not configured") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}
