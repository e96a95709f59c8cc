package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"shoplist/internal/config"
	"shoplist/internal/list"
)

type stubVerifier struct {
	id  list.Identity
	err error
	raw string
}

func (s *stubVerifier) Verify(ctx context.Context, raw string) (list.Identity, error) {
	s.raw = raw
	return s.id, s.err
}

func writeClient(t *testing.T, dir, tokenURL string) {
	t.Helper()
	if tokenURL == "" {
		tokenURL = "https://oauth2.googleapis.com/token"
	}
	client := fmt.Sprintf(`{"installed":{"client_id":"test","client_secret":"test","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":%q,"redirect_uris":["http://localhost"]}}`, tokenURL)
	if err := os.WriteFile(filepath.Join(dir, config.OAuthClientFile), []byte(client), 0600); err != nil {
		t.Fatalf("write client: %v", err)
	}
}

func TestOAuthGate_SignInWithoutClient(t *testing.T) {
	cfg := &config.Config{Dir: t.TempDir()}
	g := NewOAuthGate(cfg)

	_, err := g.SignIn(context.Background(), "")
	if !errors.Is(err, ErrNoOAuthClient) {
		t.Errorf("SignIn error = %v, want ErrNoOAuthClient", err)
	}
}

func TestOAuthGate_SignInCancelled(t *testing.T) {
	dir := t.TempDir()
	writeClient(t, dir, "")
	g := NewOAuthGate(&config.Config{Dir: dir})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := g.SignIn(ctx, ""); err == nil {
		t.Error("expected error for cancelled sign-in")
	}
	if _, ok, _ := g.Restore(context.Background()); ok {
		t.Error("cancelled sign-in must not create a session")
	}
}

func TestOAuthGate_CompleteAndRestore(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{Dir: filepath.Join(t.TempDir(), "nested")}
	v := &stubVerifier{id: list.Identity{Kind: list.Individual, UserID: "u1", Email: "u1@example.com"}}
	g := NewOAuthGate(cfg, WithVerifier(v))

	token := (&oauth2.Token{AccessToken: "at", RefreshToken: "rt"}).
		WithExtra(map[string]interface{}{"id_token": "raw-id-token"})

	id, err := g.complete(ctx, "test", token)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if v.raw != "raw-id-token" {
		t.Errorf("verifier got %q", v.raw)
	}
	if id.UserID != "u1" {
		t.Errorf("identity = %+v", id)
	}

	info, err := os.Stat(cfg.TokenPath())
	if err != nil {
		t.Fatalf("token not saved: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("token mode = %o, want 0600", perm)
	}

	restored, ok, err := g.Restore(ctx)
	if err != nil || !ok {
		t.Fatalf("Restore = (%v, %v)", ok, err)
	}
	if restored.Kind != list.Individual || restored.UserID != "u1" || restored.Email != "u1@example.com" {
		t.Errorf("restored = %+v", restored)
	}

	if err := g.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if _, ok, _ := g.Restore(ctx); ok {
		t.Error("expected no session after sign-out")
	}
}

func TestOAuthGate_CompleteRejected(t *testing.T) {
	cfg := &config.Config{Dir: t.TempDir()}
	g := NewOAuthGate(cfg, WithVerifier(&stubVerifier{err: list.ErrInvalidCredential}))

	_, err := g.complete(context.Background(), "test", &oauth2.Token{AccessToken: "at", RefreshToken: "rt"})
	if !errors.Is(err, list.ErrInvalidCredential) {
		t.Fatalf("complete error = %v", err)
	}
	if cfg.HasToken() {
		t.Error("rejected identity must not save a token")
	}
}

func TestOAuthGate_RestoreWithoutRefreshToken(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Dir: dir}
	os.WriteFile(cfg.TokenPath(), []byte(`{"access_token":"expired","token_type":"Bearer"}`), 0600)
	os.WriteFile(cfg.IdentityPath(), []byte(`{"kind":2,"userId":"u1"}`), 0600)

	if _, ok, err := NewOAuthGate(cfg).Restore(context.Background()); ok || err != nil {
		t.Errorf("Restore = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestOAuthGate_TokenSourceRevoked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeClient(t, dir, srv.URL)
	cfg := &config.Config{Dir: dir}
	expired := &oauth2.Token{AccessToken: "old", RefreshToken: "rt", Expiry: time.Now().Add(-time.Hour)}
	if err := saveJSON(cfg.TokenPath(), expired); err != nil {
		t.Fatal(err)
	}
	if err := saveJSON(cfg.IdentityPath(), list.Identity{Kind: list.Individual, UserID: "u1"}); err != nil {
		t.Fatal(err)
	}

	g := NewOAuthGate(cfg)
	var pushed []bool
	g.OnIdentityChanged(func(id list.Identity, ok bool) { pushed = append(pushed, ok) })

	_, err := g.TokenSource(context.Background()).Token()
	if err == nil {
		t.Fatal("expected refresh error")
	}
	if len(pushed) != 1 || pushed[0] {
		t.Errorf("pushed = %v, want [false]", pushed)
	}
	if cfg.HasToken() {
		t.Error("revoked token should be removed")
	}
	if _, ok, _ := g.Restore(context.Background()); ok {
		t.Error("expected no session after revoke")
	}
}

func TestOAuthGate_TokenSourceValid(t *testing.T) {
	dir := t.TempDir()
	writeClient(t, dir, "")
	cfg := &config.Config{Dir: dir}
	valid := &oauth2.Token{AccessToken: "fresh", RefreshToken: "rt", Expiry: time.Now().Add(time.Hour)}
	if err := saveJSON(cfg.TokenPath(), valid); err != nil {
		t.Fatal(err)
	}

	tok, err := NewOAuthGate(cfg).TokenSource(context.Background()).Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok.AccessToken != "fresh" {
		t.Errorf("access token = %q", tok.AccessToken)
	}
}

func TestOAuthGate_NotifyAllListeners(t *testing.T) {
	g := NewOAuthGate(&config.Config{Dir: t.TempDir()})
	var got []string
	g.OnIdentityChanged(func(id list.Identity, ok bool) { got = append(got, "a:"+id.UserID) })
	g.OnIdentityChanged(func(id list.Identity, ok bool) {
		got = append(got, "b:"+id.UserID)
		// Registering during delivery must not deadlock or join this round.
		g.OnIdentityChanged(func(list.Identity, bool) { got = append(got, "late") })
	})

	g.notify(list.Identity{UserID: "u1"}, true)
	want := []string{"a:u1", "b:u1"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("delivered = %v, want %v", got, want)
	}
}

func TestCallbackHandler_RepeatedHits(t *testing.T) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	srv := httptest.NewServer(callbackHandler("st", codeCh, errCh))
	defer srv.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			resp, err := http.Get(srv.URL + "/callback?state=st&code=c" + fmt.Sprint(i))
			if err != nil {
				t.Errorf("hit %d: %v", i, err)
				return
			}
			resp.Body.Close()
			resp, err = http.Get(srv.URL + "/callback?state=bad")
			if err != nil {
				t.Errorf("bad hit %d: %v", i, err)
				return
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("bad hit %d status = %d", i, resp.StatusCode)
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("callback handler blocked on a repeated hit")
	}
	if code := <-codeCh; code != "c0" {
		t.Errorf("code = %q, want first code c0", code)
	}
	if err := <-errCh; err == nil || err.Error() != "state mismatch in callback" {
		t.Errorf("err = %v", err)
	}
}
