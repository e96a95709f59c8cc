package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"shoplist/internal/list"
)

const googleCertsURL = "https://www.googleapis.com/oauth2/v3/certs"

// googleIssuers are the accepted "iss" values of Google ID tokens.
var googleIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

// TokenVerifier turns a raw ID token into an identity.
type TokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (list.Identity, error)
}

// IDTokenVerifier validates OpenID Connect ID tokens.
type IDTokenVerifier struct {
	keyFunc  jwt.Keyfunc
	audience string
	issuers  []string
	parser   *jwt.Parser
}

// NewIDTokenVerifier creates a verifier accepting RS256 tokens signed by keys
// from keyFunc, issued by one of issuers for audience.
func NewIDTokenVerifier(keyFunc jwt.Keyfunc, audience string, issuers ...string) *IDTokenVerifier {
	return &IDTokenVerifier{
		keyFunc:  keyFunc,
		audience: audience,
		issuers:  issuers,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
	}
}

// NewGoogleVerifier fetches Google's signing keys and returns a verifier for
// tokens issued to clientID.
func NewGoogleVerifier(ctx context.Context, clientID string) (*IDTokenVerifier, error) {
	jwks, err := keyfunc.Get(googleCertsURL, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("jwks: %w", err)
	}
	return NewIDTokenVerifier(jwks.Keyfunc, clientID, googleIssuers...), nil
}

// Verify implements TokenVerifier.
func (v *IDTokenVerifier) Verify(ctx context.Context, rawIDToken string) (list.Identity, error) {
	if rawIDToken == "" {
		return list.Identity{}, fmt.Errorf("%w: missing id token", list.ErrInvalidCredential)
	}
	token, err := v.parser.Parse(rawIDToken, v.keyFunc)
	if err != nil {
		return list.Identity{}, fmt.Errorf("%w: %v", list.ErrInvalidCredential, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return list.Identity{}, fmt.Errorf("%w: invalid claims", list.ErrInvalidCredential)
	}
	if err := v.checkClaims(claims); err != nil {
		return list.Identity{}, fmt.Errorf("%w: %v", list.ErrInvalidCredential, err)
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	return list.Identity{Kind: list.Individual, UserID: sub, Email: email}, nil
}

func (v *IDTokenVerifier) checkClaims(claims jwt.MapClaims) error {
	if !claims.VerifyExpiresAt(time.Now().Unix(), true) {
		return errors.New("token expired")
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return errors.New("invalid audience")
	}
	if len(v.issuers) > 0 {
		matched := false
		for _, iss := range v.issuers {
			if claims.VerifyIssuer(iss, true) {
				matched = true
				break
			}
		}
		if !matched {
			return errors.New("invalid issuer")
		}
	}
	if sub, ok := claims["sub"].(string); !ok || sub == "" {
		return errors.New("missing sub")
	}
	return nil
}
