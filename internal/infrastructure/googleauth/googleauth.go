// Package googleauth validates Google ID tokens against Google's JWKS.
package googleauth

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/DphenomenalALU/tresor-backend/internal/domain/user"
)

// Verifier checks a raw Google ID token and returns the identity it
// asserts. Implementations must reject expired, forged, or foreign tokens.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*user.Identity, error)
}

// JWKSVerifier validates ID tokens using Google's published signing keys.
type JWKSVerifier struct {
	issuer    string
	audience  string
	jwksURL   string
	logger    zerolog.Logger
	clockSkew time.Duration
	jwks      atomic.Pointer[keyfunc.JWKS]
}

const (
	jwksInitialRetryInterval   = time.Second
	jwksInitialRetryMaxBackoff = 10 * time.Second
	jwksInitialRetryTimeout    = 2 * time.Minute

	// Google issues tokens under either form of the issuer.
	altIssuer = "accounts.google.com"
)

// NewJWKSVerifier fetches Google's JWKS and returns a verifier that keeps
// the key set refreshed in the background.
func NewJWKSVerifier(ctx context.Context, jwksURL, issuer, audience string, refreshEvery time.Duration, logger zerolog.Logger) (*JWKSVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("jwks url is required")
	}
	if audience == "" {
		return nil, errors.New("audience (client id) is required")
	}

	verifier := &JWKSVerifier{
		issuer:    issuer,
		audience:  audience,
		jwksURL:   jwksURL,
		logger:    logger,
		clockSkew: time.Minute,
	}
	if err := verifier.initJWKS(ctx, refreshEvery); err != nil {
		return nil, err
	}
	return verifier, nil
}

func (v *JWKSVerifier) initJWKS(ctx context.Context, refreshEvery time.Duration) error {
	options := keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   refreshEvery,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			if err != nil {
				v.logger.Error().Err(err).Msg("jwks refresh failed")
			}
		},
	}

	backoff := jwksInitialRetryInterval
	deadline := time.Now().Add(jwksInitialRetryTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	for attempt := 1; ; attempt++ {
		jwks, err := keyfunc.Get(v.jwksURL, options)
		if err == nil {
			v.jwks.Store(jwks)
			return nil
		}

		v.logger.Warn().
			Err(err).
			Str("jwks_url", v.jwksURL).
			Int("attempt", attempt).
			Msg("initial jwks fetch failed, retrying")

		if time.Now().After(deadline) {
			return fmt.Errorf("fetch jwks: %w", err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("fetch jwks: %w", ctx.Err())
		case <-time.After(backoff):
		}

		if next := backoff * 2; next <= jwksInitialRetryMaxBackoff {
			backoff = next
		} else {
			backoff = jwksInitialRetryMaxBackoff
		}
	}
}

// Verify parses and validates the given ID token.
func (v *JWKSVerifier) Verify(_ context.Context, rawToken string) (*user.Identity, error) {
	jwks := v.jwks.Load()
	if jwks == nil {
		return nil, errors.New("jwks not initialised")
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}))
	token, err := parser.ParseWithClaims(rawToken, jwt.MapClaims{}, jwks.Keyfunc)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}

	iss, _ := mapClaims["iss"].(string)
	if iss != v.issuer && iss != altIssuer {
		return nil, fmt.Errorf("issuer mismatch %s", iss)
	}

	if err := v.checkAudience(mapClaims["aud"]); err != nil {
		return nil, err
	}

	sub, _ := mapClaims["sub"].(string)
	if sub == "" {
		return nil, errors.New("sub claim missing")
	}

	if exp := jwtNumericTime(mapClaims["exp"]); !exp.IsZero() {
		if time.Now().UTC().After(exp.Add(v.clockSkew)) {
			return nil, errors.New("token expired")
		}
	}

	email, _ := mapClaims["email"].(string)
	name, _ := mapClaims["name"].(string)
	picture, _ := mapClaims["picture"].(string)

	return &user.Identity{
		Subject: sub,
		Name:    name,
		Email:   email,
		Picture: picture,
	}, nil
}

func (v *JWKSVerifier) checkAudience(audRaw any) error {
	switch val := audRaw.(type) {
	case string:
		if val != v.audience {
			return errors.New("audience mismatch")
		}
	case []interface{}:
		for _, item := range val {
			if s, ok := item.(string); ok && s == v.audience {
				return nil
			}
		}
		return errors.New("audience mismatch")
	case nil:
		return errors.New("aud claim missing")
	default:
		return fmt.Errorf("aud claim unsupported type %T", val)
	}
	return nil
}

// Ready reports whether the key set has been loaded.
func (v *JWKSVerifier) Ready() bool {
	return v.jwks.Load() != nil
}

func jwtNumericTime(value any) time.Time {
	if seconds, ok := value.(float64); ok {
		return time.Unix(int64(seconds), 0).UTC()
	}
	return time.Time{}
}
