package server

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/trisbattle/arena/internal/aws/auth"
	"github.com/trisbattle/arena/internal/domains/entities"
)

// IdentityResolver maps a bearer token to the identity behind it.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (entities.PlayerInfo, error)
}

// identityResolver accepts Cognito-issued JWTs and stored API tokens. Both
// end at the caller's profile.
type identityResolver struct {
	store       Store
	cognitoKeys map[string]*rsa.PublicKey
	issuer      string
	now         func() time.Time
}

func newIdentityResolver(store Store, cognitoKeys map[string]*rsa.PublicKey, issuer string) *identityResolver {
	return &identityResolver{
		store:       store,
		cognitoKeys: cognitoKeys,
		issuer:      issuer,
		now:         time.Now,
	}
}

func (r *identityResolver) Resolve(ctx context.Context, token string) (entities.PlayerInfo, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return entities.PlayerInfo{}, ErrInvalidToken
	}

	var profileId string
	if isJwt(token) && len(r.cognitoKeys) > 0 {
		sub, err := auth.Subject(token, r.cognitoKeys, r.issuer)
		if err != nil {
			return entities.PlayerInfo{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
		profileId = sub
	} else {
		apiToken, err := r.store.GetApiToken(ctx, token)
		if err != nil {
			return entities.PlayerInfo{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
		if apiToken.Expired(r.now()) {
			return entities.PlayerInfo{}, ErrTokenExpired
		}
		profileId = apiToken.ProfileId
	}

	profile, err := r.store.GetProfile(ctx, profileId)
	if err != nil {
		return entities.PlayerInfo{}, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile.PlayerInfo(), nil
}

func isJwt(token string) bool {
	return strings.Count(token, ".") == 2
}

// bearerToken extracts the token of an Authorization header value.
func bearerToken(header string) (string, error) {
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", errors.New("no authorization")
	}
	return token, nil
}
