package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://cognito-idp.ap-southeast-1.amazonaws.com/pool"

func signedToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	s, err := token.SignedString(key)
	require.NoError(t, err)
	return s
}

func testKeys(t *testing.T) (*rsa.PrivateKey, map[string]*rsa.PublicKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keys, err := parsePublicKeys([]jwk{{
		Kid: "k1",
		N:   base64.RawURLEncoding.EncodeToString(priv.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(priv.E)).Bytes()),
	}})
	require.NoError(t, err)
	return priv, keys
}

func TestSubject(t *testing.T) {
	priv, keys := testKeys(t)
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name    string
		kid     string
		claims  jwt.MapClaims
		wantSub string
		wantErr bool
	}{
		{"valid", "k1", jwt.MapClaims{"sub": "u1", "iss": testIssuer, "exp": exp}, "u1", false},
		{"unknown kid", "k2", jwt.MapClaims{"sub": "u1", "iss": testIssuer, "exp": exp}, "", true},
		{"wrong issuer", "k1", jwt.MapClaims{"sub": "u1", "iss": "other", "exp": exp}, "", true},
		{"expired", "k1", jwt.MapClaims{"sub": "u1", "iss": testIssuer, "exp": time.Now().Add(-time.Hour).Unix()}, "", true},
		{"no subject", "k1", jwt.MapClaims{"iss": testIssuer, "exp": exp}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := Subject(signedToken(t, priv, tt.kid, tt.claims), keys, testIssuer)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSub, sub)
		})
	}
}

func TestCognitoUrls(t *testing.T) {
	assert.Equal(t,
		"https://cognito-idp.us-east-1.amazonaws.com/pool/.well-known/jwks.json",
		CognitoKeysUrl("us-east-1", "pool"),
	)
}
