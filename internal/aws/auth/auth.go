package auth

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingKid = errors.New("invalid token: missing kid")
	ErrUnknownKid = errors.New("invalid token: unknown kid")
	ErrNoSubject  = errors.New("invalid token: subject not found")
)

// Struct for Cognito's JWKS JSON response
type jwk struct {
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

func CognitoIssuer(region, userPoolId string) string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, userPoolId)
}

func CognitoKeysUrl(region, userPoolId string) string {
	return CognitoIssuer(region, userPoolId) + "/.well-known/jwks.json"
}

func LoadCognitoPublicKeys(url string) (map[string]*rsa.PublicKey, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch jwks: status %d", resp.StatusCode)
	}

	var set jwks
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to decode jwks: %w", err)
	}
	return parsePublicKeys(set.Keys)
}

// parsePublicKeys builds RSA keys from base64url encoded modulus and exponent.
func parsePublicKeys(keys []jwk) (map[string]*rsa.PublicKey, error) {
	out := make(map[string]*rsa.PublicKey, len(keys))
	for _, key := range keys {
		nBytes, err := base64.RawURLEncoding.DecodeString(key.N)
		if err != nil {
			return nil, fmt.Errorf("invalid modulus for kid %s: %w", key.Kid, err)
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(key.E)
		if err != nil {
			return nil, fmt.Errorf("invalid exponent for kid %s: %w", key.Kid, err)
		}
		out[key.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(nBytes),
			E: int(new(big.Int).SetBytes(eBytes).Int64()),
		}
	}
	return out, nil
}

func ValidateJwt(
	tokenString string,
	keys map[string]*rsa.PublicKey,
	issuer string,
) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, ErrMissingKid
		}
		if key, found := keys[kid]; found {
			return key, nil
		}
		return nil, ErrUnknownKid
	},
		jwt.WithIssuer(issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
	)
}

// Subject validates the token and returns its sub claim.
func Subject(
	tokenString string,
	keys map[string]*rsa.PublicKey,
	issuer string,
) (string, error) {
	token, err := ValidateJwt(tokenString, keys, issuer)
	if err != nil {
		return "", err
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrNoSubject
	}
	return sub, nil
}
