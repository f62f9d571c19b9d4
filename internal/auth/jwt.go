package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSigner signs and verifies access JWTs with a shared HMAC secret.
// The algorithm is configurable but fixed per deployment.
type TokenSigner struct {
	secret []byte
	method jwt.SigningMethod
	issuer string
	now    func() time.Time
}

// AccessClaims is the signed payload: jti, sub, iat, exp (plus issuer).
type AccessClaims struct {
	jwt.RegisteredClaims
}

// NewTokenSigner builds a signer for the given secret and algorithm
// name (HS256, HS384 or HS512).
func NewTokenSigner(secret, alg, issuer string) (*TokenSigner, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	var method jwt.SigningMethod
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("auth: unsupported signing algorithm %q", alg)
	}
	return &TokenSigner{
		secret: []byte(secret),
		method: method,
		issuer: strings.TrimSpace(issuer),
		now:    time.Now,
	}, nil
}

// Sign produces a compact JWT for the subject/token-id pair.
func (s *TokenSigner) Sign(subject, tokenID string, issuedAt, expiresAt time.Time) (string, error) {
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt.UTC()),
			ExpiresAt: jwt.NewNumericDate(expiresAt.UTC()),
		},
	}
	token := jwt.NewWithClaims(s.method, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature and standard claims. Failures collapse into
// the two authentication errors the boundary knows how to present.
func (s *TokenSigner) Parse(raw string) (*AccessClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMissingToken
	}
	parsed, err := jwt.ParseWithClaims(raw, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != s.method {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{s.method.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.ID) == "" {
		return nil, ErrInvalidToken
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
