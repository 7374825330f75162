package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidReference = errors.New("invalid reference token")
	ErrReferenceExpired = errors.New("reference token has expired")
)

// ReferenceClaims are the claims carried by a signed reference token.
// The JTI holds the opaque secret that the server hashes to find its record.
type ReferenceClaims struct {
	jwt.RegisteredClaims
}

// JWTAuthenticator signs and validates HS256 reference tokens for a single
// issuer/audience pair.
type JWTAuthenticator struct {
	issuer string
	secret []byte
}

// NewJWTAuthenticator creates a new JWTAuthenticator instance.
func NewJWTAuthenticator(issuer, secret string) *JWTAuthenticator {
	return &JWTAuthenticator{
		issuer: issuer,
		secret: []byte(secret),
	}
}

// IssueReference wraps jti into a signed token valid until expiresAt.
func (a *JWTAuthenticator) IssueReference(jti, subject string, issuedAt, expiresAt time.Time) (string, error) {
	claims := ReferenceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   subject,
			Issuer:    a.issuer,
			Audience:  jwt.ClaimStrings{a.issuer},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(a.secret)
}

// ParseReference validates the signature, issuer, audience and expiry of a
// reference token and returns its JTI.
func (a *JWTAuthenticator) ParseReference(tokenString string) (string, error) {
	var claims ReferenceClaims

	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		return a.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithAudience(a.issuer),
		jwt.WithIssuer(a.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrReferenceExpired
		}
		return "", fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}

	if !token.Valid || claims.ID == "" {
		return "", ErrInvalidReference
	}

	return claims.ID, nil
}
