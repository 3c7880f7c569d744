package jwttoken

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"time"

	"idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultAudience is the audience stamped on and expected from caller tokens.
const DefaultAudience = "idregistry"

// Claims represents the JWT claims for caller access tokens. Subject is the
// caller address; PublicKey carries the base64-encoded Ed25519 key that
// signed the token.
type Claims struct {
	PublicKey string `json:"pub"`
	jwt.RegisteredClaims
}

// JWTService issues and validates self-signed caller tokens. A token is
// verified with the key embedded in its pub claim; trust comes from the
// subject check, which requires the address derived from that key to equal
// the claimed subject. There is no server-side signing secret.
type JWTService struct {
	audience string
}

func NewJWTService(audience string) *JWTService {
	if audience == "" {
		audience = DefaultAudience
	}
	return &JWTService{audience: audience}
}

func (s *JWTService) GenerateAccessToken(key ed25519.PrivateKey, expiresIn time.Duration) (string, error) {
	pub, ok := key.Public().(ed25519.PublicKey)
	if !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "not an ed25519 key")
	}
	addr, err := domain.DeriveAddress(pub)
	if err != nil {
		return "", err
	}
	newToken := jwt.NewWithClaims(jwt.SigningMethodEdDSA, Claims{
		PublicKey: base64.StdEncoding.EncodeToString(pub),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   addr.String(),
			Issuer:    addr.String(),
			Audience:  []string{s.audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(key)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		claims, ok := token.Claims.(*Claims)
		if !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		raw, decErr := base64.StdEncoding.DecodeString(claims.PublicKey)
		if decErr != nil || len(raw) != ed25519.PublicKeySize {
			return nil, jwt.ErrTokenUnverifiable
		}
		return ed25519.PublicKey(raw), nil
	}, jwt.WithAudience(s.audience))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	// Proof of possession: the key that signed the token must be the key
	// behind the claimed address.
	raw, err := base64.StdEncoding.DecodeString(claims.PublicKey)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	addr, err := domain.DeriveAddress(ed25519.PublicKey(raw))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if addr.String() != claims.Subject {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token subject does not match signing key")
	}

	return claims, nil
}

func (s *JWTService) ExtractCallerFromToken(tokenString string) (domain.Address, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return domain.ZeroAddress, err
	}
	return domain.ParseAddress(claims.Subject)
}
