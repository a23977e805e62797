package identity

import (
	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Identity is the authenticated caller, trusted as-is. Issuing tokens
// and managing accounts happen elsewhere; this core only verifies.
type Identity struct {
	UserID int64
	Level  string
}

type Claims struct {
	UserID int64  `json:"user_id"`
	Level  string `json:"level"`
	jwt.RegisteredClaims
}

type Provider struct {
	secretKey []byte
}

func NewProvider(secretKey string) *Provider {
	return &Provider{secretKey: []byte(secretKey)}
}

func (p *Provider) Verify(tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}

	return &Identity{UserID: claims.UserID, Level: claims.Level}, nil
}
