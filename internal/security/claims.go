// Package security implements the capability check: a bearer token is
// exchanged for an Identity (user id, role, organization), and access rules
// are evaluated against that identity. Token issuance lives elsewhere.
package security

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"vidscreen/internal/models"
)

type AccessClaims struct {
	UserID       string `json:"uid"`
	Role         string `json:"role"`
	Organization string `json:"org"`
	jwt.RegisteredClaims
}

func ParseAccessToken(tokenStr string, secret string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*AccessClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

func (c *AccessClaims) Identity() models.Identity {
	return models.Identity{
		UserID:       c.UserID,
		Role:         models.Role(c.Role),
		Organization: c.Organization,
	}
}
