package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the JWT claims issued on login
type TokenClaims struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}
