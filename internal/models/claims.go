package models

import "github.com/golang-jwt/jwt/v5"

// UserClaims is the JWT payload attached to authenticated requests.
type UserClaims struct {
	UserID       uint   `json:"user_id"`
	Role         string `json:"role"`
	TokenVersion int    `json:"token_version"`
	jwt.RegisteredClaims
}
