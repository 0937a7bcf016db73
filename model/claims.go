package model

import "github.com/golang-jwt/jwt/v5"

// AccessClaims is the signed claim set carried by access tokens.
// The subject is the user ID.
type AccessClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}
