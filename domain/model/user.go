package model

import "github.com/golang-jwt/jwt"

// User is the account record the auth middleware resolves tokens against.
// Accounts are created by the surrounding product; this service only reads.
type User struct {
	ID       int64  `json:"id"`
	UserName string `json:"user_name"`
	Name     string `json:"name"`
}

type UserClaims struct {
	jwt.StandardClaims
	UserName string `json:"user_name"`
}
