package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the access token payload issued by the portal's
// identity provider.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// EditSessionClaims authorizes exactly one villager edit after a verified OTP.
// The registered ID (jti) is consumed when the edit is submitted.
type EditSessionClaims struct {
	VillagerID   string `json:"vid"`
	MobileNumber string `json:"mob"`
	jwt.RegisteredClaims
}
