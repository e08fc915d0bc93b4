package models

import "time"

// OTPChallenge is the server-side half of an edit challenge. Only the bcrypt
// hash of the code is kept.
type OTPChallenge struct {
	MobileNumber string    `json:"mobileNumber"`
	VillagerID   string    `json:"villagerId"`
	CodeHash     string    `json:"codeHash"`
	IssuedAt     time.Time `json:"issuedAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}
