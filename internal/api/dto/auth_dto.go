package dto

import "time"

// CustomerLoginRequest payload.
type CustomerLoginRequest struct {
	Phone string `json:"phone"`
}

// AgentLoginRequest payload.
type AgentLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse returns an issued bearer token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Subject   string    `json:"subject"`
	SubjectID string    `json:"subject_id"`
	Name      string    `json:"name"`
}
