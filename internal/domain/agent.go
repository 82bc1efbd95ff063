package domain

import "time"

// Agent is a human support operator working the escalated-ticket queue.
type Agent struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
