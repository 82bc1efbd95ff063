package domain

import "time"

// Customer is the registered vehicle owner the gateway authenticates.
// Profile values are higher-trust than anything extracted from free text.
type Customer struct {
	ID           string
	Name         string
	Phone        string
	VehicleModel *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
