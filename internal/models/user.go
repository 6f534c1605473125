package models

import "time"

// User is the identity an Account belongs to. Registration and login live in
// the auth layer; the ledger only reads id and email.
type User struct {
	ID        string    `json:"id" example:"5f1c2d9e-8b7a-4c1e-9d3f-2a6b7c8d9e0f"` // User ID
	Email     string    `json:"email" example:"user@example.com"`                   // User email
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
