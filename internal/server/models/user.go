// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is the stored identity record. PasswordHash never leaves the
// server; use the HTTP layer's response types for serialization.
type User struct {
	ID           string
	Name         string
	Email        string
	Age          int
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
