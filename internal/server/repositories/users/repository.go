// Package users declares the credential store contract and its PostgreSQL
// implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/taskapp/internal/server/models"
)

// Repository persists user records. Lookups that match nothing return
// common.ErrorNotFound; a duplicate email returns common.ErrorAlreadyExists.
type Repository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByIDAndToken returns the user only while token is in its active list.
	GetByIDAndToken(ctx context.Context, id string, token string) (*models.User, error)

	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error

	// SaveAvatar stores the image bytes; nil clears the avatar.
	SaveAvatar(ctx context.Context, id string, data []byte) error
	GetAvatar(ctx context.Context, id string) ([]byte, error)
}
