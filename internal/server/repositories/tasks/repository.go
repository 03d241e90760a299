// Package tasks persists tasks. Every read and write other than Create is
// scoped by owner, so a task id belonging to another user behaves exactly like
// an id that does not exist.
package tasks

import (
	"context"

	"github.com/dmitrijs2005/taskapp/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByIDAndOwner(ctx context.Context, id string, ownerID string) (*models.Task, error)
	List(ctx context.Context, ownerID string, filter models.TaskFilter) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	DeleteByIDAndOwner(ctx context.Context, id string, ownerID string) (*models.Task, error)
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
}
