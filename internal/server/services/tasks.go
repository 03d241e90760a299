package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/taskapp/internal/common"
	"github.com/dmitrijs2005/taskapp/internal/server/models"
	"github.com/dmitrijs2005/taskapp/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

var taskUpdatableFields = []string{"description", "completed"}

// CreateTaskInput carries the fields accepted when creating a task.
type CreateTaskInput struct {
	Description string
	Completed   bool
}

// TaskService is owner-scoped CRUD over tasks. A task id that is malformed,
// unknown or owned by someone else always yields common.ErrorNotFound.
type TaskService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewTaskService(db *sql.DB, m repomanager.RepositoryManager) *TaskService {
	return &TaskService{db: db, repomanager: m}
}

func (s *TaskService) Create(ctx context.Context, ownerID string, in CreateTaskInput) (*models.Task, error) {
	task := &models.Task{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Description: strings.TrimSpace(in.Description),
		Completed:   in.Completed,
	}

	if err := collect(checkDescription(task.Description)); err != nil {
		return nil, err
	}

	if err := s.repomanager.Tasks(s.db).Create(ctx, task); err != nil {
		return nil, fmt.Errorf("error creating task: %w", err)
	}
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, ownerID, id string) (*models.Task, error) {
	if !validID(id) {
		return nil, common.ErrorNotFound
	}
	return s.repomanager.Tasks(s.db).GetByIDAndOwner(ctx, id, ownerID)
}

func (s *TaskService) List(ctx context.Context, ownerID string, filter models.TaskFilter) ([]*models.Task, error) {
	return s.repomanager.Tasks(s.db).List(ctx, ownerID, filter)
}

// Update applies a partial update limited to description and completed.
// Unknown keys are rejected before the task is even looked up.
func (s *TaskService) Update(ctx context.Context, ownerID, id string, fields map[string]json.RawMessage) (*models.Task, error) {
	if err := rejectUnknown(fields, taskUpdatableFields); err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, common.ErrorNotFound
	}

	repo := s.repomanager.Tasks(s.db)

	task, err := repo.GetByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	var checks []*common.FieldError
	if _, ok := fields["description"]; ok {
		var v string
		if fe := decodeField(fields, "description", &v); fe != nil {
			checks = append(checks, fe)
		} else {
			task.Description = strings.TrimSpace(v)
			checks = append(checks, checkDescription(task.Description))
		}
	}
	if _, ok := fields["completed"]; ok {
		var v bool
		if fe := decodeField(fields, "completed", &v); fe != nil {
			checks = append(checks, fe)
		} else {
			task.Completed = v
		}
	}
	if err := collect(checks...); err != nil {
		return nil, err
	}

	if err := repo.Update(ctx, task); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error updating task: %w", err)
	}
	return task, nil
}

// Delete removes an owned task and returns it.
func (s *TaskService) Delete(ctx context.Context, ownerID, id string) (*models.Task, error) {
	if !validID(id) {
		return nil, common.ErrorNotFound
	}
	return s.repomanager.Tasks(s.db).DeleteByIDAndOwner(ctx, id, ownerID)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
