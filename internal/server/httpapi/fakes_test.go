package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/taskapp/internal/common"
	"github.com/dmitrijs2005/taskapp/internal/server/models"
	"github.com/dmitrijs2005/taskapp/internal/server/services"
)

// fakeBackend implements Authenticator, UserService and TaskService in memory
// with just enough behaviour to drive the handlers.
type fakeBackend struct {
	mu      sync.Mutex
	seq     int
	users   map[string]*models.User
	pass    map[string]string
	tokens  map[string]string // token -> user id
	tasks   map[string]*models.Task
	avatars map[string][]byte

	lastFilter   models.TaskFilter
	lastFilename string
	failAuth     error
	failTasks    error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		users:   map[string]*models.User{},
		pass:    map[string]string{},
		tokens:  map[string]string{},
		tasks:   map[string]*models.Task{},
		avatars: map[string][]byte{},
	}
}

func (b *fakeBackend) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s-%d", prefix, b.seq)
}

func (b *fakeBackend) Authenticate(_ context.Context, token string) (*models.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failAuth != nil {
		return nil, b.failAuth
	}
	id, ok := b.tokens[token]
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	u, ok := b.users[id]
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	cp := *u
	return &cp, nil
}

func (b *fakeBackend) issue(userID string) string {
	tok := b.nextID("tok")
	b.tokens[tok] = userID
	return tok
}

func (b *fakeBackend) Register(_ context.Context, in services.RegisterInput) (*models.User, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if in.Name == "" {
		return nil, "", common.NewValidationError(common.FieldError{Field: "name", Message: "name is required"})
	}
	now := time.Now()
	u := &models.User{ID: b.nextID("user"), Name: in.Name, Email: in.Email, Age: in.Age, PasswordHash: "$2a$hash", CreatedAt: now, UpdatedAt: now}
	b.users[u.ID] = u
	b.pass[in.Email] = in.Password
	return u, b.issue(u.ID), nil
}

func (b *fakeBackend) Login(_ context.Context, email, password string) (*models.User, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.Email == email && b.pass[email] == password {
			return u, b.issue(u.ID), nil
		}
	}
	return nil, "", services.ErrUnableToLogin
}

func (b *fakeBackend) Logout(_ context.Context, _ string, token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tokens, token)
	return nil
}

func (b *fakeBackend) LogoutAll(_ context.Context, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for tok, id := range b.tokens {
		if id == userID {
			delete(b.tokens, tok)
		}
	}
	return nil
}

func (b *fakeBackend) UpdateProfile(_ context.Context, user *models.User, fields map[string]json.RawMessage) (*models.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k := range fields {
		if k != "name" && k != "age" && k != "email" && k != "password" {
			return nil, common.NewValidationError(common.FieldError{Field: k, Message: "field cannot be updated"})
		}
	}
	u := b.users[user.ID]
	if v, ok := fields["name"]; ok {
		_ = json.Unmarshal(v, &u.Name)
	}
	cp := *u
	return &cp, nil
}

func (b *fakeBackend) Delete(_ context.Context, user *models.User) (*models.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.users, user.ID)
	for id, t := range b.tasks {
		if t.OwnerID == user.ID {
			delete(b.tasks, id)
		}
	}
	return user, nil
}

func (b *fakeBackend) SetAvatar(_ context.Context, userID, filename string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastFilename = filename
	b.avatars[userID] = data
	return nil
}

func (b *fakeBackend) ClearAvatar(_ context.Context, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.avatars, userID)
	return nil
}

func (b *fakeBackend) GetAvatar(_ context.Context, userID string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.avatars[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return d, nil
}

func (b *fakeBackend) Create(_ context.Context, ownerID string, in services.CreateTaskInput) (*models.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failTasks != nil {
		return nil, b.failTasks
	}
	if in.Description == "" {
		return nil, common.NewValidationError(common.FieldError{Field: "description", Message: "description is required"})
	}
	now := time.Now()
	t := &models.Task{ID: b.nextID("task"), OwnerID: ownerID, Description: in.Description, Completed: in.Completed, CreatedAt: now, UpdatedAt: now}
	b.tasks[t.ID] = t
	cp := *t
	return &cp, nil
}

func (b *fakeBackend) Get(_ context.Context, ownerID, id string) (*models.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (b *fakeBackend) List(_ context.Context, ownerID string, f models.TaskFilter) ([]*models.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastFilter = f
	if b.failTasks != nil {
		return nil, b.failTasks
	}
	if f.SortBy != "" && f.SortBy != models.SortByCreatedAt && f.SortBy != models.SortByDescription {
		return nil, common.NewValidationError(common.FieldError{Field: "sortBy", Message: "unsupported sort field"})
	}
	var out []*models.Task
	for _, t := range b.tasks {
		if t.OwnerID == ownerID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (b *fakeBackend) Update(_ context.Context, ownerID, id string, fields map[string]json.RawMessage) (*models.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k := range fields {
		if k != "description" && k != "completed" {
			return nil, common.NewValidationError(common.FieldError{Field: k, Message: "field cannot be updated"})
		}
	}
	t, ok := b.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return nil, common.ErrorNotFound
	}
	if v, ok := fields["completed"]; ok {
		_ = json.Unmarshal(v, &t.Completed)
	}
	if v, ok := fields["description"]; ok {
		_ = json.Unmarshal(v, &t.Description)
	}
	cp := *t
	return &cp, nil
}

// Delete on the task side; the user-side Delete above takes *models.User.
type fakeTasks struct{ *fakeBackend }

func (f fakeTasks) Delete(_ context.Context, ownerID, id string) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return nil, common.ErrorNotFound
	}
	delete(f.tasks, id)
	return t, nil
}

var errBoom = errors.New("boom")

func registerInputFor(name string) services.RegisterInput {
	return services.RegisterInput{Name: name, Email: name + "@example.com", Password: "s3cret!!"}
}
