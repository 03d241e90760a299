package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/taskapp/internal/common"
	"github.com/dmitrijs2005/taskapp/internal/dbx"
	"github.com/dmitrijs2005/taskapp/internal/logging"
	"github.com/dmitrijs2005/taskapp/internal/server/config"
	"github.com/dmitrijs2005/taskapp/internal/server/mailer"
	"github.com/dmitrijs2005/taskapp/internal/server/models"
	"github.com/dmitrijs2005/taskapp/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/taskapp/internal/server/repositories/tokens"
	"github.com/dmitrijs2005/taskapp/internal/server/repositories/users"
)

// --- in-memory store shared by the fake repositories ---

type memStore struct {
	mu     sync.Mutex
	users  map[string]*models.User
	tokens map[string][]string
	tasks  map[string]*models.Task

	createUserErr   error
	addTokenErr     error
	deleteTasksErr  error
	getByEmailErr   error
	authLookupErr   error
	updateUserErr   error
	deleteUserCalls int
}

func newMemStore() *memStore {
	return &memStore{
		users:  map[string]*models.User{},
		tokens: map[string][]string{},
		tasks:  map[string]*models.Task{},
	}
}

type memUsers struct{ s *memStore }

func (r memUsers) Create(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createUserErr != nil {
		return r.s.createUserErr
	}
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return common.ErrorAlreadyExists
		}
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	r.s.users[u.ID] = &cp
	return nil
}

func (r memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.getByEmailErr != nil {
		return nil, r.s.getByEmailErr
	}
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) GetByIDAndToken(_ context.Context, id, token string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.authLookupErr != nil {
		return nil, r.s.authLookupErr
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	for _, t := range r.s.tokens[id] {
		if t == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) Update(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.updateUserErr != nil {
		return r.s.updateUserErr
	}
	if _, ok := r.s.users[u.ID]; !ok {
		return common.ErrorNotFound
	}
	for id, existing := range r.s.users {
		if id != u.ID && existing.Email == u.Email {
			return common.ErrorAlreadyExists
		}
	}
	u.UpdatedAt = time.Now()
	cp := *u
	r.s.users[u.ID] = &cp
	return nil
}

func (r memUsers) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.deleteUserCalls++
	if _, ok := r.s.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.users, id)
	return nil
}

func (r memUsers) SaveAvatar(context.Context, string, []byte) error { return nil }
func (r memUsers) GetAvatar(context.Context, string) ([]byte, error) {
	return nil, common.ErrorNotFound
}

type memTokens struct{ s *memStore }

func (r memTokens) Add(_ context.Context, userID, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.addTokenErr != nil {
		return r.s.addTokenErr
	}
	r.s.tokens[userID] = append(r.s.tokens[userID], token)
	return nil
}

func (r memTokens) Delete(_ context.Context, userID, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := r.s.tokens[userID]
	out := list[:0]
	for _, t := range list {
		if t != token {
			out = append(out, t)
		}
	}
	r.s.tokens[userID] = out
	return nil
}

func (r memTokens) DeleteAll(_ context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := int64(len(r.s.tokens[userID]))
	delete(r.s.tokens, userID)
	return n, nil
}

type memTasks struct{ s *memStore }

func (r memTasks) Create(_ context.Context, t *models.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	r.s.tasks[t.ID] = &cp
	return nil
}

func (r memTasks) GetByIDAndOwner(_ context.Context, id, owner string) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tasks[id]
	if !ok || t.OwnerID != owner {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (r memTasks) List(_ context.Context, owner string, f models.TaskFilter) ([]*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Task{}
	for _, t := range r.s.tasks {
		if t.OwnerID != owner {
			continue
		}
		if f.Completed != nil && t.Completed != *f.Completed {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memTasks) Update(_ context.Context, t *models.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.tasks[t.ID]
	if !ok || existing.OwnerID != t.OwnerID {
		return common.ErrorNotFound
	}
	t.UpdatedAt = time.Now()
	cp := *t
	r.s.tasks[t.ID] = &cp
	return nil
}

func (r memTasks) DeleteByIDAndOwner(_ context.Context, id, owner string) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tasks[id]
	if !ok || t.OwnerID != owner {
		return nil, common.ErrorNotFound
	}
	delete(r.s.tasks, id)
	return t, nil
}

func (r memTasks) DeleteByOwner(_ context.Context, owner string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.deleteTasksErr != nil {
		return 0, r.s.deleteTasksErr
	}
	var n int64
	for id, t := range r.s.tasks {
		if t.OwnerID == owner {
			delete(r.s.tasks, id)
			n++
		}
	}
	return n, nil
}

// fakeRepoManager vends the in-memory repositories and records which handle
// each call was bound to.
type fakeRepoManager struct {
	s *memStore

	mu        sync.Mutex
	tasksDBs  []dbx.DBTX
	tokensDBs []dbx.DBTX
	usersDBs  []dbx.DBTX
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository {
	m.mu.Lock()
	m.usersDBs = append(m.usersDBs, db)
	m.mu.Unlock()
	return memUsers{m.s}
}

func (m *fakeRepoManager) Tokens(db dbx.DBTX) tokens.Repository {
	m.mu.Lock()
	m.tokensDBs = append(m.tokensDBs, db)
	m.mu.Unlock()
	return memTokens{m.s}
}

func (m *fakeRepoManager) Tasks(db dbx.DBTX) tasks.Repository {
	m.mu.Lock()
	m.tasksDBs = append(m.tasksDBs, db)
	m.mu.Unlock()
	return memTasks{m.s}
}

// --- collaborators ---

type fakeAvatars struct {
	mu      sync.Mutex
	data    map[string][]byte
	putErr  error
	deleted []string
}

func newFakeAvatars() *fakeAvatars { return &fakeAvatars{data: map[string][]byte{}} }

func (f *fakeAvatars) Put(_ context.Context, id string, png []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.data[id] = png
	return nil
}

func (f *fakeAvatars) Get(_ context.Context, id string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.data[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return d, nil
}

func (f *fakeAvatars) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	delete(f.data, id)
	return nil
}

type fakeMail struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (f *fakeMail) Enqueue(_ context.Context, m mailer.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m)
}

func (f *fakeMail) messages() []mailer.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mailer.Message(nil), f.sent...)
}

// --- wiring ---

type fixture struct {
	db       *sql.DB
	mock     sqlmock.Sqlmock
	store    *memStore
	rm       *fakeRepoManager
	sessions *SessionService
	users    *UserService
	tasks    *TaskService
	avatars  *fakeAvatars
	mail     *fakeMail
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:      "test-secret",
		BcryptCost:     4,
		AvatarMaxBytes: 2_000_000,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := testConfig()
	store := newMemStore()
	rm := &fakeRepoManager{s: store}
	sessions := NewSessionService(db, rm, cfg)
	av := newFakeAvatars()
	mail := &fakeMail{}

	return &fixture{
		db:       db,
		mock:     mock,
		store:    store,
		rm:       rm,
		sessions: sessions,
		users:    NewUserService(db, rm, sessions, av, mail, cfg, logging.Nop{}),
		tasks:    NewTaskService(db, rm),
		avatars:  av,
		mail:     mail,
	}
}

// register creates a user through the service, expecting one transaction.
func (f *fixture) register(t *testing.T, name, email string) (*models.User, string) {
	t.Helper()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	u, tok, err := f.users.Register(context.Background(), RegisterInput{Name: name, Email: email, Password: "s3cret!!"})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	return u, tok
}
