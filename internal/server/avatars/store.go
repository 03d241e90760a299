package avatars

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/taskapp/internal/server/repositories/repomanager"
)

// Store keeps one PNG avatar per user. Get on a user without an avatar
// returns common.ErrorNotFound.
type Store interface {
	Put(ctx context.Context, userID string, png []byte) error
	Get(ctx context.Context, userID string) ([]byte, error)
	Delete(ctx context.Context, userID string) error
}

// DBStore keeps avatars in the users.avatar column.
type DBStore struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewDBStore(db *sql.DB, m repomanager.RepositoryManager) *DBStore {
	return &DBStore{db: db, repomanager: m}
}

func (s *DBStore) Put(ctx context.Context, userID string, png []byte) error {
	return s.repomanager.Users(s.db).SaveAvatar(ctx, userID, png)
}

func (s *DBStore) Get(ctx context.Context, userID string) ([]byte, error) {
	return s.repomanager.Users(s.db).GetAvatar(ctx, userID)
}

func (s *DBStore) Delete(ctx context.Context, userID string) error {
	return s.repomanager.Users(s.db).SaveAvatar(ctx, userID, nil)
}
