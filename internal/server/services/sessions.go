// Package services contains the server-side business logic: sessions, user
// accounts and owner-scoped tasks.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/taskapp/internal/common"
	"github.com/dmitrijs2005/taskapp/internal/dbx"
	"github.com/dmitrijs2005/taskapp/internal/server/auth"
	"github.com/dmitrijs2005/taskapp/internal/server/config"
	"github.com/dmitrijs2005/taskapp/internal/server/models"
	"github.com/dmitrijs2005/taskapp/internal/server/repositories/repomanager"
)

// SessionService issues and revokes bearer tokens. A token is accepted only
// while it is both correctly signed and still listed for its user.
type SessionService struct {
	db                    *sql.DB
	repomanager           repomanager.RepositoryManager
	jwtSecret             []byte
	tokenValidityDuration time.Duration
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *SessionService {
	return &SessionService{
		db:                    db,
		repomanager:           m,
		jwtSecret:             []byte(cfg.SecretKey),
		tokenValidityDuration: cfg.TokenValidityDuration,
	}
}

// IssueToken signs a new token for userID and appends it to the user's
// active list.
func (s *SessionService) IssueToken(ctx context.Context, userID string) (string, error) {
	return s.issueToken(ctx, s.db, userID)
}

func (s *SessionService) issueToken(ctx context.Context, db dbx.DBTX, userID string) (string, error) {
	token, err := auth.GenerateToken(userID, s.jwtSecret, s.tokenValidityDuration)
	if err != nil {
		return "", fmt.Errorf("error generating token: %w", err)
	}

	if err := s.repomanager.Tokens(db).Add(ctx, userID, token); err != nil {
		return "", fmt.Errorf("error saving token: %w", err)
	}

	return token, nil
}

// ValidateToken checks the signature (and expiry, if any) and returns the
// user id the token was issued for.
func (s *SessionService) ValidateToken(token string) (string, error) {
	userID, err := auth.GetUserIDFromToken(token, s.jwtSecret)
	if err != nil {
		return "", common.ErrorUnauthorized
	}
	return userID, nil
}

// Revoke removes a single token (logout on one device).
func (s *SessionService) Revoke(ctx context.Context, userID string, token string) error {
	return s.repomanager.Tokens(s.db).Delete(ctx, userID, token)
}

// RevokeAll removes every token of the user.
func (s *SessionService) RevokeAll(ctx context.Context, userID string) error {
	_, err := s.repomanager.Tokens(s.db).DeleteAll(ctx, userID)
	return err
}

// Authenticate resolves a bearer token to its user. Every failure, including
// a revoked token or a deleted user, is reported as ErrorUnauthorized; store
// failures are returned wrapped.
func (s *SessionService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByIDAndToken(ctx, userID, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error looking up session: %w", err)
	}

	return user, nil
}
