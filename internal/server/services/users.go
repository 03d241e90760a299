package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/taskapp/internal/common"
	"github.com/dmitrijs2005/taskapp/internal/dbx"
	"github.com/dmitrijs2005/taskapp/internal/logging"
	"github.com/dmitrijs2005/taskapp/internal/server/avatars"
	"github.com/dmitrijs2005/taskapp/internal/server/config"
	"github.com/dmitrijs2005/taskapp/internal/server/mailer"
	"github.com/dmitrijs2005/taskapp/internal/server/models"
	"github.com/dmitrijs2005/taskapp/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// ErrUnableToLogin is returned for both an unknown email and a wrong
// password.
var ErrUnableToLogin = fmt.Errorf("unable to login: %w", common.ErrorUnauthorized)

var userUpdatableFields = []string{"name", "email", "age", "password"}

// MailQueue accepts messages for asynchronous delivery.
type MailQueue interface {
	Enqueue(ctx context.Context, msg mailer.Message)
}

// RegisterInput carries the fields accepted at sign-up.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Age      int
}

// UserService owns the account lifecycle: registration, login/logout,
// profile updates, deletion and avatars.
type UserService struct {
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	sessions       *SessionService
	avatars        avatars.Store
	mail           MailQueue
	log            logging.Logger
	bcryptCost     int
	avatarMaxBytes int64

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, sessions *SessionService,
	store avatars.Store, mail MailQueue, cfg *config.Config, log logging.Logger) *UserService {
	return &UserService{
		db:             db,
		repomanager:    m,
		sessions:       sessions,
		avatars:        store,
		mail:           mail,
		log:            log.With("module", "users"),
		bcryptCost:     cfg.BcryptCost,
		avatarMaxBytes: cfg.AvatarMaxBytes,
	}
}

// Register validates and stores a new user, issues its first token and queues
// the welcome mail. The user row and the token are written in one transaction.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	user := &models.User{
		ID:    uuid.NewString(),
		Name:  strings.TrimSpace(in.Name),
		Email: normalizeEmail(in.Email),
		Age:   in.Age,
	}
	password := strings.TrimSpace(in.Password)

	if err := collect(
		checkName(user.Name),
		checkEmail(user.Email),
		checkAge(user.Age),
		checkPasswordRules(password),
	); err != nil {
		return nil, "", err
	}

	hash, err := hashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("error hashing password: %w", err)
	}
	user.PasswordHash = hash

	var token string
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).Create(ctx, user); err != nil {
			return err
		}
		var issueErr error
		token, issueErr = s.sessions.issueToken(ctx, tx, user.ID)
		return issueErr
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, "", duplicateEmail()
		}
		return nil, "", fmt.Errorf("error creating user: %w", err)
	}

	s.mail.Enqueue(ctx, mailer.WelcomeMessage(user.Email, user.Name))

	return user, token, nil
}

// FindByCredentials returns the user owning email if password matches.
func (s *UserService) FindByCredentials(ctx context.Context, email, password string) (*models.User, error) {
	password = strings.TrimSpace(password)

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// keep the response time close to the wrong-password path
			_, _ = checkPassword(s.getDummyHash(), password)
			return nil, ErrUnableToLogin
		}
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	ok, err := checkPassword(user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("error checking password: %w", err)
	}
	if !ok {
		return nil, ErrUnableToLogin
	}

	return user, nil
}

// Login verifies credentials and issues a new token.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.FindByCredentials(ctx, email, password)
	if err != nil {
		return nil, "", err
	}

	token, err := s.sessions.IssueToken(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

func (s *UserService) Logout(ctx context.Context, userID, token string) error {
	return s.sessions.Revoke(ctx, userID, token)
}

func (s *UserService) LogoutAll(ctx context.Context, userID string) error {
	return s.sessions.RevokeAll(ctx, userID)
}

// UpdateProfile applies a partial update. Keys outside name, email, age and
// password are rejected before anything is written. The password is
// re-hashed only when it is part of the update.
func (s *UserService) UpdateProfile(ctx context.Context, user *models.User, fields map[string]json.RawMessage) (*models.User, error) {
	if err := rejectUnknown(fields, userUpdatableFields); err != nil {
		return nil, err
	}

	updated := *user
	var checks []*common.FieldError
	var password string
	passwordChanged := false

	if _, ok := fields["name"]; ok {
		var v string
		if fe := decodeField(fields, "name", &v); fe != nil {
			checks = append(checks, fe)
		} else {
			updated.Name = strings.TrimSpace(v)
			checks = append(checks, checkName(updated.Name))
		}
	}
	if _, ok := fields["email"]; ok {
		var v string
		if fe := decodeField(fields, "email", &v); fe != nil {
			checks = append(checks, fe)
		} else {
			updated.Email = normalizeEmail(v)
			checks = append(checks, checkEmail(updated.Email))
		}
	}
	if _, ok := fields["age"]; ok {
		var v int
		if fe := decodeField(fields, "age", &v); fe != nil {
			checks = append(checks, fe)
		} else {
			updated.Age = v
			checks = append(checks, checkAge(updated.Age))
		}
	}
	if _, ok := fields["password"]; ok {
		var v string
		if fe := decodeField(fields, "password", &v); fe != nil {
			checks = append(checks, fe)
		} else {
			password = strings.TrimSpace(v)
			passwordChanged = true
			checks = append(checks, checkPasswordRules(password))
		}
	}

	if err := collect(checks...); err != nil {
		return nil, err
	}

	if passwordChanged {
		hash, err := hashPassword(password, s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("error hashing password: %w", err)
		}
		updated.PasswordHash = hash
	}

	if err := s.repomanager.Users(s.db).Update(ctx, &updated); err != nil {
		switch {
		case errors.Is(err, common.ErrorAlreadyExists):
			return nil, duplicateEmail()
		case errors.Is(err, common.ErrorNotFound):
			return nil, common.ErrorNotFound
		default:
			return nil, fmt.Errorf("error updating user: %w", err)
		}
	}

	return &updated, nil
}

// Delete removes the user together with its tasks and tokens in a single
// transaction, then drops the avatar and queues the cancellation mail.
func (s *UserService) Delete(ctx context.Context, user *models.User) (*models.User, error) {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Tasks(tx).DeleteByOwner(ctx, user.ID); err != nil {
			return fmt.Errorf("error deleting tasks: %w", err)
		}
		if _, err := s.repomanager.Tokens(tx).DeleteAll(ctx, user.ID); err != nil {
			return fmt.Errorf("error deleting tokens: %w", err)
		}
		return s.repomanager.Users(tx).Delete(ctx, user.ID)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error deleting user: %w", err)
	}

	if err := s.avatars.Delete(ctx, user.ID); err != nil && !errors.Is(err, common.ErrorNotFound) {
		s.log.Warn(ctx, "avatar cleanup failed", "user_id", user.ID, "error", err)
	}

	s.mail.Enqueue(ctx, mailer.CancellationMessage(user.Email, user.Name))

	return user, nil
}

// SetAvatar checks the upload, normalizes it to a 250x250 PNG and stores it.
func (s *UserService) SetAvatar(ctx context.Context, userID, filename string, data []byte) error {
	if s.avatarMaxBytes > 0 && int64(len(data)) > s.avatarMaxBytes {
		return common.NewValidationError(common.FieldError{Field: "avatar", Message: "File too large"})
	}
	if err := avatars.CheckFilename(filename); err != nil {
		return err
	}

	png, err := avatars.Resize(data)
	if err != nil {
		return err
	}

	if err := s.avatars.Put(ctx, userID, png); err != nil {
		return fmt.Errorf("error storing avatar: %w", err)
	}
	return nil
}

func (s *UserService) ClearAvatar(ctx context.Context, userID string) error {
	if err := s.avatars.Delete(ctx, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error clearing avatar: %w", err)
	}
	return nil
}

// GetAvatar returns the stored PNG of any user. Unknown or malformed ids and
// users without an avatar yield ErrorNotFound.
func (s *UserService) GetAvatar(ctx context.Context, userID string) ([]byte, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, common.ErrorNotFound
	}
	data, err := s.avatars.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading avatar: %w", err)
	}
	return data, nil
}

func (s *UserService) getDummyHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = hashPassword(uuid.NewString(), s.bcryptCost)
	})
	return s.dummyHash
}

func duplicateEmail() error {
	return common.NewValidationError(common.FieldError{Field: "email", Message: "email is already registered"})
}
