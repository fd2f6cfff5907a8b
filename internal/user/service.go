package user

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/apierror"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/database"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/validation"
)

// PasswordHasher defines minimal hashing interface.
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation. Verify compares in constant time.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Store is the persistence the user service needs. Missing rows are reported
// as sql.ErrNoRows and duplicate usernames as database.ErrUniqueViolation.
type Store interface {
	Create(ctx context.Context, u *entity.User) error
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	List(ctx context.Context) ([]entity.Summary, error)
	TouchLastLogin(ctx context.Context, username string, at time.Time) error
	MessagesFrom(ctx context.Context, username string) ([]entity.UserMessage, error)
	MessagesTo(ctx context.Context, username string) ([]entity.UserMessage, error)
}

var (
	ErrNotFound      = errors.New("user not found")
	ErrDuplicateUser = errors.New("username already exists")
)

// UserService implements registration, credential checks and user lookups.
type UserService struct {
	store  Store
	hasher PasswordHasher
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewUserService(store Store, hasher PasswordHasher, logger *zap.SugaredLogger) *UserService {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &UserService{store: store, hasher: hasher, logger: logger, now: time.Now}
}

// bcrypt only hashes the first 72 bytes and rejects longer input.
const maxPasswordBytes = 72

// RegisterInput is the registration payload.
type RegisterInput struct {
	Username  *string `json:"username" validate:"required,min=1"`
	Password  *string `json:"password" validate:"required,min=1"`
	FirstName *string `json:"first_name" validate:"required,min=1"`
	LastName  *string `json:"last_name" validate:"required,min=1"`
	Phone     *string `json:"phone" validate:"required,min=1"`
}

// Register hashes the password and stores a new user with join_at and
// last_login_at set to now.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if len(*in.Password) > maxPasswordBytes {
		return nil, apierror.Validation("password must be at most 72 bytes")
	}
	hash, err := s.hasher.Hash(*in.Password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	u := &entity.User{
		Username:    NormalizeUsername(*in.Username),
		Password:    hash,
		FirstName:   *in.FirstName,
		LastName:    *in.LastName,
		Phone:       *in.Phone,
		JoinAt:      now,
		LastLoginAt: &now,
	}
	if u.Username == "" {
		return nil, apierror.Validation("username must not be empty")
	}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, database.ErrUniqueViolation) {
			return nil, apierror.Wrap(apierror.KindConflict, "username already exists", ErrDuplicateUser)
		}
		return nil, err
	}
	return u, nil
}

// NormalizeUsername trims surrounding whitespace. Register and login both
// apply it so the stored name and the login name agree.
func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

// Authenticate reports whether password matches the stored hash. An unknown
// username fails with ErrNotFound.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (bool, error) {
	u, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, apierror.Wrap(apierror.KindNotFound, "user not found", ErrNotFound)
		}
		return false, err
	}
	return s.hasher.Verify(u.Password, password), nil
}

// UpdateLoginTimestamp sets last_login_at to now. Failures are logged only.
func (s *UserService) UpdateLoginTimestamp(ctx context.Context, username string) {
	if err := s.store.TouchLastLogin(ctx, username, s.now().UTC()); err != nil {
		s.logger.Warnw("update last login failed", "username", username, "err", err)
	}
}

func (s *UserService) Get(ctx context.Context, username string) (*entity.User, error) {
	u, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.Wrap(apierror.KindNotFound, "user not found", ErrNotFound)
		}
		return nil, err
	}
	return u, nil
}

func (s *UserService) All(ctx context.Context) ([]entity.Summary, error) {
	return s.store.List(ctx)
}

func (s *UserService) MessagesFrom(ctx context.Context, username string) ([]entity.UserMessage, error) {
	return s.store.MessagesFrom(ctx, username)
}

func (s *UserService) MessagesTo(ctx context.Context, username string) ([]entity.UserMessage, error) {
	return s.store.MessagesTo(ctx, username)
}
