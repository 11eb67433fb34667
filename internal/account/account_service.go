package account

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"onehandcoder/db"
	"onehandcoder/internal/apperror"
	"onehandcoder/internal/auth"
	"onehandcoder/internal/metrics"
	"onehandcoder/models"
)

const DefaultPracticeCode = "Practice session"

var (
	ErrMissingFields      = apperror.Validation("username and password required")
	ErrUsernameTaken      = apperror.Conflict("Username already taken")
	ErrInvalidCredentials = apperror.Validation("Invalid credentials")
	ErrPasswordTooLong    = apperror.Validation("password must be at most 72 bytes")
	ErrUserNotFound       = apperror.NotFound("User not found")
	ErrMissingProgram     = apperror.Validation("title and content required")
	ErrMissingCourse      = apperror.Validation("courseName required")
)

// TokenIssuer creates session tokens for a user id.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

type AccountService struct {
	repo      db.UserRepository
	dbManager *db.DBManager
	hasher    auth.PasswordHasher
	tokens    TokenIssuer
	metrics   *metrics.Metrics
	now       func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAccountService(repo db.UserRepository, dbManager *db.DBManager, hasher auth.PasswordHasher, tokens TokenIssuer, m *metrics.Metrics) *AccountService {
	return &AccountService{
		repo:      repo,
		dbManager: dbManager,
		hasher:    hasher,
		tokens:    tokens,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an account and returns a session token for it.
func (s *AccountService) Register(ctx context.Context, username, password, email string) (string, error) {
	if username == "" || password == "" {
		return "", ErrMissingFields
	}

	_, err := s.repo.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return "", ErrUsernameTaken
	case !errors.Is(err, db.ErrNotFound):
		return "", apperror.Internal(err, "find user by username")
	}

	hash, err := HashPassword(s.hasher, password)
	if err != nil {
		return "", err
	}

	user, err := s.dbManager.CreateUser(s.repo, ctx, models.NewUser(username, email, hash))
	if err != nil {
		if errors.Is(err, db.ErrDuplicateUsername) {
			return "", ErrUsernameTaken
		}
		return "", apperror.Internal(err, "create user")
	}
	if s.metrics != nil {
		s.metrics.AccountsRegistered.Inc()
	}

	return s.issue(user.ID)
}

// Login verifies credentials. Unknown user and wrong password are reported
// identically.
func (s *AccountService) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", ErrMissingFields
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			// Same hashing cost as a wrong password
			s.hasher.Verify(password, s.unknownUserHash())
			s.recordLogin(false)
			return "", ErrInvalidCredentials
		}
		return "", apperror.Internal(err, "find user by username")
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.recordLogin(false)
		return "", ErrInvalidCredentials
	}

	s.recordLogin(true)
	return s.issue(user.ID)
}

// Profile returns the user's document.
func (s *AccountService) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, TranslateStoreError(err)
	}
	return user, nil
}

// UpdateProgress stores progress clamped to [0,100] and appends code to the
// history. A nil code means DefaultPracticeCode; a nil progress means 0.
func (s *AccountService) UpdateProgress(ctx context.Context, userID string, code *string, progress *float64) (int, error) {
	entry := DefaultPracticeCode
	if code != nil {
		entry = *code
	}
	value := 0
	if progress != nil {
		value = roundProgress(*progress)
	}

	user, err := s.dbManager.MutateUser(s.repo, ctx, userID, func(u *models.User) error {
		u.SetProgress(value, entry, s.now())
		return nil
	})
	if err != nil {
		return 0, TranslateStoreError(err)
	}
	return user.Progress, nil
}

// SaveProgram appends a program and returns every saved program.
func (s *AccountService) SaveProgram(ctx context.Context, userID, title, content string) ([]models.SavedProgram, error) {
	if title == "" || content == "" {
		return nil, ErrMissingProgram
	}

	user, err := s.dbManager.MutateUser(s.repo, ctx, userID, func(u *models.User) error {
		u.AddProgram(title, content, s.now())
		return nil
	})
	if err != nil {
		return nil, TranslateStoreError(err)
	}
	return user.SavedPrograms, nil
}

// CompleteCourse records courseName once and returns the completed courses.
func (s *AccountService) CompleteCourse(ctx context.Context, userID, courseName string) ([]string, error) {
	if courseName == "" {
		return nil, ErrMissingCourse
	}

	user, err := s.dbManager.MutateUser(s.repo, ctx, userID, func(u *models.User) error {
		u.CompleteCourse(courseName)
		return nil
	})
	if err != nil {
		return nil, TranslateStoreError(err)
	}
	return user.CompletedCourses, nil
}

// HashPassword hashes password, reporting over-long input as a validation error.
func HashPassword(hasher auth.PasswordHasher, password string) (string, error) {
	hash, err := hasher.Hash(password)
	if err != nil {
		if auth.IsPasswordTooLong(err) {
			return "", ErrPasswordTooLong
		}
		return "", apperror.Internal(err, "hash password")
	}
	return hash, nil
}

func (s *AccountService) issue(userID string) (string, error) {
	token, err := s.tokens.Issue(userID)
	if err != nil {
		return "", apperror.Internal(err, "issue token")
	}
	return token, nil
}

// unknownUserHash is verified against when the username is unknown.
func (s *AccountService) unknownUserHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(DefaultPracticeCode)
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}

func (s *AccountService) recordLogin(success bool) {
	if s.metrics != nil {
		s.metrics.RecordLogin(success)
	}
}

// roundProgress clamps before rounding so huge values cannot overflow int.
func roundProgress(p float64) int {
	if math.IsNaN(p) {
		return models.MinProgress
	}
	p = math.Max(models.MinProgress, math.Min(models.MaxProgress, p))
	return models.ClampProgress(int(math.Round(p)))
}

// TranslateStoreError maps store errors onto client-facing errors.
func TranslateStoreError(err error) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, db.ErrDuplicateUsername):
		return ErrUsernameTaken
	case apperror.Code(err) != apperror.CodeInternal:
		return err
	default:
		return apperror.Internal(err, "user store")
	}
}
