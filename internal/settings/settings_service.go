package settings

import (
	"context"
	"encoding/json"

	"onehandcoder/db"
	"onehandcoder/internal/account"
	"onehandcoder/internal/apperror"
	"onehandcoder/internal/auth"
	"onehandcoder/internal/config"
	"onehandcoder/models"
)

const bytesPerMB = 1024 * 1024

// AccountSettings is the settings view of a user
type AccountSettings struct {
	Username      string
	Email         string
	Subscription  string
	UsedStorageMB int64
	MaxStorageMB  int64
}

// Update holds the optional fields of a settings change. Empty strings are
// treated as absent.
type Update struct {
	Username string
	Email    string
	Password string
}

// SettingsService handles account settings operations
type SettingsService struct {
	repo      db.UserRepository
	dbManager *db.DBManager
	hasher    auth.PasswordHasher
}

// NewSettingsService creates a new settings service
func NewSettingsService(repo db.UserRepository, dbManager *db.DBManager, hasher auth.PasswordHasher) *SettingsService {
	return &SettingsService{
		repo:      repo,
		dbManager: dbManager,
		hasher:    hasher,
	}
}

// GetSettings retrieves the settings view for a user
func (s *SettingsService) GetSettings(ctx context.Context, userID string) (*AccountSettings, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, account.TranslateStoreError(err)
	}

	used, err := UsedStorageMB(user.SavedPrograms)
	if err != nil {
		return nil, apperror.Internal(err, "measure saved programs")
	}

	return &AccountSettings{
		Username:      user.Username,
		Email:         user.Email,
		Subscription:  user.Subscription,
		UsedStorageMB: used,
		MaxStorageMB:  config.MaxStorageMB,
	}, nil
}

// UpdateSettings applies the present fields of update. Username uniqueness
// is not pre-checked; the store's unique constraint rejects collisions.
func (s *SettingsService) UpdateSettings(ctx context.Context, userID string, update Update) error {
	var hash string
	if update.Password != "" {
		var err error
		hash, err = account.HashPassword(s.hasher, update.Password)
		if err != nil {
			return err
		}
	}

	_, err := s.dbManager.MutateUser(s.repo, ctx, userID, func(u *models.User) error {
		if update.Username != "" {
			u.Username = update.Username
		}
		if update.Email != "" {
			u.Email = update.Email
		}
		if hash != "" {
			u.PasswordHash = hash
		}
		return nil
	})
	if err != nil {
		return account.TranslateStoreError(err)
	}
	return nil
}

// ResetProgress clears progress and history. Saved programs are kept.
func (s *SettingsService) ResetProgress(ctx context.Context, userID string) error {
	_, err := s.dbManager.MutateUser(s.repo, ctx, userID, func(u *models.User) error {
		u.ResetProgress()
		return nil
	})
	if err != nil {
		return account.TranslateStoreError(err)
	}
	return nil
}

// UsedStorageMB is the JSON size of programs rounded up to whole megabytes.
// No programs use no storage.
func UsedStorageMB(programs []models.SavedProgram) (int64, error) {
	if len(programs) == 0 {
		return 0, nil
	}
	data, err := json.Marshal(programs)
	if err != nil {
		return 0, err
	}
	size := int64(len(data))
	return (size + bytesPerMB - 1) / bytesPerMB, nil
}
