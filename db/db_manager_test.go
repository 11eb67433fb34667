package db_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"onehandcoder/db"
	"onehandcoder/internal/testutil"
	"onehandcoder/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBManager_MutateUserDoesNotLoseUpdates(t *testing.T) {
	repo := testutil.SetupTestUserRepository(t)
	manager := testutil.SetupTestDBManager(t)
	ctx := context.Background()

	user := testutil.InsertTestUser(t, repo, testutil.CreateTestUser("alice"))

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.MutateUser(repo, ctx, user.ID, func(u *models.User) error {
				u.SetProgress(i, fmt.Sprintf("attempt %d", i), time.Now())
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, stored.History, writers)
}

func TestDBManager_MutateUserAbortsOnError(t *testing.T) {
	repo := testutil.SetupTestUserRepository(t)
	manager := testutil.SetupTestDBManager(t)
	ctx := context.Background()

	user := testutil.InsertTestUser(t, repo, testutil.CreateTestUser("bob"))
	boom := errors.New("boom")

	_, err := manager.MutateUser(repo, ctx, user.ID, func(u *models.User) error {
		u.Email = "changed@example.com"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", stored.Email)
}

func TestDBManager_MutateUserMissing(t *testing.T) {
	repo := testutil.SetupTestUserRepository(t)
	manager := testutil.SetupTestDBManager(t)

	_, err := manager.MutateUser(repo, context.Background(), "missing", func(*models.User) error { return nil })
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestDBManager_CreateUser(t *testing.T) {
	repo := testutil.SetupTestUserRepository(t)
	manager := testutil.SetupTestDBManager(t)

	created, err := manager.CreateUser(repo, context.Background(), testutil.CreateTestUser("carol"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	_, err = manager.CreateUser(repo, context.Background(), testutil.CreateTestUser("carol"))
	assert.ErrorIs(t, err, db.ErrDuplicateUsername)
}

func TestDBManager_Stopped(t *testing.T) {
	manager := db.NewDBManager()
	manager.Stop()

	_, err := manager.ExecuteOperationWithResult(func() (interface{}, error) { return 1, nil })
	assert.ErrorIs(t, err, db.ErrManagerStopped)

	_, err = manager.CreateUser(nil, context.Background(), testutil.CreateTestUser("dave"))
	assert.ErrorIs(t, err, db.ErrManagerStopped)
}
