package testutil

import (
	"context"
	"testing"
	"time"

	"onehandcoder/db"
	"onehandcoder/models"

	"github.com/stretchr/testify/require"
)

func CreateTestUser(username string) *models.User {
	return models.NewUser(username, username+"@example.com", "$2a$04$placeholderhashplaceholderhashplaceholderhashplac")
}

// CreateTestUserWithData returns a user carrying one entry in every sequence.
func CreateTestUserWithData(username string) *models.User {
	user := CreateTestUser(username)
	now := time.Now().UTC().Truncate(time.Millisecond)
	user.SetProgress(42, "fmt.Println(1)", now)
	user.AddProgram("hello", "package main", now)
	user.CompleteCourse("Go Basics")
	return user
}

// InsertTestUser stores user and returns the stored copy.
func InsertTestUser(t *testing.T, repo db.UserRepository, user *models.User) *models.User {
	t.Helper()
	created, err := repo.Create(context.Background(), user)
	require.NoError(t, err)
	return created
}
