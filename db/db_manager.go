package db

import (
	"context"
	"errors"

	"onehandcoder/models"
)

// ErrManagerStopped is returned for operations submitted after Stop.
var ErrManagerStopped = errors.New("database manager stopped")

// OperationWithResult represents a database operation that returns a result
type OperationWithResult struct {
	Execute func() (interface{}, error)
	Result  chan OperationResult
}

// OperationResult contains the result of an operation
type OperationResult struct {
	Data  interface{}
	Error error
}

// DBManager runs read-modify-write operations one at a time, so two
// requests touching the same user document cannot interleave.
type DBManager struct {
	resultOpQueue chan OperationWithResult
	stopping      chan struct{}
}

// NewDBManager creates a new database manager
func NewDBManager() *DBManager {
	m := &DBManager{
		resultOpQueue: make(chan OperationWithResult, 100),
		stopping:      make(chan struct{}),
	}

	go m.worker()

	return m
}

// worker processes operations one at a time
func (m *DBManager) worker() {
	for {
		select {
		case op := <-m.resultOpQueue:
			data, err := op.Execute()
			op.Result <- OperationResult{Data: data, Error: err}
		case <-m.stopping:
			return
		}
	}
}

// ExecuteOperationWithResult executes a database operation that returns a result
func (m *DBManager) ExecuteOperationWithResult(execute func() (interface{}, error)) (interface{}, error) {
	if m.stopped() {
		return nil, ErrManagerStopped
	}
	resultChan := make(chan OperationResult, 1)
	select {
	case m.resultOpQueue <- OperationWithResult{Execute: execute, Result: resultChan}:
	case <-m.stopping:
		return nil, ErrManagerStopped
	}
	select {
	case result := <-resultChan:
		return result.Data, result.Error
	case <-m.stopping:
		return nil, ErrManagerStopped
	}
}

// Stop stops the database manager
func (m *DBManager) Stop() {
	close(m.stopping)
}

func (m *DBManager) stopped() bool {
	select {
	case <-m.stopping:
		return true
	default:
		return false
	}
}

// Methods for specific repository operations

// CreateUser serializes user creation
func (m *DBManager) CreateUser(repo UserRepository, ctx context.Context, user *models.User) (*models.User, error) {
	result, err := m.ExecuteOperationWithResult(func() (interface{}, error) {
		return repo.Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.User), nil
}

// MutateUser loads the user, applies mutate and stores the result as one
// serialized step. An error from mutate aborts without writing.
func (m *DBManager) MutateUser(repo UserRepository, ctx context.Context, id string, mutate func(*models.User) error) (*models.User, error) {
	result, err := m.ExecuteOperationWithResult(func() (interface{}, error) {
		user, err := repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := mutate(user); err != nil {
			return nil, err
		}
		return repo.Update(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.User), nil
}
