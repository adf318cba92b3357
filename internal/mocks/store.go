package mocks

import (
	"github.com/brettbedarf/memfs/filesystem"
	"github.com/stretchr/testify/mock"
)

// MockStore implements snapshot.Store for testing across packages
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Save(root *filesystem.Dir) error {
	args := m.Called(root)
	return args.Error(0)
}

func (m *MockStore) Load() (*filesystem.Dir, error) {
	args := m.Called()

	// Handle function return types so each call can build a fresh tree
	if fn, ok := args.Get(0).(func() *filesystem.Dir); ok {
		return fn(), args.Error(1)
	}

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*filesystem.Dir), args.Error(1)
}
