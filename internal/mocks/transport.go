package mocks

import (
	"context"

	"github.com/brettbedarf/bootfs"
	"github.com/stretchr/testify/mock"
)

// MockTransport implements bootfs.Transport for testing across packages
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) QuerySize(ctx context.Context, path string) (uint64, error) {
	args := m.Called(ctx, path)

	// Handle function return types (for complex tests)
	if fn, ok := args.Get(0).(func(context.Context, string) uint64); ok {
		return fn(ctx, path), args.Error(1)
	}

	if args.Get(0) == nil {
		return 0, args.Error(1)
	}
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockTransport) FetchFile(ctx context.Context, path string, buf []byte) (int, error) {
	args := m.Called(ctx, path, buf)

	// Handle function return types (for complex tests)
	if fn, ok := args.Get(0).(func(context.Context, string, []byte) int); ok {
		return fn(ctx, path, buf), args.Error(1)
	}

	if args.Get(0) == nil {
		return 0, args.Error(1)
	}
	return args.Get(0).(int), args.Error(1)
}

var _ bootfs.Transport = (*MockTransport)(nil)

// MockTransportProvider implements bootfs.TransportProvider for testing across packages
type MockTransportProvider struct {
	mock.Mock
}

func (m *MockTransportProvider) NewTransport(server string, opts bootfs.TransportOptions) (bootfs.Transport, error) {
	args := m.Called(server, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(bootfs.Transport), args.Error(1)
}

var _ bootfs.TransportProvider = (*MockTransportProvider)(nil)
