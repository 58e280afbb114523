package adapters

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brettbedarf/bootfs"
	"github.com/brettbedarf/bootfs/internal/mocks"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	t.Run("register and get provider", func(t *testing.T) {
		r := NewRegistry()
		provider := &mocks.MockTransportProvider{}
		r.Register("mock", provider)

		got, err := r.GetProvider("mock")
		require.NoError(t, err)
		assert.Same(t, provider, got)
	})

	t.Run("unknown provider", func(t *testing.T) {
		r := NewRegistry()
		got, err := r.GetProvider("nope")
		assert.Error(t, err)
		assert.Nil(t, got)
	})

	t.Run("first registration wins", func(t *testing.T) {
		r := NewRegistry()
		first := &mocks.MockTransportProvider{}
		second := &mocks.MockTransportProvider{}
		r.Register("mock", first)
		r.Register("mock", second)

		got, err := r.GetProvider("mock")
		require.NoError(t, err)
		assert.Same(t, first, got)
	})

	t.Run("new transport delegates to provider", func(t *testing.T) {
		r := NewRegistry()
		provider := &mocks.MockTransportProvider{}
		transport := &mocks.MockTransport{}
		opts := bootfs.TransportOptions{TimeoutSecs: 5, Retries: 5, BlockSize: 512}
		provider.On("NewTransport", "10.0.0.1", opts).Return(transport, nil)
		r.Register("mock", provider)

		got, err := r.NewTransport("mock", "10.0.0.1", opts)
		require.NoError(t, err)
		assert.Same(t, transport, got)
		provider.AssertExpectations(t)
	})

	t.Run("new transport provider error", func(t *testing.T) {
		r := NewRegistry()
		provider := &mocks.MockTransportProvider{}
		boom := errors.New("bad server")
		provider.On("NewTransport", "x", bootfs.TransportOptions{}).Return(nil, boom)
		r.Register("mock", provider)

		got, err := r.NewTransport("mock", "x", bootfs.TransportOptions{})
		assert.ErrorIs(t, err, boom)
		assert.Nil(t, got)
	})

	t.Run("new transport unknown name", func(t *testing.T) {
		_, err := NewRegistry().NewTransport("nope", "x", bootfs.TransportOptions{})
		assert.Error(t, err)
	})
}

func TestRegisterBuiltins(t *testing.T) {
	t.Parallel()

	t.Run("all builtins by default", func(t *testing.T) {
		r := NewRegistry()
		RegisterBuiltins(r)

		tftpProvider, err := r.GetProvider("tftp")
		require.NoError(t, err)
		assert.IsType(t, &TFTPProvider{}, tftpProvider)

		httpProvider, err := r.GetProvider("http")
		require.NoError(t, err)
		assert.IsType(t, &HTTPProvider{}, httpProvider)
	})

	t.Run("only named builtins", func(t *testing.T) {
		r := NewRegistry()
		RegisterBuiltins(r, "http")

		_, err := r.GetProvider("http")
		require.NoError(t, err)
		_, err = r.GetProvider("tftp")
		assert.Error(t, err)
	})
}
