package bootfs

import "context"

// Transport is the remote transfer service backing the filesystem. It holds no
// session state: every call names its target by full path and is idempotent.
//
// Implementations return an error wrapping [ErrNotFound] when the server has no
// such path and an error wrapping [ErrTransport] for any other failure.
type Transport interface {
	// QuerySize returns the byte length of the remote file at path
	QuerySize(ctx context.Context, path string) (uint64, error)

	// FetchFile transfers the file at path from its first byte into buf, stopping
	// once buf is full. Returns the number of bytes written to buf.
	FetchFile(ctx context.Context, path string, buf []byte) (int, error)
}

// TransportProvider is a factory for a concrete [Transport] bound to a server
// address. Implementations own any connection resources of their transports.
type TransportProvider interface {
	NewTransport(server string, opts TransportOptions) (Transport, error)
}

// TransportOptions are the transport tunables taken from the runtime config
type TransportOptions struct {
	TimeoutSecs float64
	Retries     int
	BlockSize   int
	Headers     map[string]string // http only
}
