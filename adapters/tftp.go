package adapters

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/pin/tftp/v3"

	"github.com/brettbedarf/bootfs"
	"github.com/brettbedarf/bootfs/config"
	"github.com/brettbedarf/bootfs/internal/util"
)

const tftpDefaultPort = "69"

// tftpMode is the only transfer mode used; netascii is never requested
const tftpMode = "octet"

type TFTPProvider struct{}

func RegisterTFTP(r *Registry) {
	r.Register(config.TFTPTransport, &TFTPProvider{})
}

// NewTransport creates a TFTP client for server, given as host or host:port.
// The tsize option is always requested so size queries can stop after the
// option acknowledgement.
func (p *TFTPProvider) NewTransport(server string, opts bootfs.TransportOptions) (bootfs.Transport, error) {
	addr, err := tftpAddr(server)
	if err != nil {
		return nil, err
	}
	c, err := tftp.NewClient(addr)
	if err != nil {
		return nil, fmt.Errorf("tftp client for %q: %w", addr, err)
	}
	if opts.TimeoutSecs > 0 {
		c.SetTimeout(time.Duration(opts.TimeoutSecs * float64(time.Second)))
	}
	if opts.Retries > 0 {
		c.SetRetries(opts.Retries)
	}
	// 512 is the protocol default and needs no blksize option
	if opts.BlockSize > 512 {
		c.SetBlockSize(opts.BlockSize)
	}
	c.RequestTSize(true)

	return &TFTPTransport{
		client: c,
		addr:   addr,
		logger: util.GetLogger("TFTPTransport").With().Str("server", addr).Logger(),
	}, nil
}

func tftpAddr(server string) (string, error) {
	server = strings.TrimSpace(server)
	if server == "" {
		return "", fmt.Errorf("empty tftp server address")
	}
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server, nil
	}
	return net.JoinHostPort(strings.Trim(server, "[]"), tftpDefaultPort), nil
}

// TFTPTransport implements [bootfs.Transport] with read requests against a single
// TFTP server. Every call is its own transfer.
type TFTPTransport struct {
	client *tftp.Client
	addr   string
	logger util.Logger
}

// QuerySize starts a read request and takes the size from the server's tsize
// option. The transfer is then aborted. Servers that do not acknowledge tsize
// are read to the end and the bytes counted.
func (t *TFTPTransport) QuerySize(ctx context.Context, path string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("query %q: %w: %w", path, bootfs.ErrTransport, err)
	}
	wt, err := t.client.Receive(path, tftpMode)
	if err != nil {
		return 0, t.remoteError("query", path, err)
	}

	if it, ok := wt.(tftp.IncomingTransfer); ok {
		if n, ok := it.Size(); ok && n >= 0 {
			_, _ = wt.WriteTo(abortWriter{})
			t.logger.Trace().Str("path", path).Int64("tsize", n).Msg("Size from option")
			return uint64(n), nil
		}
	}

	var cw countingWriter
	if _, err := wt.WriteTo(&cw); err != nil {
		return 0, t.remoteError("query", path, err)
	}
	t.logger.Trace().Str("path", path).Int64("counted", cw.n).Msg("Size from full transfer")
	return uint64(cw.n), nil
}

// FetchFile transfers path into buf. Once buf is full the transfer is aborted,
// so the server never sends more than one block beyond the capacity.
func (t *TFTPTransport) FetchFile(ctx context.Context, path string, buf []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("fetch %q: %w: %w", path, bootfs.ErrTransport, err)
	}
	wt, err := t.client.Receive(path, tftpMode)
	if err != nil {
		return 0, t.remoteError("fetch", path, err)
	}

	bw := &boundedWriter{buf: buf}
	if _, err := wt.WriteTo(bw); err != nil && !bw.full {
		return 0, t.remoteError("fetch", path, err)
	}
	t.logger.Trace().Str("path", path).Int("fetched", bw.n).Bool("truncated", bw.full).Msg("Fetched")
	return bw.n, nil
}

// remoteError classifies a client error. A server error packet of any code
// means the file is not available; everything else is a transport failure.
func (t *TFTPTransport) remoteError(op, path string, err error) error {
	var netErr net.Error
	if !errors.As(err, &netErr) && isServerError(err) {
		t.logger.Debug().Str("path", path).Err(err).Msg("Server refused")
		return fmt.Errorf("%s %q: %w: %s", op, path, bootfs.ErrNotFound, err)
	}
	t.logger.Debug().Str("path", path).Err(err).Msg("Transfer failed")
	return fmt.Errorf("%s %q: %w: %w", op, path, bootfs.ErrTransport, err)
}

// isServerError reports whether err carries a TFTP ERROR packet from the server.
// pin/tftp only exposes these as text formatted "code: %d, message: %s" in its
// receiver, so a test against a loopback server pins that format.
func isServerError(err error) bool {
	return strings.Contains(err.Error(), "code: ")
}

var errTransferAborted = errors.New("transfer aborted")

type abortWriter struct{}

func (abortWriter) Write([]byte) (int, error) {
	return 0, errTransferAborted
}

type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}

// boundedWriter fills buf and fails the first write that does not fit
type boundedWriter struct {
	buf  []byte
	n    int
	full bool
}

func (w *boundedWriter) Write(p []byte) (int, error) {
	c := copy(w.buf[w.n:], p)
	w.n += c
	if c < len(p) {
		w.full = true
		return c, errTransferAborted
	}
	return c, nil
}

var _ bootfs.Transport = (*TFTPTransport)(nil)
var _ bootfs.TransportProvider = (*TFTPProvider)(nil)
