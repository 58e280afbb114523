package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brettbedarf/bootfs"
	"github.com/brettbedarf/bootfs/config"
	"github.com/brettbedarf/bootfs/internal/util"
)

type HTTPMethod = string

const (
	HTTPMethodGet  HTTPMethod = "GET"
	HTTPMethodHead HTTPMethod = "HEAD"
)

// HTTPClient is the subset of *http.Client used by the transport
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPProvider builds [HTTPTransport]s. A nil client means a new *http.Client
// per transport using the configured timeout.
type HTTPProvider struct {
	client HTTPClient
}

func RegisterHTTP(r *Registry) {
	r.Register(config.HTTPTransport, &HTTPProvider{})
}

// NewTransport validates server as an absolute http(s) base URL. Remote paths
// are resolved below it.
func (p *HTTPProvider) NewTransport(server string, opts bootfs.TransportOptions) (bootfs.Transport, error) {
	base, err := parseBaseURL(server)
	if err != nil {
		return nil, err
	}

	client := p.client
	if client == nil {
		client = &http.Client{Timeout: time.Duration(opts.TimeoutSecs * float64(time.Second))}
	}
	return &HTTPTransport{base: base, headers: opts.Headers, client: client}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty http server url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid http server url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme in %q", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host in %q", raw)
	}
	if u.User != nil {
		return nil, fmt.Errorf("user info not allowed in %q; use headers", raw)
	}
	return u, nil
}

// HTTPTransport implements [bootfs.Transport] over plain HTTP: HEAD answers
// size queries and GET streams the file into the caller's buffer.
type HTTPTransport struct {
	base    *url.URL
	headers map[string]string
	client  HTTPClient
}

func (h *HTTPTransport) newRequest(ctx context.Context, method HTTPMethod, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, h.base.JoinPath(path).String(), nil)
	if err != nil {
		return nil, err
	}

	// Add custom headers
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

// do sends the request and maps missing files and failed statuses onto the
// transport error vocabulary. The caller owns the returned body.
func (h *HTTPTransport) do(req *http.Request, path string) (*http.Response, error) {
	logger := util.GetLogger("HTTPTransport")

	resp, err := h.client.Do(req)
	if err != nil {
		logger.Debug().Err(err).Str("url", req.URL.String()).Msg("Request failed")
		return nil, fmt.Errorf("%s %q: %w: %w", req.Method, path, bootfs.ErrTransport, err)
	}
	switch {
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable && isEmptyRange(resp):
		resp.Body.Close()
		return nil, errEmptyRange
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		resp.Body.Close()
		return nil, fmt.Errorf("%s %q: %w", req.Method, path, bootfs.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		resp.Body.Close()
		return nil, fmt.Errorf("%s %q: status %s: %w", req.Method, path, resp.Status, bootfs.ErrTransport)
	}
	logger.Trace().Str("method", req.Method).Str("url", req.URL.String()).Int("status", resp.StatusCode).Msg("Response")
	return resp, nil
}

// errEmptyRange reports a range request refused because the file is empty
var errEmptyRange = errors.New("range on empty file")

// isEmptyRange reports whether a 416 response names a zero length resource,
// which servers such as nginx send for any range on an empty file
func isEmptyRange(resp *http.Response) bool {
	return strings.TrimSpace(resp.Header.Get("Content-Range")) == "bytes */0"
}

// QuerySize returns the Content-Length of a HEAD request. Resources without a
// declared length report 0.
func (h *HTTPTransport) QuerySize(ctx context.Context, path string) (uint64, error) {
	req, err := h.newRequest(ctx, HTTPMethodHead, path)
	if err != nil {
		return 0, fmt.Errorf("head %q: %w: %w", path, bootfs.ErrTransport, err)
	}
	resp, err := h.do(req, path)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return uint64(max(resp.ContentLength, 0)), nil
}

// FetchFile streams the file from byte 0 into buf. A Range header bounds the
// response to len(buf) bytes; servers ignoring it are cut off once buf is full.
func (h *HTTPTransport) FetchFile(ctx context.Context, path string, buf []byte) (int, error) {
	req, err := h.newRequest(ctx, HTTPMethodGet, path)
	if err != nil {
		return 0, fmt.Errorf("get %q: %w: %w", path, bootfs.ErrTransport, err)
	}
	if len(buf) > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", len(buf)-1))
	}
	resp, err := h.do(req, path)
	if errors.Is(err, errEmptyRange) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.ReadFull(resp.Body, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return n, fmt.Errorf("get %q: %w: %w", path, bootfs.ErrTransport, err)
	}
	return n, nil
}

var _ bootfs.Transport = (*HTTPTransport)(nil)
var _ bootfs.TransportProvider = (*HTTPProvider)(nil)
