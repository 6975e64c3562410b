package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	c "github.com/pennybot/warmcache/codec"
)

const (
	defaultTimeout = 20 * time.Second
	defaultMaxBody = 4 << 20
	maxErrorBody   = 512
)

// HTTPSource is a Source that POSTs each Request as JSON to one endpoint and
// decodes the response body with its codec.
type HTTPSource[V any] struct {
	endpoint string
	codec    c.Codec[V]
	cfg      httpConfig
}

var _ Source[struct{}] = (*HTTPSource[struct{}])(nil)

type httpConfig struct {
	client  *http.Client
	header  http.Header
	timeout time.Duration
	maxBody int
}

// Option configures an HTTPSource.
type Option func(*httpConfig)

// WithClient sets the HTTP client used for requests.
func WithClient(client *http.Client) Option {
	return func(cfg *httpConfig) { cfg.client = client }
}

// WithHeader sets a single header on each request.
func WithHeader(key, value string) Option {
	return func(cfg *httpConfig) {
		if cfg.header == nil {
			cfg.header = make(http.Header)
		}
		cfg.header.Set(key, value)
	}
}

// WithTimeout bounds every call. The default is 20s.
func WithTimeout(d time.Duration) Option {
	return func(cfg *httpConfig) { cfg.timeout = d }
}

// WithMaxBody caps the response body size. The default is 4 MiB.
func WithMaxBody(n int) Option {
	return func(cfg *httpConfig) { cfg.maxBody = n }
}

// NewHTTPSource returns a source for endpoint. A nil codec means JSON.
func NewHTTPSource[V any](endpoint string, codec c.Codec[V], opts ...Option) (*HTTPSource[V], error) {
	if endpoint == "" {
		return nil, errors.New("remote: endpoint is required")
	}
	cfg := httpConfig{
		client:  http.DefaultClient,
		timeout: defaultTimeout,
		maxBody: defaultMaxBody,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.client == nil {
		cfg.client = http.DefaultClient
	}
	if cfg.maxBody <= 0 {
		cfg.maxBody = defaultMaxBody
	}
	if codec == nil {
		codec = c.JSON[V]{}
	}
	return &HTTPSource[V]{
		endpoint: endpoint,
		codec:    c.LimitCodec[V]{Inner: codec, MaxDecode: cfg.maxBody},
		cfg:      cfg,
	}, nil
}

// Do performs req. A transport error or timeout is returned as is; a
// non-2xx answer becomes *StatusError.
func (s *HTTPSource[V]) Do(ctx context.Context, req Request) (V, error) {
	var zero V

	body, err := json.Marshal(req)
	if err != nil {
		return zero, fmt.Errorf("remote %s: encode request: %w", req.Op, err)
	}

	if s.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.timeout)
		defer cancel()
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return zero, err
	}
	for k, vs := range s.cfg.header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	hreq.Header.Set("Content-Type", "application/json")

	resp, err := s.cfg.client.Do(hreq)
	if err != nil {
		return zero, fmt.Errorf("remote %s: %w", req.Op, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body) // drain for connection reuse
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return zero, &StatusError{Code: resp.StatusCode, Op: req.Op, Body: string(bytes.TrimSpace(msg))}
	}

	// One byte over the limit is enough for the codec to refuse the body.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, int64(s.cfg.maxBody)+1))
	if err != nil {
		return zero, fmt.Errorf("remote %s: read body: %w", req.Op, err)
	}
	v, err := s.codec.Decode(raw)
	if err != nil {
		return zero, fmt.Errorf("remote %s: decode body: %w", req.Op, err)
	}
	return v, nil
}
