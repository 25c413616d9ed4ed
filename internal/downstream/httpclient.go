package downstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/baechuer/roadside-admin/internal/logger"
	"github.com/baechuer/roadside-admin/middleware"
)

var (
	upstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roadside_admin",
			Name:      "directory_requests_total",
			Help:      "Calls to the directory upstream by path and outcome (status code, timeout, unavailable)",
		},
		[]string{"method", "path", "outcome"},
	)

	upstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "roadside_admin",
			Name:      "directory_request_duration_seconds",
			Help:      "Directory upstream latency until response headers",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)
)

type ClientConfig struct {
	// ReadTimeout bounds GET requests.
	ReadTimeout time.Duration
	// WriteTimeout bounds POST, PUT, PATCH and DELETE requests.
	WriteTimeout time.Duration
	// Transport overrides the round tripper; nil means a tracing transport
	// over http.DefaultTransport.
	Transport http.RoundTripper
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// Client wraps http.Client for directory calls. It forwards the request id
// and the session's directory token from ctx, bounds each call by method,
// and maps transport failures to ErrTimeout or ErrUnavailable.
type Client struct {
	http   *http.Client
	config ClientConfig
}

func NewClient(config ClientConfig) *Client {
	transport := config.Transport
	if transport == nil {
		transport = &middleware.TracingTransport{Base: http.DefaultTransport}
	}
	return &Client{
		// Per-request deadlines come from config; no client-wide timeout.
		http:   &http.Client{Transport: transport},
		config: config,
	}
}

// Do sends req. The deadline stays armed until the response body is closed.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if reqID := middleware.GetRequestID(ctx); reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}
	if token := middleware.GetUpstreamToken(ctx); token != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	timeout := c.config.ReadTimeout
	if isWriteMethod(req.Method) {
		timeout = c.config.WriteTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	req = req.WithContext(ctx)

	path := req.URL.Path
	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	upstreamDuration.WithLabelValues(req.Method, path).Observe(elapsed.Seconds())

	if err != nil {
		cancel()
		mapped := mapError(err)
		upstreamRequests.WithLabelValues(req.Method, path, mapped.Error()).Inc()
		logger.Ctx(ctx).Warn().
			Err(err).
			Str("method", req.Method).
			Str("path", path).
			Dur("duration", elapsed).
			Msg("directory_request_failed")
		return nil, mapped
	}

	upstreamRequests.WithLabelValues(req.Method, path, strconv.Itoa(resp.StatusCode)).Inc()
	logger.Ctx(ctx).Debug().
		Str("method", req.Method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", elapsed).
		Msg("directory_request_completed")

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrTimeout
	}
	return ErrUnavailable
}

func isWriteMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// DoWithBody builds and sends a request with the given body and headers.
func (c *Client) DoWithBody(ctx context.Context, method, url string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.Do(ctx, req)
}

func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	return c.DoWithBody(ctx, http.MethodGet, url, nil, headers)
}
