// Package deletion sends the request that removes a previously uploaded
// file from the host application.
//
// The endpoint belongs to the host, not to this module. A 2xx response is
// success. Any other status is a *Error whose Message is the JSON "message"
// field of the response body when one is present.
package deletion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	uerrors "github.com/codz-dev/uploader/internal/errors"
	"github.com/codz-dev/uploader/pkg/csrf"
)

// maxBody bounds how much of a response body is read for its message.
const maxBody = 64 << 10

// Request describes one deletion.
type Request struct {
	// URL is the deletion endpoint. Relative URLs are resolved against Base.
	URL string

	// Method defaults to GET.
	Method string

	// Token is the anti-forgery token. It is sent only for mutation verbs.
	Token string

	// Header holds extra headers, typically the user's Cookie.
	Header http.Header

	// Base is the URL of the page the widget lives on.
	Base string
}

// Error is a non-success response from the deletion endpoint.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("deletion failed with status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("deletion failed with status %d", e.StatusCode)
}

// Unwrap exposes the coded error so callers can match on U020.
func (e *Error) Unwrap() error {
	return uerrors.New("U020").WithDetail(fmt.Sprintf("status %d", e.StatusCode))
}

// Client issues deletion requests.
type Client struct {
	http    *retryablehttp.Client
	group   singleflight.Group
	tracer  trace.Tracer
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http.HTTPClient = hc
		}
	}
}

// WithRetryMax sets how many times a connection failure is retried.
func WithRetryMax(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.http.RetryMax = n
		}
	}
}

// WithRetryWait sets the backoff bounds.
func WithRetryWait(min, max time.Duration) Option {
	return func(c *Client) {
		c.http.RetryWaitMin = min
		c.http.RetryWaitMax = max
	}
}

// WithTimeout bounds each Delete call, retries included.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
			c.http.Logger = retryLogger{l}
		}
	}
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer("uploader")
		}
	}
}

// New returns a Client. By default it retries connection failures twice
// and never retries on an HTTP status.
func New(opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.CheckRetry = checkRetry
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	logger := slog.Default().With("component", "deletion")
	rc.Logger = retryLogger{logger}

	c := &Client{
		http:    rc,
		tracer:  otel.Tracer("uploader"),
		logger:  logger,
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// checkRetry retries transport failures only. A response with any status
// is final: the endpoint has seen the request.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return err != nil, nil
}

// Delete performs req. Concurrent calls for the same method, URL and
// credentials share one request; callers with different cookies or tokens
// each send their own.
func (c *Client) Delete(ctx context.Context, req Request) error {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	target, err := resolve(req.Base, req.URL)
	if err != nil {
		return uerrors.New("U021").WithDetail(req.URL).Wrap(err)
	}

	key := requestKey(method, target, req)
	_, err, shared := c.group.Do(key, func() (any, error) {
		return nil, c.do(ctx, method, target, req)
	})
	if shared {
		c.logger.Debug("deletion shared", "url", target)
	}
	return err
}

// requestKey identifies a request together with the caller's credentials.
func requestKey(method, target string, req Request) string {
	var b strings.Builder
	b.WriteString(method)
	b.WriteByte(' ')
	b.WriteString(target)
	b.WriteByte(0)
	b.WriteString(req.Token)

	names := make([]string, 0, len(req.Header))
	for name := range req.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteByte(0)
		b.WriteString(name)
		for _, v := range req.Header[name] {
			b.WriteByte('=')
			b.WriteString(v)
		}
	}
	return b.String()
}

func (c *Client) do(ctx context.Context, method, target string, req Request) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	ctx, span := c.tracer.Start(ctx, "deletion.Delete",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", target),
		),
	)
	defer span.End()

	hreq, err := retryablehttp.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request")
		return uerrors.New("U021").WithDetail(target).Wrap(err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	hreq.Header.Set("Accept", "application/json")
	hreq.Header.Set("Content-Type", "application/json")
	if req.Token != "" && csrf.NeedsToken(method) {
		hreq.Header.Set(csrf.HeaderName, req.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(hreq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		c.logger.Warn("deletion request failed", "url", target, "error", err)
		return uerrors.New("U020").WithDetail(target).Wrap(err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		derr := &Error{StatusCode: resp.StatusCode, Message: messageFrom(body)}
		span.SetStatus(codes.Error, derr.Error())
		c.logger.Info("deletion rejected", "url", target, "status", resp.StatusCode,
			"duration", time.Since(start))
		return derr
	}

	c.logger.Debug("deletion ok", "url", target, "status", resp.StatusCode,
		"duration", time.Since(start))
	return nil
}

// messageFrom extracts the "message" field of a JSON body.
func messageFrom(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return payload.Message
}

// resolve makes raw absolute using base.
func resolve(base, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	if base == "" {
		return "", fmt.Errorf("relative url %q without base", raw)
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(u).String(), nil
}

// retryLogger adapts slog to retryablehttp.LeveledLogger.
type retryLogger struct {
	logger *slog.Logger
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, keysAndValues...)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, keysAndValues...)
}
