package formbridge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	uerrors "github.com/codz-dev/uploader/internal/errors"
	"github.com/codz-dev/uploader/pkg/csrf"
)

// maxResponse bounds how much of the action's response is kept.
const maxResponse = 1 << 20

var errNoBase = errors.New("relative action without an absolute page url")

// Submission is an encoded form on its way to the form action.
type Submission struct {
	Form        Form
	ContentType string
	Body        io.Reader

	// Base is the host page URL the action resolves against.
	Base string

	// Token is the anti-forgery token, sent as a header as well.
	Token string

	// Header carries the user's cookies.
	Header http.Header
}

// Result is the action's response. Redirects are not followed; the
// client navigates to Location itself.
type Result struct {
	Status      int
	Location    string
	ContentType string
	Body        []byte
}

// Redirected reports whether the action answered with a redirect.
func (r *Result) Redirected() bool {
	return r.Status >= 300 && r.Status < 400 && r.Location != ""
}

// Submitter forwards submissions.
type Submitter struct {
	client *http.Client
	tracer trace.Tracer
	logger *slog.Logger
}

// NewSubmitter returns a Submitter with a timeout on each request.
func NewSubmitter(timeout time.Duration, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		tracer: otel.Tracer("uploader"),
		logger: logger.With("component", "formbridge"),
	}
}

// Submit sends sub to the form action.
func (s *Submitter) Submit(ctx context.Context, sub Submission) (*Result, error) {
	target, err := actionURL(sub.Base, sub.Form.Action)
	if err != nil {
		return nil, uerrors.New("U053").WithDetail(sub.Form.Action).Wrap(err)
	}
	method := sub.Form.Method
	if method == "" {
		method = http.MethodPost
	}

	ctx, span := s.tracer.Start(ctx, "formbridge.Submit",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", target),
		),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, target, sub.Body)
	if err != nil {
		span.RecordError(err)
		return nil, uerrors.New("U053").WithDetail(target).Wrap(err)
	}
	for k, vs := range sub.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if sub.ContentType != "" {
		req.Header.Set("Content-Type", sub.ContentType)
	}
	if sub.Token != "" && csrf.NeedsToken(method) {
		req.Header.Set(csrf.HeaderName, sub.Token)
	}
	if sub.Base != "" {
		req.Header.Set("Referer", sub.Base)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		s.logger.Warn("form submission failed", "url", target, "error", err)
		return nil, uerrors.New("U053").WithDetail(target).Wrap(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return nil, uerrors.New("U053").WithDetail(target).Wrap(err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	res := &Result{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}
	if loc := resp.Header.Get("Location"); loc != "" {
		if u, err := resp.Request.URL.Parse(loc); err == nil {
			res.Location = u.String()
		} else {
			res.Location = loc
		}
	}
	s.logger.Info("form submitted", "url", target, "status", res.Status)
	return res, nil
}

// actionURL resolves a form action. An empty action submits to the page.
func actionURL(base, action string) (string, error) {
	action = strings.TrimSpace(action)
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if action == "" {
		if !b.IsAbs() {
			return "", &url.Error{Op: "resolve", URL: base, Err: errNoBase}
		}
		return b.String(), nil
	}
	u, err := url.Parse(action)
	if err != nil {
		return "", err
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	if !b.IsAbs() {
		return "", &url.Error{Op: "resolve", URL: action, Err: errNoBase}
	}
	return b.ResolveReference(u).String(), nil
}
