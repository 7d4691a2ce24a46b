package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/apiman/client/throttle"
)

// Doer is the HTTP engine a [Client] delegates to. [*http.Client]
// satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client executes [Descriptor] calls against a [Doer], attaching
// authentication and classifying the outcome.
// It is safe for concurrent use.
type Client struct {
	doer            Doer
	logger          *slog.Logger
	auth            AuthProvider
	tracer          trace.Tracer
	requestIDHeader string
	downloadDir     string
	batchLimit      int
	validateStatus  bool
}

// Build constructs a Client. By default it wraps a fresh [http.Client]
// using [http.DefaultTransport], logs with [slog.Default] and stores
// downloads under the user cache directory.
func Build(optFns ...Option) (*Client, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	client := &Client{
		logger:          slog.Default(),
		auth:            opts.auth,
		tracer:          noop.NewTracerProvider().Tracer(""),
		requestIDHeader: opts.requestIDHeader,
		downloadDir:     opts.downloadDir,
		batchLimit:      opts.batchLimit,
		validateStatus:  opts.validateStatus,
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.tracer != nil {
		client.tracer = opts.tracer
	}

	if client.downloadDir == "" {
		client.downloadDir = defaultDownloadDir()
	}

	if opts.doer != nil {
		client.doer = opts.doer
		return client, nil
	}

	hc := &http.Client{}
	if opts.client != nil {
		cpy := *opts.client
		hc = &cpy
	}

	if opts.timeout != nil {
		hc.Timeout = *opts.timeout
	}

	if opts.noFollowRedirects {
		hc.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		transport = opts.client.Transport
	default:
		transport = http.DefaultTransport
	}
	if opts.userAgent != "" {
		transport = userAgent{value: opts.userAgent, base: transport}
	}
	if opts.throttle != nil {
		rt, err := throttle.NewRoundTripper(*opts.throttle, func() *slog.Logger { return client.logger }, transport)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		transport = rt
	}
	hc.Transport = transport

	client.doer = hc

	return client, nil
}

// DownloadDir returns the directory downloads land in by default.
func (c *Client) DownloadDir() string {
	return c.downloadDir
}

// Perform executes d and returns the response body.
//
// Only a 401 response is treated as a failure unless [WithStatusValidation]
// is set; other statuses return their body as data.
func (c *Client) Perform(ctx context.Context, d Descriptor) ([]byte, error) {
	var data []byte
	if err := c.execute(ctx, "apiman.perform", d, Descriptor.encode, readInto(&data)); err != nil {
		return nil, err
	}

	return data, nil
}

// payloadFn produces the final URL and body for a call, adjusting
// header as needed.
type payloadFn func(d Descriptor, header http.Header) (*url.URL, io.Reader, error)

// execute runs one call: it resolves headers and authentication, sends
// the request, classifies the response and hands successful responses
// to fn.
func (c *Client) execute(ctx context.Context, spanName string, d Descriptor, payload payloadFn, fn execFn) error {
	if d.target == nil {
		return ErrNotFound
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	requestID := uuid.NewString()

	ctx, span := c.tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("http.request.method", d.method),
		attribute.String("url.full", d.target.Redacted()),
		attribute.String("request_id", requestID),
	)

	start := time.Now()
	status, err := c.send(ctx, d, requestID, payload, fn)

	attrs := []any{
		"request_id", requestID,
		"method", d.method,
		"url", d.target.Redacted(),
		"status", status,
		"elapsed", time.Since(start).Round(time.Millisecond),
	}

	if status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug("request failed", append(attrs, "error", err)...)
		return err
	}

	c.logger.Debug("request completed", attrs...)

	return nil
}

// send performs the network part of execute and returns the response
// status, or 0 if no response was received.
func (c *Client) send(ctx context.Context, d Descriptor, requestID string, payload payloadFn, fn execFn) (int, error) {
	header := d.Header()

	if d.requiresAuth {
		if c.auth == nil {
			return 0, ErrNoAuthProvider
		}

		ah, err := c.auth.AuthenticationHeader(ctx)
		if err != nil {
			return 0, fmt.Errorf("fetching authentication header: %w", err)
		}
		header.Set(ah.Name, ah.Value)
	}

	u, body, err := payload(d, header)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, d.method, u.String(), body)
	if err != nil {
		return 0, fmt.Errorf("instantiating request: %w", err)
	}
	req.Header = header

	if c.requestIDHeader != "" {
		req.Header.Set(c.requestIDHeader, requestID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.doer.Do(req)

	var status int
	if resp != nil {
		status = resp.StatusCode
	}

	return status, c.classify(ctx, req.Method, resp, err, fn)
}

// classify maps the engine's outcome to the client's errors. The first
// matching rule wins: 401, engine error, rejected status, missing or
// empty body.
func (c *Client) classify(ctx context.Context, method string, resp *http.Response, doErr error, fn execFn) error {
	if resp == nil {
		if doErr != nil {
			return doErr
		}
		return ErrUnknown
	}

	discardBody := true
	defer func() {
		if resp.Body == nil {
			return
		}
		if discardBody {
			if _, err := io.Copy(io.Discard, resp.Body); err != nil {
				c.logger.Error("failed to discard unused body", "error", err)
			}
		}
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode == http.StatusUnauthorized {
		return statusError(resp, ErrUnauthorized)
	}

	if doErr != nil {
		discardBody = false
		return doErr
	}

	if c.validateStatus && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		if resp.StatusCode >= 500 {
			return statusError(resp, ErrServerError)
		}
		return statusError(resp, ErrUnexpectedStatusCode)
	}

	if resp.Body == nil {
		return ErrUnableToDecodeData
	}

	if !allowsEmptyBody(method, resp.StatusCode) {
		br := bufio.NewReader(resp.Body)
		if _, err := br.Peek(1); err != nil {
			if errors.Is(err, io.EOF) {
				return ErrUnableToDecodeData
			}
			discardBody = false
			return err
		}
		resp.Body = struct {
			io.Reader
			io.Closer
		}{br, resp.Body}
	}

	if err := fn(ctx, resp); err != nil {
		discardBody = false
		return err
	}

	return nil
}

// allowsEmptyBody reports whether a successful response may carry no
// payload.
func allowsEmptyBody(method string, status int) bool {
	return method == http.MethodHead ||
		status == http.StatusNoContent ||
		status == http.StatusResetContent
}

// readInto returns an execFn that reads the whole body into dst.
// Read failures are engine errors and are returned unchanged.
func readInto(dst *[]byte) execFn {
	return func(_ context.Context, resp *http.Response) error {
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		*dst = b
		return nil
	}
}

func statusError(resp *http.Response, sentinel error) error {
	var body string
	if resp.Body != nil {
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
		if err != nil {
			b = []byte("unable to read body")
		}
		body = string(b)
	}

	return &UnexpectedStatusError{
		StatusCode: resp.StatusCode,
		Body:       body,
		Err:        sentinel,
	}
}

func defaultDownloadDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}

	return filepath.Join(base, "apiman", "downloads")
}
