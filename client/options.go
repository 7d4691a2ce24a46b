package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/apiman/client/throttle"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error
type options struct {
	client            *http.Client
	rt                http.RoundTripper
	doer              Doer
	timeout           *time.Duration
	userAgent         string
	throttle          *throttle.Config
	noFollowRedirects bool
	logger            *slog.Logger
	auth              AuthProvider
	tracer            trace.Tracer
	requestIDHeader   string
	batchLimit        int
	downloadDir       string
	validateStatus    bool
}

// WithClient replaces the default [http.Client] used by the [Client].
// The client is copied; later changes to hc do not affect the [Client].
func WithClient(hc *http.Client) Option {
	return func(c *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		c.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		c.rt = rt
		return nil
	}
}

// WithDoer replaces the HTTP engine entirely. When set, the
// [http.Client] related options (WithClient, WithTransport, WithTimeout,
// WithUserAgent, WithThrottle, WithThrottlePerHost and
// WithNoFollowRedirects) have no effect.
func WithDoer(d Doer) Option {
	return func(c *options) error {
		if d == nil {
			return errors.New("doer must not be nil")
		}
		c.doer = d
		return nil
	}
}

// WithTimeout sets the overall request timeout on the underlying [http.Client].
func WithTimeout(d time.Duration) Option {
	return func(c *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		c.timeout = &d
		return nil
	}
}

// WithUserAgent adds a persistent User-Agent header to all outgoing requests.
func WithUserAgent(header string) Option {
	return func(c *options) error {
		c.userAgent = header
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting with the given requests
// per second and burst capacity, shared by all hosts.
func WithThrottle(rps, burst int) Option {
	return withThrottle(throttle.Config{RPS: rps, Burst: burst})
}

// WithThrottlePerHost is like [WithThrottle] but keeps a separate bucket
// for every destination host.
func WithThrottlePerHost(rps, burst int) Option {
	return withThrottle(throttle.Config{RPS: rps, Burst: burst, PerHost: true})
}

func withThrottle(cfg throttle.Config) Option {
	return func(c *options) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuring throttle: %w", err)
		}
		c.throttle = &cfg
		return nil
	}
}

// WithNoFollowRedirects prevents the [Client] from following HTTP redirects.
func WithNoFollowRedirects() Option {
	return func(c *options) error {
		c.noFollowRedirects = true
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(c *options) error {
		c.logger = logger
		return nil
	}
}

// WithAuthProvider sets the source of authentication headers.
func WithAuthProvider(p AuthProvider) Option {
	return func(c *options) error {
		if p == nil {
			return errors.New("auth provider must not be nil")
		}
		c.auth = p
		return nil
	}
}

// WithTracer records a client span for every call.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *options) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		c.tracer = tracer
		return nil
	}
}

// WithRequestIDHeader sends the per-call request ID in the named header.
func WithRequestIDHeader(name string) Option {
	return func(c *options) error {
		if name == "" {
			return errors.New("request id header name must not be empty")
		}
		c.requestIDHeader = name
		return nil
	}
}

// WithBatchLimit caps the number of calls a batch runs at once.
// Zero means unlimited.
func WithBatchLimit(n int) Option {
	return func(c *options) error {
		if n < 0 {
			return errors.New("batch limit must not be negative")
		}
		c.batchLimit = n
		return nil
	}
}

// WithDownloadDir sets the directory downloads land in when no explicit
// path is given.
func WithDownloadDir(dir string) Option {
	return func(c *options) error {
		if dir == "" {
			return errors.New("download dir must not be empty")
		}
		c.downloadDir = dir
		return nil
	}
}

// WithStatusValidation rejects non-2xx responses with an
// [UnexpectedStatusError]. Without it only 401 is treated as a failure.
func WithStatusValidation() Option {
	return func(c *options) error {
		c.validateStatus = true
		return nil
	}
}

// userAgent is an http.RoundTripper, enabling the persistent User-Agent header.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}
