package client

import (
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adamwoolhether/apiman/internal/validate"
)

// Parameters are the values encoded into a request according to its [Encoding].
type Parameters map[string]any

// Descriptor describes a single HTTP call. It is immutable once built
// with [NewDescriptor] and safe to share between goroutines.
type Descriptor struct {
	target       *url.URL
	method       string
	parameters   Parameters
	header       http.Header
	encoding     Encoding
	timeout      time.Duration
	requiresAuth bool
}

// DescriptorOption is a functional option for [NewDescriptor].
type DescriptorOption func(*Descriptor) error

// descriptorFields is the validated view of a Descriptor.
type descriptorFields struct {
	Method   string        `json:"method" validate:"required,httptoken"`
	Encoding Encoding      `json:"encoding" validate:"oneof=url json"`
	Timeout  time.Duration `json:"timeout" validate:"gte=0"`
}

// NewDescriptor builds a Descriptor for target. An empty method means GET.
//
// Unless overridden, the descriptor sends "Accept: application/json",
// requires authentication, and uses [EncodingURL] for GET and
// [EncodingJSON] for every other method.
//
// A nil target is accepted; executing such a descriptor fails with
// [ErrNotFound] without touching the network.
func NewDescriptor(target *url.URL, method string, opts ...DescriptorOption) (Descriptor, error) {
	d := Descriptor{
		method:       strings.ToUpper(method),
		requiresAuth: true,
	}

	if target != nil {
		u := *target
		d.target = &u
	}

	if d.method == "" {
		d.method = http.MethodGet
	}

	for _, opt := range opts {
		if err := opt(&d); err != nil {
			return Descriptor{}, fmt.Errorf("applying descriptor option: %w", err)
		}
	}

	if d.encoding == "" {
		d.encoding = EncodingJSON
		if d.method == http.MethodGet {
			d.encoding = EncodingURL
		}
	}

	fields := descriptorFields{
		Method:   d.method,
		Encoding: d.encoding,
		Timeout:  d.timeout,
	}
	if err := validate.Check(fields); err != nil {
		return Descriptor{}, fmt.Errorf("%w: %w", ErrInvalidDescriptor, err)
	}

	return d, nil
}

// WithParameters sets the parameters encoded into the request.
func WithParameters(params Parameters) DescriptorOption {
	return func(d *Descriptor) error {
		d.parameters = maps.Clone(params)
		return nil
	}
}

// WithHeader sets the request headers. A non-nil header replaces the
// default "Accept: application/json" entirely rather than merging with it.
func WithHeader(h http.Header) DescriptorOption {
	return func(d *Descriptor) error {
		d.header = h.Clone()
		return nil
	}
}

// WithEncoding overrides the default parameter encoding.
func WithEncoding(e Encoding) DescriptorOption {
	return func(d *Descriptor) error {
		d.encoding = e
		return nil
	}
}

// WithoutAuthentication marks the call as public: no authentication
// header is requested from the [AuthProvider].
func WithoutAuthentication() DescriptorOption {
	return func(d *Descriptor) error {
		d.requiresAuth = false
		return nil
	}
}

// WithRequestTimeout bounds the whole call, including reading the body.
// Zero means no per-call deadline.
func WithRequestTimeout(timeout time.Duration) DescriptorOption {
	return func(d *Descriptor) error {
		d.timeout = timeout
		return nil
	}
}

// Target returns a copy of the target URL, or nil if there is none.
func (d Descriptor) Target() *url.URL {
	if d.target == nil {
		return nil
	}

	u := *d.target
	return &u
}

func (d Descriptor) Method() string         { return d.method }
func (d Descriptor) Encoding() Encoding     { return d.encoding }
func (d Descriptor) RequiresAuth() bool     { return d.requiresAuth }
func (d Descriptor) Timeout() time.Duration { return d.timeout }

// Parameters returns a copy of the descriptor's parameters.
func (d Descriptor) Parameters() Parameters {
	return maps.Clone(d.parameters)
}

// Header returns a copy of the header set that will be sent, before
// authentication is applied.
func (d Descriptor) Header() http.Header {
	if d.header == nil {
		return http.Header{"Accept": []string{"application/json"}}
	}

	return d.header.Clone()
}

// Endpoint parses raw as an absolute URL. It returns nil when raw cannot
// be parsed or lacks a scheme or host, which yields a descriptor that
// fails with [ErrNotFound].
func Endpoint(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil
	}

	return u
}
