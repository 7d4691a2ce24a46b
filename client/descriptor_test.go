package client_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/apiman/client"
	"github.com/adamwoolhether/apiman/internal/validate"
)

func TestNewDescriptor_Defaults(t *testing.T) {
	testCases := map[string]struct {
		method      string
		expMethod   string
		expEncoding client.Encoding
	}{
		"emptyIsGet":   {method: "", expMethod: http.MethodGet, expEncoding: client.EncodingURL},
		"get":          {method: http.MethodGet, expMethod: http.MethodGet, expEncoding: client.EncodingURL},
		"post":         {method: http.MethodPost, expMethod: http.MethodPost, expEncoding: client.EncodingJSON},
		"deleteIsJSON": {method: http.MethodDelete, expMethod: http.MethodDelete, expEncoding: client.EncodingJSON},
		"lowercasePut": {method: "put", expMethod: http.MethodPut, expEncoding: client.EncodingJSON},
		"hyphenated":   {method: "m-search", expMethod: "M-SEARCH", expEncoding: client.EncodingJSON},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			d, err := client.NewDescriptor(client.Endpoint("https://api.test/x"), tc.method)
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}

			if d.Method() != tc.expMethod {
				t.Errorf("exp method %q, got %q", tc.expMethod, d.Method())
			}
			if d.Encoding() != tc.expEncoding {
				t.Errorf("exp encoding %q, got %q", tc.expEncoding, d.Encoding())
			}
			if !d.RequiresAuth() {
				t.Error("expected authentication to be required by default")
			}
			if d.Timeout() != 0 {
				t.Errorf("expected no timeout, got %v", d.Timeout())
			}
			if diff := cmp.Diff(http.Header{"Accept": []string{"application/json"}}, d.Header()); diff != "" {
				t.Errorf("header mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewDescriptor_Invalid(t *testing.T) {
	testCases := map[string]struct {
		method    string
		opts      []client.DescriptorOption
		expFields []string
	}{
		"badMethod": {
			method:    "GE T",
			expFields: []string{"method"},
		},
		"methodWithSeparator": {
			method:    "GET/1",
			expFields: []string{"method"},
		},
		"badEncoding": {
			method:    http.MethodPost,
			opts:      []client.DescriptorOption{client.WithEncoding("xml")},
			expFields: []string{"encoding"},
		},
		"negativeTimeout": {
			method:    http.MethodGet,
			opts:      []client.DescriptorOption{client.WithRequestTimeout(-time.Second)},
			expFields: []string{"timeout"},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := client.NewDescriptor(client.Endpoint("https://api.test/x"), tc.method, tc.opts...)
			if !errors.Is(err, client.ErrInvalidDescriptor) {
				t.Fatalf("expected ErrInvalidDescriptor, got: %v", err)
			}

			var fe validate.FieldErrors
			if !errors.As(err, &fe) {
				t.Fatalf("expected FieldErrors in chain, got: %v", err)
			}

			if diff := cmp.Diff(tc.expFields, fe.Fields()); diff != "" {
				t.Errorf("fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewDescriptor_Immutable(t *testing.T) {
	target := client.Endpoint("https://api.test/items")
	params := client.Parameters{"page": 1}
	header := http.Header{"X-Trace": []string{"a"}}

	d, err := client.NewDescriptor(target, http.MethodGet,
		client.WithParameters(params),
		client.WithHeader(header),
	)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	target.Path = "/changed"
	params["page"] = 2
	header.Set("X-Trace", "b")

	d.Target().Path = "/also-changed"
	d.Parameters()["page"] = 3
	d.Header().Set("X-Trace", "c")

	if got := d.Target().Path; got != "/items" {
		t.Errorf("target changed to %q", got)
	}
	if got := d.Parameters()["page"]; got != 1 {
		t.Errorf("parameters changed to %v", got)
	}
	if got := d.Header().Get("X-Trace"); got != "a" {
		t.Errorf("header changed to %q", got)
	}
}

func TestEndpoint(t *testing.T) {
	testCases := map[string]struct {
		raw   string
		expOK bool
	}{
		"absolute":    {raw: "https://api.test/v1?x=1", expOK: true},
		"withPort":    {raw: "http://localhost:8080/", expOK: true},
		"relative":    {raw: "/v1/items"},
		"noScheme":    {raw: "api.test/v1"},
		"unparsable":  {raw: "://bad"},
		"controlChar": {raw: "https://api.test/\x7f"},
		"empty":       {raw: ""},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			got := client.Endpoint(tc.raw)
			if (got != nil) != tc.expOK {
				t.Errorf("Endpoint(%q) = %v, want ok=%v", tc.raw, got, tc.expOK)
			}
		})
	}
}
