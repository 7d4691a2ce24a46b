// Package apiman exposes the client builder.
package apiman

import (
	"fmt"

	"github.com/adamwoolhether/apiman/client"
	"github.com/adamwoolhether/apiman/config"
)

// NewClient instantiates a new *Client with the provided options.
// If not specified, a fresh http.Client over http.DefaultTransport is used.
func NewClient(opts ...client.Option) (*client.Client, error) {
	return client.Build(opts...)
}

// NewClientFromFile builds a *Client from the YAML configuration at path.
// opts are applied after the file's settings and take precedence.
func NewClientFromFile(path string, opts ...client.Option) (*client.Client, error) {
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	cfgOpts, err := cfg.Options()
	if err != nil {
		return nil, fmt.Errorf("converting config: %w", err)
	}

	return client.Build(append(cfgOpts, opts...)...)
}
