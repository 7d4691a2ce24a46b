package client

import (
	"context"
	"encoding/base64"
)

// AuthHeader is a single header carrying credentials.
type AuthHeader struct {
	Name  string
	Value string
}

// AuthProvider supplies the authentication header for a call. It is
// asked once per call that requires authentication, immediately before
// the request is sent, and must be safe for concurrent use.
type AuthProvider interface {
	AuthenticationHeader(ctx context.Context) (AuthHeader, error)
}

// AuthProviderFunc adapts a function to an [AuthProvider].
type AuthProviderFunc func(ctx context.Context) (AuthHeader, error)

func (f AuthProviderFunc) AuthenticationHeader(ctx context.Context) (AuthHeader, error) {
	return f(ctx)
}

// StaticHeader returns an [AuthProvider] that always yields name: value.
func StaticHeader(name, value string) AuthProvider {
	return AuthProviderFunc(func(context.Context) (AuthHeader, error) {
		return AuthHeader{Name: name, Value: value}, nil
	})
}

// BearerToken returns an [AuthProvider] for "Authorization: Bearer <token>".
func BearerToken(token string) AuthProvider {
	return StaticHeader("Authorization", "Bearer "+token)
}

// BasicAuth returns an [AuthProvider] for HTTP basic authentication.
func BasicAuth(username, password string) AuthProvider {
	creds := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return StaticHeader("Authorization", "Basic "+creds)
}
