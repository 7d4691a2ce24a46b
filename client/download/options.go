package download

import (
	"errors"
	"hash"
)

// Option defines optional settings for downloading files.
//
// WithChecksum enables checksum validation of the downloaded file.
// h is a hash.Hash instance (e.g. sha256.New()), and expected is the
// hex-encoded expected checksum string.
//
// WithProgress enables periodic download progress logging via the
// logger supplied to Handle.
//
// WithProgressFunc registers fn to receive progress updates. Updates are
// delivered on a separate goroutine and never slow the transfer; when fn
// falls behind, intermediate updates are dropped in favour of the latest.
//
// WithFilename sets the name suggested to the Destination.
type Option func(*options) error

type options struct {
	checksum   *checksumVerifier
	progress   bool
	progressFn func(Progress)
	filename   string
}

func WithChecksum(h hash.Hash, expected string) Option {
	return func(opts *options) error {
		if h == nil {
			return errors.New("hash must not be nil")
		}

		if expected == "" {
			return errors.New("expected checksum must not be empty")
		}

		opts.checksum = &checksumVerifier{hash: h, expected: expected}
		return nil
	}
}

func WithProgress() Option {
	return func(opts *options) error {
		opts.progress = true
		return nil
	}
}

func WithProgressFunc(fn func(Progress)) Option {
	return func(opts *options) error {
		if fn == nil {
			return errors.New("progress func must not be nil")
		}

		opts.progressFn = fn
		return nil
	}
}

func WithFilename(name string) Option {
	return func(opts *options) error {
		opts.filename = name
		return nil
	}
}

// Validate reports whether opt can be applied, without using it.
func Validate(opt Option) error {
	var opts options
	return opt(&opts)
}
