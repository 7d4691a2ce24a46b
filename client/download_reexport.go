package client

import (
	"hash"

	"github.com/adamwoolhether/apiman/client/download"
)

// Type aliases re-exporting user-facing types from [download].
type (
	// DownloadError wraps a sentinel error with additional detail.
	DownloadError = download.Error

	// Progress is a snapshot of a transfer.
	Progress = download.Progress
)

// Sentinel errors re-exported from [download].
var (
	// ErrContentLengthMismatch indicates the byte count did not match Content-Length.
	ErrContentLengthMismatch = download.ErrContentLengthMismatch

	// ErrChecksumMismatch indicates the file checksum did not match the expected value.
	ErrChecksumMismatch = download.ErrChecksumMismatch

	// ErrDownloadCancelled indicates the download was cancelled via context.
	ErrDownloadCancelled = download.ErrDownloadCancelled
)

// WithChecksum enables checksum validation of the downloaded file.
// h is a [hash.Hash] instance (e.g. sha256.New()), and expected is the
// hex-encoded expected checksum string.
func WithChecksum(h hash.Hash, expected string) DownloadOption {
	return forward(download.WithChecksum(h, expected), func(opts *downloadOpts) {
		opts.checksum = true
	})
}

// WithProgressLog enables periodic download progress logging.
func WithProgressLog() DownloadOption {
	return forward(download.WithProgress(), nil)
}

// forward adapts a [download.Option] to a [DownloadOption], validating it
// eagerly so mistakes surface before any request is made.
func forward(opt download.Option, mark func(*downloadOpts)) DownloadOption {
	return func(opts *downloadOpts) error {
		if err := download.Validate(opt); err != nil {
			return err
		}
		if mark != nil {
			mark(opts)
		}
		opts.dlOpts = append(opts.dlOpts, opt)
		return nil
	}
}
