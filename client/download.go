package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/adamwoolhether/apiman/client/download"
)

// ProgressSink receives progress for a download. Updates arrive on a
// separate goroutine; the transfer never waits for them, and a slow sink
// only sees the most recent progress.
type ProgressSink interface {
	DidUpdateProgress(p download.Progress, d Descriptor)
}

// ProgressSinkFunc adapts a function to a [ProgressSink].
type ProgressSinkFunc func(p download.Progress, d Descriptor)

func (f ProgressSinkFunc) DidUpdateProgress(p download.Progress, d Descriptor) {
	f(p, d)
}

// DownloadOption is a functional option for [Client.Download] and
// [Client.DownloadAll].
type DownloadOption func(*downloadOpts) error

type downloadOpts struct {
	dest     download.Destination
	sink     ProgressSink
	checksum bool
	dlOpts   []download.Option
}

// ToPath saves the file at exactly p, creating missing directories and
// replacing any existing file.
func ToPath(p string) DownloadOption {
	return func(opts *downloadOpts) error {
		if p == "" {
			return errors.New("destination path must not be empty")
		}
		opts.dest = download.ToPath(p)
		return nil
	}
}

// WithProgressSink reports transfer progress to sink.
func WithProgressSink(sink ProgressSink) DownloadOption {
	return func(opts *downloadOpts) error {
		if sink == nil {
			return errors.New("progress sink must not be nil")
		}
		opts.sink = sink
		return nil
	}
}

// Download executes d and streams the response body to disk, returning
// the path of the saved file.
//
// Without [ToPath] the file is saved in the client's download directory,
// named after the Content-Disposition header or the URL, with a numeric
// suffix if that name is taken. Nothing is written for a 401 response.
func (c *Client) Download(ctx context.Context, d Descriptor, optFns ...DownloadOption) (string, error) {
	opts, err := downloadSettings(optFns)
	if err != nil {
		return "", err
	}

	return c.download(ctx, d, opts)
}

// DownloadAll downloads every descriptor concurrently into the client's
// download directory and returns the saved paths in input order. The
// first failure cancels the remaining downloads and is returned alone.
func (c *Client) DownloadAll(ctx context.Context, ds []Descriptor, optFns ...DownloadOption) ([]string, error) {
	opts, err := downloadSettings(optFns)
	if err != nil {
		return nil, err
	}

	if opts.dest != nil {
		return nil, ErrPathInBatch
	}

	if opts.checksum {
		return nil, errors.New("checksum verification cannot be used in a batch download")
	}

	return runBatch(ctx, c.batchLimit, ds, func(ctx context.Context, d Descriptor) (string, error) {
		return c.download(ctx, d, opts)
	})
}

func (c *Client) download(ctx context.Context, d Descriptor, opts downloadOpts) (string, error) {
	var path string

	dlFunc := func(ctx context.Context, resp *http.Response) error {
		dest := opts.dest
		if dest == nil {
			dest = download.IntoDir(c.downloadDir)
		}

		source := d.target
		if resp.Request != nil && resp.Request.URL != nil {
			source = resp.Request.URL
		}

		dlOpts := append(slices.Clone(opts.dlOpts),
			download.WithFilename(download.SuggestedName(resp.Header.Get("Content-Disposition"), source)),
		)

		if opts.sink != nil {
			sink := opts.sink
			dlOpts = append(dlOpts, download.WithProgressFunc(func(p download.Progress) {
				sink.DidUpdateProgress(p, d)
			}))
		}

		p, err := download.Handle(ctx, resp.Body, resp.ContentLength, dest, c.logger, dlOpts...)
		if err != nil {
			return fmt.Errorf("download: %w", err)
		}

		if p == "" {
			return ErrUnableToDecodeData
		}

		path = p
		return nil
	}

	if err := c.execute(ctx, "apiman.download", d, Descriptor.encode, dlFunc); err != nil {
		return "", err
	}

	return path, nil
}

func downloadSettings(optFns []DownloadOption) (downloadOpts, error) {
	var opts downloadOpts
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return downloadOpts{}, fmt.Errorf("applying download option: %w", err)
		}
	}

	return opts, nil
}
