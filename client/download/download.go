package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// Handle streams body to a temp file in dest's directory and renames it
// to the path claimed from dest on success. On any error the temp file
// is removed. It returns the final path of the file.
func Handle(ctx context.Context, body io.Reader, contentLength int64, dest Destination, logger *slog.Logger, optFns ...Option) (string, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return "", fmt.Errorf("applying option: %w", err)
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	if dest == nil || dest.Dir() == "" {
		return "", ErrNoDestination
	}

	dir := dest.Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating destination directory: %w", err)
	}

	body = &contextReader{ctx: ctx, r: body}

	file, err := os.CreateTemp(dir, ".apiman-dl-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}

	var successful bool
	defer func() {
		if err := file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			logger.Error("defer closing temp file", "error", err)
		}
		if !successful {
			if err := os.Remove(file.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
				logger.Error("failed to remove temp file", "error", err)
			}
		}
	}()

	var writer io.Writer = file
	if opts.checksum != nil {
		opts.checksum.reset()
		writer = io.MultiWriter(writer, opts.checksum)
	}

	if opts.progress || opts.progressFn != nil {
		pw := &progressWriter{
			w:         writer,
			logger:    logger,
			log:       opts.progress,
			total:     contentLength,
			startTime: time.Now(),
		}
		if opts.progressFn != nil {
			pw.notify = newNotifier(opts.progressFn, logger)
			defer pw.notify.close()
		}
		writer = pw
	}

	n, err := io.Copy(writer, body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%w: %w", ErrDownloadCancelled, ctxErr)
		}

		return "", fmt.Errorf("copying file body: %w", err)
	}

	if contentLength >= 0 && n != contentLength {
		return "", &Error{
			Err:    ErrContentLengthMismatch,
			Detail: fmt.Sprintf("expected %d bytes, got %d", contentLength, n),
		}
	}

	if err := opts.checksum.Verify(); err != nil {
		return "", err
	}

	if err := file.Sync(); err != nil {
		return "", fmt.Errorf("syncing temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	final, err := dest.Claim(opts.filename)
	if err != nil {
		return "", fmt.Errorf("claiming destination: %w", err)
	}

	if err := os.Rename(file.Name(), final); err != nil {
		if _, reserved := dest.(dirDestination); reserved {
			_ = os.Remove(final)
		}
		return "", fmt.Errorf("renaming temp file: %w", err)
	}

	successful = true

	return final, nil
}

// contextReader stops a copy as soon as ctx ends.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}

	return cr.r.Read(p)
}
