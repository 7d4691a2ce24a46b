// Package download streams HTTP response bodies to disk with optional
// checksum validation, progress logging, and progress notifications.
//
// # Single Download
//
// [Handle] writes the body to a temporary file in the destination's
// directory, then renames it into place on success:
//
//	path, err := download.Handle(ctx, resp.Body, resp.ContentLength,
//		download.ToPath("/tmp/file.bin"), logger,
//		download.WithProgressFunc(func(p download.Progress) { ... }),
//	)
//
// # Destinations
//
// [ToPath] materialises the file at exactly the given path, creating
// missing directories and replacing any existing file. [IntoDir] lets the
// download pick its own name inside a directory, suffixing the name when
// it is already taken.
//
// Most callers should use the higher-level
// [github.com/adamwoolhether/apiman/client] package, which invokes
// Handle internally.
package download
