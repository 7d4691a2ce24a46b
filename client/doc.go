// Package client executes described HTTP calls, alone or in parallel
// batches, with authentication headers supplied by an [AuthProvider].
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := client.Build(
//		client.WithTimeout(10 * time.Second),
//		client.WithUserAgent("myapp/1.0"),
//		client.WithAuthProvider(client.BearerToken(token)),
//	)
//
// # Describing Calls
//
// A [Descriptor] carries everything needed for one call. Defaults are
// GET, "Accept: application/json", authentication required and URL
// encoding for GET (JSON otherwise):
//
//	d, err := client.NewDescriptor(client.Endpoint("https://api.example.com/v1/items"), http.MethodGet,
//		client.WithParameters(client.Parameters{"page": 2}),
//	)
//	body, err := c.Perform(ctx, d)
//
// # Batches
//
// [Client.PerformAll] runs descriptors concurrently and returns bodies in
// input order. The first failure cancels the rest:
//
//	bodies, err := c.PerformAll(ctx, []client.Descriptor{d1, d2, d3})
//
// # Downloading Files
//
// Stream a response body to disk, optionally reporting progress:
//
//	path, err := c.Download(ctx, d,
//		client.ToPath("/tmp/file.bin"),
//		client.WithChecksum(sha256.New(), expectedHex),
//		client.WithProgressSink(sink),
//	)
//
// Without [ToPath] the file lands in the client's download directory.
//
// # Uploading
//
// [Client.Upload] sends multipart form data written by the descriptor's
// Build func:
//
//	body, err := c.Upload(ctx, client.UploadDescriptor{
//		Descriptor: d,
//		Build: func(f *client.Form) error {
//			return f.AppendFile("file", "report.csv", r)
//		},
//	})
//
// # Errors
//
// A 401 response always fails with [ErrUnauthorized]. Engine errors are
// returned unchanged. Other statuses are returned as data unless
// [WithStatusValidation] is set.
//
// For lower-level control see the
// [github.com/adamwoolhether/apiman/client/download] package.
package client
