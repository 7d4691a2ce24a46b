package download

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandle_ToPath(t *testing.T) {
	expBody := []byte("hello download world")
	destPath := filepath.Join(t.TempDir(), "nested", "deeper", "file.bin")

	got, err := Handle(t.Context(), bytes.NewReader(expBody), int64(len(expBody)), ToPath(destPath), discardLogger())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if got != destPath {
		t.Errorf("exp path %q, got %q", destPath, got)
	}

	data, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}

	if !bytes.Equal(data, expBody) {
		t.Errorf("file contents mismatch; got %q, want %q", data, expBody)
	}

	assertNoTempFiles(t, filepath.Dir(destPath))
}

func TestHandle_ToPathOverwrites(t *testing.T) {
	destPath := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(destPath, []byte("old contents that are longer"), 0o644); err != nil {
		t.Fatal(err)
	}

	expBody := []byte("new")
	if _, err := Handle(t.Context(), bytes.NewReader(expBody), -1, ToPath(destPath), discardLogger()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	data, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(data, expBody) {
		t.Errorf("expected existing file to be replaced; got %q", data)
	}
}

func TestHandle_EmptyDestination(t *testing.T) {
	testCases := map[string]Destination{
		"nil":       nil,
		"emptyPath": ToPath(""),
		"emptyDir":  IntoDir(""),
	}

	for name, dest := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := Handle(t.Context(), strings.NewReader("x"), 1, dest, discardLogger())
			if !errors.Is(err, ErrNoDestination) {
				t.Errorf("expected ErrNoDestination, got: %v", err)
			}
		})
	}
}

func TestHandle_Checksum(t *testing.T) {
	body := []byte("checksum test data")
	sum := sha256.Sum256(body)
	good := hex.EncodeToString(sum[:])

	testCases := map[string]struct {
		expected string
		expErr   error
	}{
		"pass":          {expected: good},
		"passUppercase": {expected: strings.ToUpper(good)},
		"fail":          {expected: strings.Repeat("0", 64), expErr: ErrChecksumMismatch},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			destPath := filepath.Join(dir, "sum.bin")

			_, err := Handle(t.Context(), bytes.NewReader(body), int64(len(body)), ToPath(destPath), discardLogger(),
				WithChecksum(sha256.New(), tc.expected),
			)
			if !errors.Is(err, tc.expErr) {
				t.Fatalf("exp err %v, got: %v", tc.expErr, err)
			}

			if tc.expErr != nil {
				if _, err := os.Stat(destPath); !errors.Is(err, os.ErrNotExist) {
					t.Errorf("destination should not exist after failure, stat err: %v", err)
				}
				assertNoTempFiles(t, dir)
			}
		})
	}
}

func TestHandle_ChecksumHashReused(t *testing.T) {
	body := []byte("checksum test data")
	sum := sha256.Sum256(body)

	h := sha256.New()
	_, _ = h.Write([]byte("left over from an earlier download"))

	opt := WithChecksum(h, hex.EncodeToString(sum[:]))
	dir := t.TempDir()

	for i := range 2 {
		_, err := Handle(t.Context(), bytes.NewReader(body), int64(len(body)), ToPath(filepath.Join(dir, "sum.bin")), discardLogger(), opt)
		if err != nil {
			t.Fatalf("attempt %d: expected no error, got: %v", i, err)
		}
	}
}

func TestHandle_ContentLengthMismatch(t *testing.T) {
	dir := t.TempDir()

	_, err := Handle(t.Context(), strings.NewReader("short"), 100, ToPath(filepath.Join(dir, "f")), discardLogger())
	if !errors.Is(err, ErrContentLengthMismatch) {
		t.Fatalf("expected ErrContentLengthMismatch, got: %v", err)
	}

	var dlErr *Error
	if !errors.As(err, &dlErr) {
		t.Fatalf("expected *Error, got %T", err)
	}

	if dlErr.Detail != "expected 100 bytes, got 5" {
		t.Errorf("unexpected detail: %q", dlErr.Detail)
	}

	assertNoTempFiles(t, dir)
}

func TestHandle_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	dir := t.TempDir()
	_, err := Handle(ctx, strings.NewReader("data"), -1, ToPath(filepath.Join(dir, "f")), discardLogger())
	if !errors.Is(err, ErrDownloadCancelled) {
		t.Errorf("expected ErrDownloadCancelled, got: %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got: %v", err)
	}

	assertNoTempFiles(t, dir)
}

func TestHandle_IntoDir(t *testing.T) {
	dir := t.TempDir()

	var got []string
	for range 3 {
		p, err := Handle(t.Context(), strings.NewReader("x"), 1, IntoDir(dir), discardLogger(), WithFilename("report.pdf"))
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		got = append(got, filepath.Base(p))
	}

	exp := []string{"report.pdf", "report-1.pdf", "report-2.pdf"}
	if diff := cmp.Diff(exp, got); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestHandle_IntoDirConcurrentClaims(t *testing.T) {
	dir := t.TempDir()
	const total = 8

	var mu sync.Mutex
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	for range total {
		wg.Go(func() {
			p, err := Handle(t.Context(), strings.NewReader("data"), 4, IntoDir(dir), discardLogger(), WithFilename("same.txt"))
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			mu.Lock()
			defer mu.Unlock()
			if seen[p] {
				t.Errorf("path %s claimed twice", p)
			}
			seen[p] = true
		})
	}
	wg.Wait()

	if len(seen) != total {
		t.Errorf("expected %d distinct files, got %d", total, len(seen))
	}
}

func TestHandle_ProgressFunc(t *testing.T) {
	body := bytes.Repeat([]byte("abcdefghij"), 10000) // 100KB

	var mu sync.Mutex
	var updates []Progress
	done := make(chan struct{})

	fn := func(p Progress) {
		mu.Lock()
		defer mu.Unlock()
		updates = append(updates, p)
		if p.Completed == int64(len(body)) {
			close(done)
		}
	}

	_, err := Handle(t.Context(), bytes.NewReader(body), int64(len(body)), ToPath(filepath.Join(t.TempDir(), "p.bin")), discardLogger(),
		WithProgressFunc(fn),
	)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("final progress update was not delivered")
	}

	mu.Lock()
	defer mu.Unlock()

	var last int64
	for _, u := range updates {
		if u.Completed < last {
			t.Errorf("progress went backwards: %d after %d", u.Completed, last)
		}
		if u.Total != int64(len(body)) {
			t.Errorf("exp total %d, got %d", len(body), u.Total)
		}
		last = u.Completed
	}
}

func TestHandle_SlowProgressFuncDoesNotBlock(t *testing.T) {
	body := bytes.Repeat([]byte("x"), 64*1024)
	release := make(chan struct{})
	defer close(release)

	fn := func(Progress) {
		<-release
	}

	start := time.Now()
	_, err := Handle(t.Context(), iotestChunked(body, 1024), int64(len(body)), ToPath(filepath.Join(t.TempDir(), "slow.bin")), discardLogger(),
		WithProgressFunc(fn),
	)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("blocked progress func delayed the transfer: %v", elapsed)
	}
}

func TestHandle_PanickingProgressFunc(t *testing.T) {
	body := []byte("panic safe")
	destPath := filepath.Join(t.TempDir(), "panic.bin")

	_, err := Handle(t.Context(), bytes.NewReader(body), int64(len(body)), ToPath(destPath), discardLogger(),
		WithProgressFunc(func(Progress) { panic("sink exploded") }),
	)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	data, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, body) {
		t.Errorf("file contents mismatch; got %q", data)
	}
}

func TestHandle_ProgressLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	body := []byte("logged")

	_, err := Handle(t.Context(), bytes.NewReader(body), int64(len(body)), ToPath(filepath.Join(t.TempDir(), "l.bin")), logger, WithProgress())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if !strings.Contains(buf.String(), "download complete") {
		t.Errorf("expected completion log line, got: %s", buf.String())
	}
}

func TestProgress_Fraction(t *testing.T) {
	testCases := map[string]struct {
		p   Progress
		exp float64
	}{
		"half":    {p: Progress{Completed: 5, Total: 10}, exp: 0.5},
		"unknown": {p: Progress{Completed: 5, Total: -1}, exp: 0},
		"empty":   {p: Progress{Completed: 0, Total: 0}, exp: 0},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			if got := tc.p.Fraction(); got != tc.exp {
				t.Errorf("exp %v, got %v", tc.exp, got)
			}
		})
	}
}

func TestSuggestedName(t *testing.T) {
	mustURL := func(raw string) *url.URL {
		u, err := url.Parse(raw)
		if err != nil {
			t.Fatal(err)
		}
		return u
	}

	testCases := map[string]struct {
		disposition string
		u           *url.URL
		exp         string
	}{
		"fromDisposition":   {disposition: `attachment; filename="report.pdf"`, u: mustURL("https://x.test/a/b"), exp: "report.pdf"},
		"dispositionPath":   {disposition: `attachment; filename="../../etc/passwd"`, exp: "passwd"},
		"fromURL":           {u: mustURL("https://x.test/files/archive.tar.gz?x=1"), exp: "archive.tar.gz"},
		"badDisposition":    {disposition: `;;;`, u: mustURL("https://x.test/data.json"), exp: "data.json"},
		"emptyURLPath":      {u: mustURL("https://x.test"), exp: "download"},
		"rootURLPath":       {u: mustURL("https://x.test/"), exp: "download"},
		"nothing":           {exp: "download"},
		"windowsSeparators": {disposition: `attachment; filename="C:\\tmp\\win.txt"`, exp: "win.txt"},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			if got := SuggestedName(tc.disposition, tc.u); got != tc.exp {
				t.Errorf("exp %q, got %q", tc.exp, got)
			}
		})
	}
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}

	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".apiman-dl-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

// iotestChunked returns a reader yielding b in chunks of size n so the
// progress writer sees many small writes.
func iotestChunked(b []byte, n int) io.Reader {
	return &chunkReader{b: b, n: n}
}

type chunkReader struct {
	b []byte
	n int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.b) == 0 {
		return 0, io.EOF
	}

	size := min(r.n, len(p), len(r.b))
	copy(p, r.b[:size])
	r.b = r.b[size:]

	return size, nil
}
