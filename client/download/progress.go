package download

import (
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Progress is a snapshot of a transfer. Total is -1 when the size is unknown.
type Progress struct {
	Completed int64
	Total     int64
}

// Fraction returns the completed share in [0, 1], or 0 when Total is unknown.
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}

	return float64(p.Completed) / float64(p.Total)
}

// progressWriter is an io.Writer that counts transferred bytes, logging
// progress at most once per second if enabled and publishing every
// update to notify if set.
type progressWriter struct {
	w           io.Writer
	logger      *slog.Logger
	log         bool
	notify      *notifier
	transferred int64
	total       int64
	startTime   time.Time
	lastLog     time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	pw.transferred += int64(n)

	if pw.notify != nil && n > 0 {
		pw.notify.publish(Progress{Completed: pw.transferred, Total: pw.total})
	}

	if !pw.log {
		return n, err
	}

	if time.Since(pw.lastLog) >= time.Second {
		pw.lastLog = time.Now()
		pw.logLine("downloading")
	}

	if pw.total >= 0 && pw.transferred == pw.total {
		pw.logLine("download complete")
	}

	return n, err
}

func (pw *progressWriter) logLine(msg string) {
	elapsed := time.Since(pw.startTime)

	progress := "unknown"
	if pw.total > 0 {
		progress = fmt.Sprintf("%.1f%%", float64(pw.transferred)/float64(pw.total)*100)
	}

	attrs := []any{
		"progress", progress,
		"elapsed", elapsed.Round(time.Millisecond),
		"transferred", pw.transferred,
		"total", pw.total,
		"mbps", fmt.Sprintf("%.2f", float64(pw.transferred)/elapsed.Seconds()/(1024*1024)),
	}
	pw.logger.Info(msg, attrs...)
}

// notifier hands progress updates to a callback on its own goroutine.
// It holds at most one pending update: publishing never blocks, and a
// slow callback only ever sees the newest snapshot.
type notifier struct {
	fn     func(Progress)
	logger *slog.Logger
	ch     chan Progress
}

func newNotifier(fn func(Progress), logger *slog.Logger) *notifier {
	n := &notifier{
		fn:     fn,
		logger: logger,
		ch:     make(chan Progress, 1),
	}

	go n.run()

	return n
}

// publish must only be called from a single goroutine.
func (n *notifier) publish(p Progress) {
	for {
		select {
		case n.ch <- p:
			return
		default:
		}

		// Drop the stale pending update, if the callback hasn't taken it yet.
		select {
		case <-n.ch:
		default:
		}
	}
}

// close stops accepting updates. The pending update, if any, is still delivered.
func (n *notifier) close() {
	close(n.ch)
}

func (n *notifier) run() {
	for p := range n.ch {
		n.deliver(p)
	}
}

func (n *notifier) deliver(p Progress) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("progress callback panicked", "panic", r)
		}
	}()

	n.fn(p)
}
