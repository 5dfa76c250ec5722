package server

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/nftp/src/protocol"
	logs "github.com/danmuck/smplog"
)

// deadlineWriter is the slice of net.Conn the error path needs.
type deadlineWriter interface {
	io.Writer
	SetWriteDeadline(t time.Time) error
}

// errorReporter delivers the generic error frame with bounded retry.
type errorReporter struct {
	retry        RetryConfig
	writeTimeout time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
	metrics      *Metrics
}

func newErrorReporter(cfg Config, m *Metrics) *errorReporter {
	return &errorReporter{
		retry:        cfg.Retry,
		writeTimeout: cfg.WriteTimeout,
		sleep:        sleepContext,
		metrics:      m,
	}
}

// send writes the error header for v. The first attempt is immediate; each
// retry waits for the next backoff step. A partial write is resumed, never
// restarted, so the peer sees at most one header.
func (r *errorReporter) send(ctx context.Context, w deadlineWriter, addr string, v protocol.Version) error {
	frame := protocol.NewErrorHeader(v).Bytes()
	written := 0
	var lastErr error

	for attempt := 0; attempt <= r.retry.Attempts; attempt++ {
		if attempt > 0 {
			delay := NextBackoffDelay(r.retry.Backoff, attempt)
			logs.Debugf("conn %s: error frame retry %d/%d in %s", addr, attempt, r.retry.Attempts, delay)
			if err := r.sleep(ctx, delay); err != nil {
				r.metrics.errorFrame(false)
				return fmt.Errorf("%w: retry interrupted: %v", protocol.ErrResponseDelivery, err)
			}
		}

		r.metrics.errorAttempt()
		if r.writeTimeout > 0 {
			_ = w.SetWriteDeadline(time.Now().Add(r.writeTimeout))
		}
		n, err := w.Write(frame[written:])
		written += n
		if err == nil && written == len(frame) {
			r.metrics.errorFrame(true)
			return nil
		}
		if err == nil {
			err = io.ErrShortWrite
		}
		lastErr = err
		logs.Warnf("conn %s: error frame attempt %d failed: %v", addr, attempt+1, err)
	}

	r.metrics.errorFrame(false)
	return fmt.Errorf("%w: gave up after %d attempts: %v", protocol.ErrResponseDelivery, r.retry.Attempts+1, lastErr)
}
