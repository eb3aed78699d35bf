package upstream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
)

// idleTimer cancels the request when it is not reset in time.
type idleTimer struct {
	timer   *time.Timer
	expired atomic.Bool
}

func newIdleTimer(d time.Duration, cancel context.CancelFunc) *idleTimer {
	t := &idleTimer{}
	if d > 0 {
		t.timer = time.AfterFunc(d, func() {
			t.expired.Store(true)
			cancel()
		})
	}
	return t
}

func (t *idleTimer) reset(d time.Duration) {
	if t.timer == nil || d <= 0 {
		return
	}
	t.timer.Reset(d)
}

func (t *idleTimer) stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *idleTimer) fired() bool { return t.expired.Load() }

// sseStream reads an OpenAI-style SSE body and yields delta contents.
type sseStream struct {
	ctx          context.Context
	body         io.ReadCloser
	scanner      *bufio.Scanner
	cancel       context.CancelFunc
	idle         *idleTimer
	chunkTimeout time.Duration
	client       *Client

	done      bool
	closeOnce sync.Once
}

func newSSEStream(ctx context.Context, body io.ReadCloser, cancel context.CancelFunc, idle *idleTimer, chunkTimeout time.Duration, c *Client) *sseStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseStream{
		ctx:          ctx,
		body:         body,
		scanner:      scanner,
		cancel:       cancel,
		idle:         idle,
		chunkTimeout: chunkTimeout,
		client:       c,
	}
}

// Recv returns the next non-empty content fragment.
func (s *sseStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}

	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		s.idle.reset(s.chunkTimeout)

		if data == "[DONE]" {
			return "", s.finish(io.EOF)
		}
		if !gjson.Valid(data) {
			return "", s.finish(fmt.Errorf("%w: %q", ErrMalformedChunk, truncate(data, 128)))
		}

		if e := gjson.Get(data, "error"); e.Exists() {
			msg := e.Get("message").String()
			if msg == "" {
				msg = e.String()
			}
			return "", s.finish(&APIError{StatusCode: 200, Message: msg})
		}

		if content := gjson.Get(data, "choices.0.delta.content").String(); content != "" {
			return content, nil
		}
	}

	switch {
	case s.idle.fired():
		return "", s.finish(ErrStreamIdle)
	case s.ctx.Err() != nil:
		return "", s.finish(s.ctx.Err())
	case s.scanner.Err() != nil:
		return "", s.finish(fmt.Errorf("read upstream stream: %w", s.scanner.Err()))
	}
	// Body ended without [DONE]; treat it as a normal end of stream.
	return "", s.finish(io.EOF)
}

// finish records the outcome once and returns err.
func (s *sseStream) finish(err error) error {
	if s.done {
		return err
	}
	s.done = true
	s.idle.stop()

	switch {
	case err == io.EOF:
		s.client.recordSuccess()
	case s.ctx.Err() != nil && !s.idle.fired():
		// Caller went away; not the upstream's fault.
	default:
		s.client.recordFailure(err)
	}
	return err
}

func (s *sseStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.idle.stop()
		s.cancel()
		err = s.body.Close()
	})
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
