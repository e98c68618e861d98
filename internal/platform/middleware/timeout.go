package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout sets a deadline on each request context. When it passes
// before the handler returns, the client gets 504 and the handler's context
// is cancelled so store calls abort. Handler output is buffered until the
// handler finishes and dropped once the 504 is sent. The middleware does not
// return until the handler goroutine has, so the echo.Context is never shared
// past the request. A zero timeout disables the middleware.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	if timeout <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()

			c.SetRequest(c.Request().WithContext(ctx))

			res := c.Response()
			orig := res.Writer
			dw := newDeadlineWriter(orig.Header())
			res.Writer = dw

			done := make(chan error, 1)
			panicked := make(chan interface{}, 1)
			go func() {
				defer func() {
					if r := recover(); r != nil {
						panicked <- r
						done <- nil
					}
				}()
				done <- next(c)
			}()

			select {
			case err := <-done:
				return finish(c, orig, dw, err, panicked)
			case <-ctx.Done():
			}

			if ctx.Err() != context.DeadlineExceeded {
				// client went away; let the handler wind down on its cancelled context
				err := <-done
				return finish(c, orig, dw, err, panicked)
			}

			dw.expire()
			n := writeGatewayTimeout(orig)
			<-done
			res.Writer = orig
			if r := drainPanic(panicked); r != nil {
				panic(r)
			}
			res.Status = http.StatusGatewayTimeout
			res.Size = n
			res.Committed = true
			return nil
		}
	}
}

// finish restores the real writer and copies out what the handler wrote.
func finish(c echo.Context, orig http.ResponseWriter, dw *deadlineWriter, err error, panicked chan interface{}) error {
	c.Response().Writer = orig
	if r := drainPanic(panicked); r != nil {
		panic(r)
	}
	dw.flushTo(orig)
	return err
}

func drainPanic(panicked chan interface{}) interface{} {
	select {
	case r := <-panicked:
		return r
	default:
		return nil
	}
}

func writeGatewayTimeout(w http.ResponseWriter) int64 {
	body, _ := json.Marshal(map[string]interface{}{
		"error":   "timeout",
		"message": "request processing exceeded the allowed time limit",
	})
	body = append(body, '\n')
	w.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	w.WriteHeader(http.StatusGatewayTimeout)
	n, _ := w.Write(body)
	return int64(n)
}

// deadlineWriter collects the handler's response so it can be discarded
// after a timeout. Writes after expiry fail with http.ErrHandlerTimeout.
type deadlineWriter struct {
	mu          sync.Mutex
	header      http.Header
	buf         bytes.Buffer
	code        int
	wroteHeader bool
	expired     bool
}

func newDeadlineWriter(h http.Header) *deadlineWriter {
	return &deadlineWriter{header: h.Clone()}
}

func (w *deadlineWriter) Header() http.Header { return w.header }

func (w *deadlineWriter) WriteHeader(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.expired || w.wroteHeader {
		return
	}
	w.code = code
	w.wroteHeader = true
}

func (w *deadlineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.expired {
		return 0, http.ErrHandlerTimeout
	}
	if !w.wroteHeader {
		w.code = http.StatusOK
		w.wroteHeader = true
	}
	return w.buf.Write(p)
}

func (w *deadlineWriter) expire() {
	w.mu.Lock()
	w.expired = true
	w.mu.Unlock()
}

// flushTo must only run once the handler goroutine has returned.
func (w *deadlineWriter) flushTo(dst http.ResponseWriter) {
	w.mu.Lock()
	defer w.mu.Unlock()
	h := dst.Header()
	for k, v := range w.header {
		h[k] = v
	}
	if !w.wroteHeader {
		return
	}
	dst.WriteHeader(w.code)
	if w.buf.Len() > 0 {
		dst.Write(w.buf.Bytes())
	}
}
