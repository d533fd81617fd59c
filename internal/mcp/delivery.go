package mcp

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/kayz/kakaomap-mcp/internal/tools"
)

var endpointEvent = []byte("event: endpoint")

// sseDeliveries keeps one tools.Delivery per SSE stream, keyed by the session
// ID announced in the endpoint event mcp-go writes first on every stream.
type sseDeliveries struct {
	sessions sync.Map
	timeout  time.Duration
}

func (s *sseDeliveries) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		sw := &sseWriter{
			ResponseWriter: w,
			flusher:        flusher,
			delivery:       tools.NewDelivery(s.timeout),
			sessions:       &s.sessions,
		}
		defer sw.release()
		next.ServeHTTP(sw, r)
	})
}

// contextFunc hands message requests the Delivery of their stream.
func (s *sseDeliveries) contextFunc(ctx context.Context, r *http.Request) context.Context {
	if d, ok := s.sessions.Load(r.URL.Query().Get("sessionId")); ok {
		return tools.WithDelivery(ctx, d.(*tools.Delivery))
	}
	return ctx
}

type sseWriter struct {
	http.ResponseWriter
	flusher   http.Flusher
	delivery  *tools.Delivery
	sessions  *sync.Map
	sessionID string
}

func (w *sseWriter) Write(p []byte) (int, error) {
	n, err := w.ResponseWriter.Write(p)
	if err != nil {
		return n, err
	}
	if w.sessionID == "" {
		if id := endpointSessionID(p); id != "" {
			w.sessionID = id
			w.sessions.Store(id, w.delivery)
		}
		return n, nil
	}
	w.delivery.Observe(p)
	return n, nil
}

func (w *sseWriter) Flush() {
	w.flusher.Flush()
}

func (w *sseWriter) release() {
	if w.sessionID != "" {
		w.sessions.Delete(w.sessionID)
	}
}

func endpointSessionID(p []byte) string {
	if !bytes.HasPrefix(p, endpointEvent) {
		return ""
	}
	sc := bufio.NewScanner(bytes.NewReader(p))
	for sc.Scan() {
		data, ok := strings.CutPrefix(sc.Text(), "data: ")
		if !ok {
			continue
		}
		u, err := url.Parse(strings.TrimSpace(data))
		if err != nil {
			return ""
		}
		return u.Query().Get("sessionId")
	}
	return ""
}
