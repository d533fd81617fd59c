package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"
)

// DefaultDeliveryTimeout bounds how long an emit waits for the transport to
// write its notification.
const DefaultDeliveryTimeout = 10 * time.Second

var errNotDelivered = errors.New("progress notification was not written to the session")

// Delivery pairs the progress notifications queued on one session with the
// ones its transport has written out. mcp-go queues notifications and writes
// them from a separate goroutine, so a Delivery is what lets an emit return
// only once its notification has left the process.
type Delivery struct {
	sendMu sync.Mutex

	mu      sync.Mutex
	queued  uint64
	written uint64
	changed chan struct{}
	timeout time.Duration
}

func NewDelivery(timeout time.Duration) *Delivery {
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	return &Delivery{
		changed: make(chan struct{}),
		timeout: timeout,
	}
}

// Send queues one notification through send and blocks until the transport
// has written it, ctx is done or the timeout passes. Sends are serialized so
// queue order matches the order the transport writes in.
func (d *Delivery) Send(ctx context.Context, send func() error) error {
	d.sendMu.Lock()
	if err := send(); err != nil {
		d.sendMu.Unlock()
		return err
	}
	d.mu.Lock()
	d.queued++
	target := d.queued
	d.mu.Unlock()
	d.sendMu.Unlock()

	return d.wait(ctx, target)
}

func (d *Delivery) wait(ctx context.Context, target uint64) error {
	timer := time.NewTimer(d.timeout)
	defer timer.Stop()

	for {
		d.mu.Lock()
		if d.written >= target {
			d.mu.Unlock()
			return nil
		}
		changed := d.changed
		d.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return errNotDelivered
		}
	}
}

func (d *Delivery) markWritten() {
	d.mu.Lock()
	d.written++
	close(d.changed)
	d.changed = make(chan struct{})
	d.mu.Unlock()
}

// Observe reports one chunk written by the transport. Each write carries a
// single JSON-RPC message, either bare (stdio) or as an SSE data line.
func (d *Delivery) Observe(p []byte) {
	if isProgressNotification(p) {
		d.markWritten()
	}
}

// Writer wraps w so every progress notification written through it is
// counted as delivered.
func (d *Delivery) Writer(w io.Writer) io.Writer {
	return &deliveryWriter{w: w, d: d}
}

type deliveryWriter struct {
	w io.Writer
	d *Delivery
}

func (dw *deliveryWriter) Write(p []byte) (int, error) {
	n, err := dw.w.Write(p)
	if err == nil {
		dw.d.Observe(p)
	}
	return n, err
}

var sseData = []byte("data: ")

func isProgressNotification(p []byte) bool {
	if i := bytes.Index(p, sseData); i >= 0 {
		p = p[i+len(sseData):]
	}
	var msg struct {
		Method string `json:"method"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(p), &msg); err != nil {
		return false
	}
	return msg.Method == methodProgress
}

type deliveryKey struct{}

// WithDelivery attaches d to ctx for the emitters of tool calls on its session.
func WithDelivery(ctx context.Context, d *Delivery) context.Context {
	return context.WithValue(ctx, deliveryKey{}, d)
}

func DeliveryFromContext(ctx context.Context) *Delivery {
	d, _ := ctx.Value(deliveryKey{}).(*Delivery)
	return d
}
