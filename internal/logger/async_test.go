package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// countingHandler counts handled records, optionally slowing each one down.
type countingHandler struct {
	mu    sync.Mutex
	n     int
	delay time.Duration
}

func (h *countingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *countingHandler) Handle(context.Context, slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	h.mu.Lock()
	h.n++
	h.mu.Unlock()
	return nil
}

func (h *countingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *countingHandler) WithGroup(string) slog.Handler      { return h }

func (h *countingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.n
}

// lockedBuffer lets several workers write JSON lines safely.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func record(msg string) slog.Record {
	return slog.NewRecord(time.Now(), slog.LevelInfo, msg, 0)
}

func TestAsyncHandler_DeliversEverything(t *testing.T) {
	tests := []struct {
		name       string
		buffer     int
		workers    int
		goroutines int
		perWorker  int
	}{
		{"single record", 10, 1, 1, 1},
		{"concurrent producers", 10000, 4, 50, 100},
		{"close drains backlog", 1000, 2, 1, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &countingHandler{}
			ah := NewAsyncHandler(inner, tt.buffer, tt.workers)

			var wg sync.WaitGroup
			for range tt.goroutines {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for range tt.perWorker {
						_ = ah.Handle(context.Background(), record("tenant resolved"))
					}
				}()
			}
			wg.Wait()
			ah.Close()

			want := tt.goroutines * tt.perWorker
			if got := inner.count(); got != want {
				t.Fatalf("handled %d records, want %d", got, want)
			}
			if ah.Dropped() != 0 {
				t.Errorf("dropped %d records", ah.Dropped())
			}
		})
	}
}

func TestAsyncHandler_DropsWhenFull(t *testing.T) {
	inner := &countingHandler{delay: 10 * time.Millisecond}
	ah := NewAsyncHandler(inner, 1, 1)

	for range 50 {
		_ = ah.Handle(context.Background(), record("proxy lookup"))
	}
	ah.Close()

	if ah.Dropped() == 0 {
		t.Fatal("expected drops with a one-slot queue")
	}
	if got := int64(inner.count()) + ah.Dropped(); got != 50 {
		t.Errorf("handled + dropped = %d, want 50", got)
	}
}

func TestAsyncHandler_DerivedHandlersKeepAttrs(t *testing.T) {
	var out lockedBuffer
	ah := NewAsyncHandler(slog.NewJSONHandler(&out, nil), 16, 1)
	log := slog.New(ah).With("tenant_id", "t-acme")

	log.Info("permission decided", "decision", "allow")
	slog.New(ah).Info("central request")

	ah.Close()
	ah.Close()

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), out.String())
	}
	var scoped string
	for _, l := range lines {
		if strings.Contains(l, "permission decided") {
			scoped = l
		}
	}
	if !strings.Contains(scoped, `"tenant_id":"t-acme"`) || !strings.Contains(scoped, `"decision":"allow"`) {
		t.Errorf("derived handler lost attributes: %s", scoped)
	}
}
