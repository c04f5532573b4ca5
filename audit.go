package portalguard

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	auditEventAuthorizeAllow = "authorize.allow"
	auditEventAuthorizeDeny  = "authorize.deny"
	auditEventResetRequest   = "reset.request"
	auditEventResetConfirm   = "reset.confirm"
	auditEventResetDenied    = "reset.denied"
)

// AuditEvent is one security-relevant occurrence. Events carry the distinct
// denial cause even where the user-visible behavior deliberately conflates
// causes, so operators can tell "role disallowed" from "backend down".
type AuditEvent struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    int64             `json:"user_id,omitempty"`
	Email     string            `json:"email,omitempty"`
	Path      string            `json:"path,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives events from the dispatcher. Implementations must be
// safe for concurrent use and must not block indefinitely.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards every event.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink buffers events on a channel for test assertions and custom
// consumers.
type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// ZerologSink forwards events onto a zerolog logger at info level.
type ZerologSink struct {
	logger zerolog.Logger
}

func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return &ZerologSink{logger: logger}
}

func (s *ZerologSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil {
		return
	}
	evt := s.logger.Info().
		Str("audit_id", event.ID).
		Str("event_type", event.EventType).
		Bool("success", event.Success)
	if event.UserID > 0 {
		evt = evt.Int64("user_id", event.UserID)
	}
	if event.Email != "" {
		evt = evt.Str("email", event.Email)
	}
	if event.Path != "" {
		evt = evt.Str("path", event.Path)
	}
	if event.IP != "" {
		evt = evt.Str("ip", event.IP)
	}
	if event.Reason != "" {
		evt = evt.Str("reason", event.Reason)
	}
	if event.Error != "" {
		evt = evt.Str("error", event.Error)
	}
	evt.Msg("audit")
}

func newAuditEvent(eventType string, success bool) AuditEvent {
	return AuditEvent{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		EventType: eventType,
		Success:   success,
	}
}

// auditDispatcher keeps sink latency out of the request path. Events are
// buffered on a channel consumed by one goroutine; closing the channel is
// the shutdown signal, so the consumer naturally drains whatever is still
// buffered before exiting. The RWMutex fences Emit against the close.
type auditDispatcher struct {
	cfg  AuditConfig
	sink AuditSink

	mu     sync.RWMutex
	ch     chan AuditEvent
	closed bool

	dropped atomic.Uint64
	wg      sync.WaitGroup
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		cfg:  cfg,
		sink: sink,
		ch:   make(chan AuditEvent, cfg.BufferSize),
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for event := range d.ch {
			d.sink.Emit(context.Background(), event)
		}
	}()

	return d
}

func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.ch <- event:
	case <-ctx.Done():
	}
}

// Close seals the dispatcher and waits for the consumer to drain the
// buffer. Safe to call more than once; Emit after Close is a no-op.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.ch)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
