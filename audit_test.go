package portalguard

import (
	"context"
	"testing"
	"time"
)

// blockingSink parks on the first event until released, so tests can pin
// the consumer goroutine and fill the buffer deterministically.
type blockingSink struct {
	entered chan struct{}
	release chan struct{}
	seen    chan AuditEvent
}

func newBlockingSink(capacity int) *blockingSink {
	return &blockingSink{
		entered: make(chan struct{}, capacity),
		release: make(chan struct{}),
		seen:    make(chan AuditEvent, capacity),
	}
}

func (s *blockingSink) Emit(_ context.Context, event AuditEvent) {
	s.entered <- struct{}{}
	<-s.release
	s.seen <- event
}

func TestAuditDispatcherDeliversInOrder(t *testing.T) {
	sink := NewChannelSink(8)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 8}, sink)

	for i := 0; i < 3; i++ {
		event := newAuditEvent(auditEventAuthorizeDeny, false)
		event.Path = "/search"
		d.Emit(context.Background(), event)
	}
	d.Close()

	for i := 0; i < 3; i++ {
		select {
		case event := <-sink.Events():
			if event.EventType != auditEventAuthorizeDeny {
				t.Fatalf("event %d type = %q", i, event.EventType)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("event %d never delivered", i)
		}
	}
}

func TestAuditDispatcherDrainsBufferOnClose(t *testing.T) {
	sink := NewChannelSink(16)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 16}, sink)

	const emitted = 10
	for i := 0; i < emitted; i++ {
		d.Emit(context.Background(), newAuditEvent(auditEventResetRequest, true))
	}

	// Close must not return before every buffered event reached the sink.
	d.Close()
	if got := len(sink.Events()); got != emitted {
		t.Fatalf("drained %d events, want %d", got, emitted)
	}
}

func TestAuditDispatcherDropsWhenFull(t *testing.T) {
	sink := newBlockingSink(4)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// First event occupies the consumer inside the sink.
	d.Emit(context.Background(), newAuditEvent(auditEventResetRequest, true))
	select {
	case <-sink.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer never reached the sink")
	}

	// Second fills the one-slot buffer; third has nowhere to go.
	d.Emit(context.Background(), newAuditEvent(auditEventResetRequest, true))
	d.Emit(context.Background(), newAuditEvent(auditEventResetRequest, true))

	if got := d.Dropped(); got != 1 {
		t.Fatalf("Dropped() = %d, want 1", got)
	}

	close(sink.release)
	<-sink.entered
	d.Close()
}

func TestAuditDispatcherEmitAfterCloseIsNoOp(t *testing.T) {
	sink := NewChannelSink(4)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 4}, sink)

	d.Close()
	d.Emit(context.Background(), newAuditEvent(auditEventResetRequest, true))
	d.Close()

	if got := len(sink.Events()); got != 0 {
		t.Fatalf("event delivered after Close, got %d", got)
	}

	var nilDispatcher *auditDispatcher
	nilDispatcher.Emit(context.Background(), AuditEvent{})
	nilDispatcher.Close()
	if nilDispatcher.Dropped() != 0 {
		t.Fatal("nil dispatcher reported drops")
	}
}

func TestAuditDispatcherDisabledByConfig(t *testing.T) {
	if d := newAuditDispatcher(AuditConfig{Enabled: false}, NewChannelSink(1)); d != nil {
		t.Fatal("disabled config built a dispatcher")
	}
}
