package event

import (
	"context"

	"github.com/fibc/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Dedup outcomes reported to a DedupObserver.
const (
	OutcomeProcessed = "processed"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

// DedupObserver is told how each delivery through an IdempotentHandler ended.
type DedupObserver func(eventType, outcome string)

// IdempotentHandler runs the wrapped handler at most once per event ID within
// the configured TTL. Kafka forwarding sits behind it so a retried publish does
// not emit the same roll or task event twice.
type IdempotentHandler struct {
	inner    shared.EventHandler
	store    shared.IdempotencyStore
	config   shared.IdempotencyConfig
	logger   *zap.Logger
	observer DedupObserver
}

type IdempotentHandlerOption func(*IdempotentHandler)

func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) { h.config = config }
}

// WithDedupObserver reports every outcome, typically to the metrics registry.
func WithDedupObserver(observer DedupObserver) IdempotentHandlerOption {
	return func(h *IdempotentHandler) { h.observer = observer }
}

func NewIdempotentHandler(inner shared.EventHandler, store shared.IdempotencyStore, logger *zap.Logger, opts ...IdempotentHandlerOption) *IdempotentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &IdempotentHandler{
		inner:  inner,
		store:  store,
		config: shared.DefaultIdempotencyConfig(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *IdempotentHandler) EventTypes() []string {
	return h.inner.EventTypes()
}

func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.inner.Handle(ctx, event)
	}

	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
	}

	first, err := h.store.MarkProcessed(ctx, event.EventID().String(), h.config.TTL)
	switch {
	case err != nil:
		// Store outage: deliver rather than drop.
		h.logger.Warn("idempotency store unavailable, delivering anyway", append(fields, zap.Error(err))...)
	case !first:
		h.report(event, OutcomeDuplicate)
		h.logger.Debug("duplicate event skipped", fields...)
		return nil
	}

	if err := h.inner.Handle(ctx, event); err != nil {
		h.report(event, OutcomeFailed)
		h.logger.Error("event handler failed", append(fields, zap.Error(err))...)
		// The key is kept until its TTL, so a redelivery inside the window is skipped.
		return err
	}
	h.report(event, OutcomeProcessed)
	return nil
}

// Unwrap returns the handler being guarded.
func (h *IdempotentHandler) Unwrap() shared.EventHandler {
	return h.inner
}

func (h *IdempotentHandler) report(event shared.DomainEvent, outcome string) {
	if h.observer != nil {
		h.observer(event.EventType(), outcome)
	}
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
