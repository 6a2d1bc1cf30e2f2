package main

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ST10266083/ABC-Store-Functions/domain"
)

const (
	dispositionProcessed = "processed"
	dispositionDiscarded = "discarded"
	dispositionRetry     = "retry"
)

// messageMetrics collects per-message timings and outcome and emits them as
// one structured log line when the message is done.
type messageMetrics struct {
	logger        *log.Logger
	start         time.Time
	decodedAt     time.Time
	processedAt   time.Time
	deliveryCount int64
	productID     string
	totalPrice    string
}

func newMessageMetrics(logger *log.Logger, deliveryCount int64) *messageMetrics {
	return &messageMetrics{
		logger:        logger,
		start:         time.Now(),
		deliveryCount: deliveryCount,
	}
}

func (m *messageMetrics) Decoded(req domain.OrderRequest) {
	m.decodedAt = time.Now()
	m.productID = req.ProductID
}

func (m *messageMetrics) Processed(ent domain.OrderEntity) {
	m.processedAt = time.Now()
	m.totalPrice = ent.TotalPrice
}

func (m *messageMetrics) Done(disposition string, err error) {
	if m == nil || m.logger == nil {
		return
	}
	fields := log.Fields{
		"disposition":    disposition,
		"delivery_count": m.deliveryCount,
		"total_ms":       durationToMillis(time.Since(m.start)),
	}
	if !m.decodedAt.IsZero() {
		fields["decode_ms"] = durationToMillis(m.decodedAt.Sub(m.start))
		fields["product"] = m.productID
	}
	if !m.processedAt.IsZero() {
		fields["process_ms"] = durationToMillis(m.processedAt.Sub(m.decodedAt))
		fields["total_price"] = m.totalPrice
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	entry := m.logger.WithFields(fields)
	switch disposition {
	case dispositionProcessed:
		entry.Info("order.message.metrics")
	default:
		entry.Warn("order.message.metrics")
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
