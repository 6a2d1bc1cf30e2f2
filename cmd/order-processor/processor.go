package main

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"

	"github.com/ST10266083/ABC-Store-Functions/domain"
)

type orderHandler interface {
	Process(ctx context.Context, req domain.OrderRequest) (domain.OrderEntity, error)
}

type messageAcker interface {
	DeleteMessage(ctx context.Context, name, id, receipt string) error
}

// handleMessage decides the disposition of one delivered message:
//   - malformed body: discard (ack without a row)
//   - processing failure: leave in the queue for redelivery
//   - success: ack
//
// Redelivery pacing and poison-message limits belong to the queue service.
func handleMessage(ctx context.Context, queue messageAcker, proc orderHandler, queueName string, msg *azqueue.DequeuedMessage, logger *log.Logger) {
	metrics := newMessageMetrics(logger, deliveryCount(msg))

	var body string
	if msg.MessageText != nil {
		body = *msg.MessageText
	}
	req, err := domain.DecodeOrderRequest(body)
	if err != nil {
		metrics.Done(dispositionDiscarded, err)
		ack(ctx, queue, queueName, msg, logger)
		return
	}
	metrics.Decoded(req)

	ent, err := proc.Process(ctx, req)
	if err != nil {
		metrics.Done(dispositionRetry, err)
		return
	}
	metrics.Processed(ent)

	ack(ctx, queue, queueName, msg, logger)
	metrics.Done(dispositionProcessed, nil)
}

// ack deletes the message. A failed delete means redelivery and, because row
// keys are fresh per write, a duplicate order row; that trade-off is the
// documented at-least-once behavior.
func ack(ctx context.Context, queue messageAcker, queueName string, msg *azqueue.DequeuedMessage, logger *log.Logger) {
	var id, receipt string
	if msg.MessageID != nil {
		id = *msg.MessageID
	}
	if msg.PopReceipt != nil {
		receipt = *msg.PopReceipt
	}
	if err := queue.DeleteMessage(ctx, queueName, id, receipt); err != nil {
		logger.WithError(err).WithField("message", id).Error("delete failed, message will redeliver")
	}
}

func deliveryCount(msg *azqueue.DequeuedMessage) int64 {
	if msg.DequeueCount != nil {
		return *msg.DequeueCount
	}
	return 0
}
