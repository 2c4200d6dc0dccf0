package service

import (
	"context"
	"encoding/json"
	"time"

	"sales-copilot-be/internal/dto"
	"sales-copilot-be/internal/pkg/logger"
	"sales-copilot-be/pkg/events"
	pkgNats "sales-copilot-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// IConsumerService drains the in-process event bus: every call event is
// logged and, when a NATS connection is available, forwarded to the
// events stream for downstream dashboards.
type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	natsPub   *pkgNats.Publisher
	sysLogger logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	natsPub *pkgNats.Publisher,
	sysLogger logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		natsPub:   natsPub,
		sysLogger: sysLogger,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var envelope dto.PublishedEvent
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		cs.sysLogger.Error("consumer", "Failed to unmarshal event message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	cs.sysLogger.Info("consumer", "Call event received", map[string]interface{}{
		"type":    envelope.Type,
		"payload": envelope.Payload,
	})

	if cs.natsPub != nil {
		evt := events.BaseEvent{
			Type:       envelope.Type,
			Data:       envelope.Payload,
			OccurredAt: envelope.OccurredAt,
		}
		pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := cs.natsPub.Publish(pubCtx, evt); err != nil {
			// Forwarding is auxiliary; the event stays logged either way.
			cs.sysLogger.Warn("consumer", "Failed to forward event to NATS", map[string]interface{}{
				"type":  envelope.Type,
				"error": err.Error(),
			})
		}
	}

	msg.Ack()
}
