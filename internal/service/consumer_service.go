package service

import (
	"context"
	"encoding/json"

	"rfp-answer-engine/internal/dto"
	"rfp-answer-engine/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber      message.Subscriber
	topicName       string
	pipelineService IPipelineService
	logger          logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	pipelineService IPipelineService,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:      subscriber,
		topicName:       topicName,
		pipelineService: pipelineService,
		logger:          log,
	}
}

// Consume subscribes to the trigger topic and executes each run in its own goroutine so a
// long run never blocks delivery of the next one.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
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
	var payload dto.PublishRunPipelineMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("Consumer", "Failed to unmarshal pipeline trigger", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // malformed payloads would be redelivered forever
		return
	}

	// the run record is the durable state; ack once it is handed off
	msg.Ack()

	go func() {
		if err := cs.pipelineService.ExecuteRun(ctx, &payload); err != nil {
			cs.logger.Error("Consumer", "Pipeline run ended with error", map[string]interface{}{
				"run_id":     payload.RunId,
				"project_id": payload.ProjectId,
				"error":      err.Error(),
			})
		}
	}()
}
