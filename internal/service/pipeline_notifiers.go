package service

import (
	"context"
	"encoding/json"

	"rfp-answer-engine/internal/dto"
	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/pkg/logger"
	"rfp-answer-engine/pkg/events"
	"rfp-answer-engine/pkg/pipeline"

	"github.com/google/uuid"
)

const progressMessageType = "pipeline_progress"

// ProgressBroadcaster delivers a message to everyone watching a project.
type ProgressBroadcaster interface {
	Publish(ctx context.Context, projectId uuid.UUID, message []byte)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type progressNotifier struct {
	hub    ProgressBroadcaster
	logger logger.ILogger
}

func NewProgressNotifier(hub ProgressBroadcaster, log logger.ILogger) pipeline.Notifier {
	return &progressNotifier{hub: hub, logger: log}
}

func (n *progressNotifier) Notify(ctx context.Context, run *entity.PipelineRun) {
	data, err := json.Marshal(dto.PipelineProgressMessage{
		Type: progressMessageType,
		Data: dto.NewPipelineRunResponse(run),
	})
	if err != nil {
		n.logger.Error("Pipeline", "Failed to encode progress", map[string]interface{}{"error": err.Error()})
		return
	}
	n.hub.Publish(ctx, run.ProjectId, data)
}

// terminalEventNotifier emits PIPELINE_COMPLETED / PIPELINE_FAILED once the run ends.
// Publishing failures are logged and never affect the run.
type terminalEventNotifier struct {
	publisher EventPublisher
	logger    logger.ILogger
}

func NewTerminalEventNotifier(publisher EventPublisher, log logger.ILogger) pipeline.Notifier {
	return &terminalEventNotifier{publisher: publisher, logger: log}
}

func (n *terminalEventNotifier) Notify(ctx context.Context, run *entity.PipelineRun) {
	evt, ok := events.NewPipelineEvent(run)
	if !ok {
		return
	}
	if err := n.publisher.Publish(context.WithoutCancel(ctx), evt); err != nil {
		n.logger.Warn("Pipeline", "Failed to publish pipeline event", map[string]interface{}{
			"run_id": run.Id,
			"event":  evt.EventType(),
			"error":  err.Error(),
		})
	}
}
