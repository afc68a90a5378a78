package propagation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/pkg/logger"

	"github.com/google/uuid"
)

// PreviewRunes bounds the answer excerpt stored on cluster members.
const PreviewRunes = 160

const (
	ReasonNotFound   = "not found"
	ReasonSelfTarget = "target is the source question"
)

var (
	ErrNoTargets          = errors.New("no target questions given")
	ErrSourceNotFound     = errors.New("source question not found")
	ErrSourceHasNoAnswer  = errors.New("source question has no answer and no custom text was given")
	ErrPropagationStopped = errors.New("propagation interrupted")
)

// Store is the datastore surface the propagator needs. Answers are upserted by question id.
type Store interface {
	ListClusters(ctx context.Context, projectId uuid.UUID) ([]*entity.QuestionCluster, error)
	FindQuestions(ctx context.Context, projectId uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*entity.Question, error)
	FindAnswers(ctx context.Context, projectId uuid.UUID, questionIds []uuid.UUID) (map[uuid.UUID]*entity.Answer, error)
	SaveAnswer(ctx context.Context, answer *entity.Answer) error
	SaveCluster(ctx context.Context, cluster *entity.QuestionCluster) error
}

type Summary struct {
	Applied  int
	Skipped  int
	Answered int
}

type FailedTarget struct {
	QuestionId uuid.UUID `json:"question_id"`
	Reason     string    `json:"reason"`
}

type ApplyResult struct {
	Applied []uuid.UUID
	Failed  []FailedTarget
}

type Propagator struct {
	store  Store
	logger logger.ILogger
	now    func() time.Time
}

func NewPropagator(store Store, log logger.ILogger) *Propagator {
	return &Propagator{store: store, logger: log, now: time.Now}
}

// Propagate copies every answered master's answer onto the members of its cluster. Members
// holding their own generated answer or a manual override are left alone; earlier clones are
// replaced so a regenerated master flows through.
func (p *Propagator) Propagate(ctx context.Context, projectId uuid.UUID) (*Summary, error) {
	clusters, err := p.store.ListClusters(ctx, projectId)
	if err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}

	var questionIds []uuid.UUID
	for _, c := range clusters {
		questionIds = append(questionIds, c.MemberIds()...)
	}
	answers, err := p.store.FindAnswers(ctx, projectId, questionIds)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}

	summary := &Summary{}
	for _, c := range clusters {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("%w: %v", ErrPropagationStopped, err)
		}

		master, ok := answers[c.MasterQuestionId]
		if !ok {
			summary.Skipped += len(c.Members) - 1
			continue
		}

		for _, m := range c.Members {
			if m.QuestionId == c.MasterQuestionId {
				continue
			}
			if existing, ok := answers[m.QuestionId]; ok && (!existing.IsClone() || existing.IsManualOverride) {
				summary.Skipped++
				continue
			}

			clone := p.cloneAnswer(master, m.QuestionId, answers[m.QuestionId])
			clone.ClonedFromQuestionId = &c.MasterQuestionId
			if err := p.store.SaveAnswer(ctx, clone); err != nil {
				return summary, fmt.Errorf("save clone for question %s: %w", m.QuestionId, err)
			}
			answers[m.QuestionId] = clone
			summary.Applied++
		}

		if err := p.refreshCluster(ctx, c, answers); err != nil {
			return summary, err
		}
	}

	for _, id := range questionIds {
		if _, ok := answers[id]; ok {
			summary.Answered++
		}
	}

	p.logger.Info("ClusterPropagator", "Propagation finished", map[string]interface{}{
		"project_id": projectId,
		"applied":    summary.Applied,
		"skipped":    summary.Skipped,
		"answered":   summary.Answered,
	})
	return summary, nil
}

// ApplyAnswer copies the source question's answer, or customText when given, onto arbitrary
// targets regardless of cluster membership. Targets succeed or fail independently.
func (p *Propagator) ApplyAnswer(ctx context.Context, projectId, sourceId uuid.UUID, targetIds []uuid.UUID, customText *string) (*ApplyResult, error) {
	targets := dedupe(targetIds)
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}

	lookup := append([]uuid.UUID{sourceId}, targets...)
	questions, err := p.store.FindQuestions(ctx, projectId, lookup)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if _, ok := questions[sourceId]; !ok {
		return nil, ErrSourceNotFound
	}

	answers, err := p.store.FindAnswers(ctx, projectId, lookup)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}

	template, err := p.overrideTemplate(projectId, sourceId, answers[sourceId], customText)
	if err != nil {
		return nil, err
	}

	result := &ApplyResult{Applied: []uuid.UUID{}, Failed: []FailedTarget{}}
	for _, targetId := range targets {
		switch {
		case targetId == sourceId:
			result.Failed = append(result.Failed, FailedTarget{QuestionId: targetId, Reason: ReasonSelfTarget})
			continue
		case questions[targetId] == nil:
			result.Failed = append(result.Failed, FailedTarget{QuestionId: targetId, Reason: ReasonNotFound})
			continue
		}

		clone := p.cloneAnswer(template, targetId, answers[targetId])
		clone.ClonedFromQuestionId = &sourceId
		clone.IsManualOverride = true
		if err := p.store.SaveAnswer(ctx, clone); err != nil {
			p.logger.Warn("ClusterPropagator", "Failed to apply answer to target", map[string]interface{}{
				"project_id":  projectId,
				"question_id": targetId,
				"error":       err.Error(),
			})
			result.Failed = append(result.Failed, FailedTarget{QuestionId: targetId, Reason: err.Error()})
			continue
		}
		answers[targetId] = clone
		result.Applied = append(result.Applied, targetId)
	}

	if len(result.Applied) > 0 {
		if err := p.refreshClusters(ctx, projectId, answers, result.Applied); err != nil {
			// answers are already written; stale previews only affect the cluster view
			p.logger.Warn("ClusterPropagator", "Failed to refresh cluster previews", map[string]interface{}{
				"project_id": projectId,
				"error":      err.Error(),
			})
		}
	}
	return result, nil
}

func (p *Propagator) overrideTemplate(projectId, sourceId uuid.UUID, source *entity.Answer, customText *string) (*entity.Answer, error) {
	if customText != nil && strings.TrimSpace(*customText) != "" {
		tmpl := &entity.Answer{
			ProjectId:      projectId,
			QuestionId:     sourceId,
			Text:           strings.TrimSpace(*customText),
			ConfidenceBand: entity.ConfidenceBandLow,
		}
		if source != nil {
			tmpl.Sources = source.Sources
			tmpl.Confidence = source.Confidence
			tmpl.ConfidenceBand = source.ConfidenceBand
			tmpl.ConfidenceBreakdown = source.ConfidenceBreakdown
		}
		return tmpl, nil
	}
	if source == nil {
		return nil, ErrSourceHasNoAnswer
	}
	return source, nil
}

// cloneAnswer copies text, sources and scoring from src. The existing answer's id is kept so
// the write replaces it in place.
func (p *Propagator) cloneAnswer(src *entity.Answer, questionId uuid.UUID, existing *entity.Answer) *entity.Answer {
	now := p.now()
	clone := &entity.Answer{
		Id:                  uuid.New(),
		QuestionId:          questionId,
		ProjectId:           src.ProjectId,
		Text:                src.Text,
		Sources:             append([]entity.AnswerSource(nil), src.Sources...),
		Confidence:          src.Confidence,
		ConfidenceBand:      src.ConfidenceBand,
		ConfidenceBreakdown: src.ConfidenceBreakdown,
		CreatedAt:           now,
	}
	if existing != nil {
		clone.Id = existing.Id
		clone.CreatedAt = existing.CreatedAt
		clone.UpdatedAt = &now
	}
	return clone
}

func (p *Propagator) refreshClusters(ctx context.Context, projectId uuid.UUID, answers map[uuid.UUID]*entity.Answer, changed []uuid.UUID) error {
	clusters, err := p.store.ListClusters(ctx, projectId)
	if err != nil {
		return fmt.Errorf("list clusters: %w", err)
	}
	touched := make(map[uuid.UUID]struct{}, len(changed))
	for _, id := range changed {
		touched[id] = struct{}{}
	}

	var affected []*entity.QuestionCluster
	var memberIds []uuid.UUID
	for _, c := range clusters {
		for _, m := range c.Members {
			if _, ok := touched[m.QuestionId]; ok {
				affected = append(affected, c)
				memberIds = append(memberIds, c.MemberIds()...)
				break
			}
		}
	}
	if len(affected) == 0 {
		return nil
	}

	// answers only covers the request; the flags need every member's state
	current, err := p.store.FindAnswers(ctx, projectId, memberIds)
	if err != nil {
		return fmt.Errorf("load answers: %w", err)
	}
	for id, a := range answers {
		current[id] = a
	}
	for _, c := range affected {
		if err := p.refreshCluster(ctx, c, current); err != nil {
			return err
		}
	}
	return nil
}

// refreshCluster updates the denormalized answer flags on the cluster members and saves the
// cluster when anything changed.
func (p *Propagator) refreshCluster(ctx context.Context, c *entity.QuestionCluster, answers map[uuid.UUID]*entity.Answer) error {
	dirty := false
	for i := range c.Members {
		m := &c.Members[i]
		a, ok := answers[m.QuestionId]
		preview := ""
		if ok {
			preview = a.Preview(PreviewRunes)
		}
		if m.HasAnswer != ok || m.AnswerPreview != preview {
			m.HasAnswer = ok
			m.AnswerPreview = preview
			dirty = true
		}
	}
	if !dirty {
		return nil
	}
	now := p.now()
	c.UpdatedAt = &now
	if err := p.store.SaveCluster(ctx, c); err != nil {
		return fmt.Errorf("save cluster %s: %w", c.Id, err)
	}
	return nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
