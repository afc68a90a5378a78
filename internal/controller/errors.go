package controller

import (
	"errors"

	"rfp-answer-engine/internal/service"
	"rfp-answer-engine/pkg/clustering"
	"rfp-answer-engine/pkg/pipeline"
	"rfp-answer-engine/pkg/propagation"

	"github.com/gofiber/fiber/v2"
)

var statusByError = []struct {
	err    error
	status int
}{
	{clustering.ErrEmptyInput, fiber.StatusBadRequest},
	{clustering.ErrInvalidThresholds, fiber.StatusBadRequest},
	{service.ErrInvalidLimit, fiber.StatusBadRequest},
	{service.ErrNoQuestionsGiven, fiber.StatusBadRequest},
	{service.ErrEmptyDocument, fiber.StatusBadRequest},
	{propagation.ErrNoTargets, fiber.StatusBadRequest},
	{pipeline.ErrNoQuestions, fiber.StatusBadRequest},

	{service.ErrQuestionNotFound, fiber.StatusNotFound},
	{service.ErrProjectNotFound, fiber.StatusNotFound},
	{service.ErrRunNotFound, fiber.StatusNotFound},
	{propagation.ErrSourceNotFound, fiber.StatusNotFound},

	{service.ErrRunInProgress, fiber.StatusConflict},
	{propagation.ErrSourceHasNoAnswer, fiber.StatusUnprocessableEntity},
	{service.ErrEmbeddingUnavailable, fiber.StatusServiceUnavailable},
}

// StatusFor maps domain errors onto HTTP statuses for the error middleware.
func StatusFor(err error) int {
	for _, e := range statusByError {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return 0
}
