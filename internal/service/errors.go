package service

import "errors"

var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrRunNotFound      = errors.New("no pipeline run for project")
	ErrRunInProgress    = errors.New("a pipeline run is already in progress for this project")
	ErrInvalidLimit     = errors.New("limit must be between 1 and 50")
	ErrEmptyDocument    = errors.New("document has no content")
	ErrNoQuestionsGiven = errors.New("no questions given")
	ErrProjectNotFound  = errors.New("project not found")
)
