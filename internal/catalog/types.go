// Package catalog fetches the study content the app navigates over:
// subjects, exam types, and question sets. The primary implementation is a
// thin HTTP client for the remote catalog service; StaticService provides a
// built-in deck for offline use and tests.
package catalog

import "context"

// Service is the read-only catalog surface the app consumes.
type Service interface {
	// Subjects returns all subjects available for study.
	Subjects(ctx context.Context) ([]Subject, error)

	// ExamTypes returns the exam formats the catalog can assemble.
	ExamTypes(ctx context.Context) ([]ExamType, error)

	// Questions returns up to limit questions for the given subject slug.
	// A non-positive limit requests the service default.
	Questions(ctx context.Context, subjectSlug string, limit int) ([]Question, error)
}

// Subject is one study area (e.g. algebra, biology).
type Subject struct {
	Slug          string `json:"slug"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	QuestionCount int    `json:"question_count"`
}

// ExamType is a named exam format covering one or more subjects.
type ExamType struct {
	Slug     string   `json:"slug"`
	Name     string   `json:"name"`
	Subjects []string `json:"subjects"`
}

// Choice is one selectable answer on a multiple-choice question.
type Choice struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Question is a single multiple-choice question.
type Question struct {
	ID          string   `json:"id"`
	Subject     string   `json:"subject"`
	Prompt      string   `json:"prompt"`
	Choices     []Choice `json:"choices"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
	Difficulty  int      `json:"difficulty"`
}
