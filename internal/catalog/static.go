package catalog

import (
	"context"
	"fmt"
	"slices"
)

// StaticService serves a small built-in deck from memory. It backs the app
// when no catalog service is reachable and keeps tests hermetic.
type StaticService struct {
	subjects  []Subject
	examTypes []ExamType
	questions []Question
}

var _ Service = (*StaticService)(nil)

// NewStaticService returns a service preloaded with the built-in deck.
func NewStaticService() *StaticService {
	return &StaticService{
		subjects:  builtinSubjects,
		examTypes: builtinExamTypes,
		questions: builtinQuestions,
	}
}

// Subjects returns the built-in subjects.
func (s *StaticService) Subjects(_ context.Context) ([]Subject, error) {
	return slices.Clone(s.subjects), nil
}

// ExamTypes returns the built-in exam formats.
func (s *StaticService) ExamTypes(_ context.Context) ([]ExamType, error) {
	return slices.Clone(s.examTypes), nil
}

// Questions returns up to limit questions for the given subject.
func (s *StaticService) Questions(_ context.Context, subjectSlug string, limit int) ([]Question, error) {
	if subjectSlug == "" {
		return nil, fmt.Errorf("subject slug is required")
	}
	if limit <= 0 {
		limit = defaultQuestionLimit
	}

	known := slices.ContainsFunc(s.subjects, func(sub Subject) bool {
		return sub.Slug == subjectSlug
	})
	if !known {
		return nil, fmt.Errorf("unknown subject %q", subjectSlug)
	}

	var out []Question
	for _, q := range s.questions {
		if q.Subject != subjectSlug {
			continue
		}
		out = append(out, q)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

var builtinSubjects = []Subject{
	{Slug: "algebra", Name: "Algebra", Description: "Linear equations, polynomials, and factoring", QuestionCount: 4},
	{Slug: "geometry", Name: "Geometry", Description: "Angles, triangles, and circle theorems", QuestionCount: 2},
	{Slug: "us-history", Name: "US History", Description: "Colonial era through the twentieth century", QuestionCount: 2},
}

var builtinExamTypes = []ExamType{
	{Slug: "placement", Name: "Placement Exam", Subjects: []string{"algebra", "geometry"}},
	{Slug: "final-review", Name: "Final Review", Subjects: []string{"algebra", "geometry", "us-history"}},
}

var builtinQuestions = []Question{
	{
		ID:      "alg-001",
		Subject: "algebra",
		Prompt:  "Solve for x: 2x + 6 = 14",
		Choices: []Choice{
			{Key: "a", Text: "2"},
			{Key: "b", Text: "4"},
			{Key: "c", Text: "6"},
			{Key: "d", Text: "10"},
		},
		Answer:      "b",
		Explanation: "Subtract 6 from both sides to get 2x = 8, then divide by 2.",
		Difficulty:  1,
	},
	{
		ID:      "alg-002",
		Subject: "algebra",
		Prompt:  "Factor: x^2 - 9",
		Choices: []Choice{
			{Key: "a", Text: "(x - 3)(x - 3)"},
			{Key: "b", Text: "(x + 3)(x + 3)"},
			{Key: "c", Text: "(x - 3)(x + 3)"},
			{Key: "d", Text: "(x - 9)(x + 1)"},
		},
		Answer:      "c",
		Explanation: "x^2 - 9 is a difference of squares.",
		Difficulty:  2,
	},
	{
		ID:      "alg-003",
		Subject: "algebra",
		Prompt:  "What is the slope of the line y = 3x - 7?",
		Choices: []Choice{
			{Key: "a", Text: "-7"},
			{Key: "b", Text: "3"},
			{Key: "c", Text: "7"},
			{Key: "d", Text: "1/3"},
		},
		Answer:      "b",
		Explanation: "In slope-intercept form y = mx + b, m is the slope.",
		Difficulty:  1,
	},
	{
		ID:      "alg-004",
		Subject: "algebra",
		Prompt:  "If f(x) = x^2 + 1, what is f(3)?",
		Choices: []Choice{
			{Key: "a", Text: "7"},
			{Key: "b", Text: "9"},
			{Key: "c", Text: "10"},
			{Key: "d", Text: "16"},
		},
		Answer:      "c",
		Explanation: "f(3) = 3^2 + 1 = 10.",
		Difficulty:  1,
	},
	{
		ID:      "geo-001",
		Subject: "geometry",
		Prompt:  "The angles of a triangle sum to how many degrees?",
		Choices: []Choice{
			{Key: "a", Text: "90"},
			{Key: "b", Text: "180"},
			{Key: "c", Text: "270"},
			{Key: "d", Text: "360"},
		},
		Answer:      "b",
		Explanation: "The interior angles of any triangle sum to 180 degrees.",
		Difficulty:  1,
	},
	{
		ID:      "geo-002",
		Subject: "geometry",
		Prompt:  "A circle has radius 5. What is its area?",
		Choices: []Choice{
			{Key: "a", Text: "10π"},
			{Key: "b", Text: "25π"},
			{Key: "c", Text: "5π"},
			{Key: "d", Text: "50π"},
		},
		Answer:      "b",
		Explanation: "Area is πr^2 = 25π.",
		Difficulty:  2,
	},
	{
		ID:      "hist-001",
		Subject: "us-history",
		Prompt:  "In what year was the Declaration of Independence signed?",
		Choices: []Choice{
			{Key: "a", Text: "1774"},
			{Key: "b", Text: "1776"},
			{Key: "c", Text: "1781"},
			{Key: "d", Text: "1787"},
		},
		Answer:      "b",
		Explanation: "The Declaration was adopted on July 4, 1776.",
		Difficulty:  1,
	},
	{
		ID:      "hist-002",
		Subject: "us-history",
		Prompt:  "Which purchase doubled the size of the United States in 1803?",
		Choices: []Choice{
			{Key: "a", Text: "The Gadsden Purchase"},
			{Key: "b", Text: "The Alaska Purchase"},
			{Key: "c", Text: "The Louisiana Purchase"},
			{Key: "d", Text: "The Florida Purchase"},
		},
		Answer:      "c",
		Explanation: "The Louisiana Purchase from France doubled US territory.",
		Difficulty:  1,
	},
}
