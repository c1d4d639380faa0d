// Package aifixer implements C9 (spec.md §4.9): per-issue LLM-
// generated corrections, DB application, fix-history recording, and
// recurrence detection.
package aifixer

import (
	"context"

	"github.com/seocore/seocore/pkg/models"
)

// PastAttempt is one previous fix attempt on the same (page, issue-type),
// annotated with its effectiveness so a generator can steer away from
// patterns that already failed.
type PastAttempt struct {
	FixedValue    string
	Explanation   string
	Effectiveness models.Effectiveness
}

// GeneratorInput carries everything a per-issue generator needs to
// build its prompt (spec.md §4.9: current value, URL, content, brand,
// GSC numbers, sibling titles, past attempts).
type GeneratorInput struct {
	IssueType      models.IssueType
	CurrentValue   string
	URL            string
	ContentSnippet string
	Brand          string
	GSCClicks      int
	GSCImpressions int
	GSCCTR         float64
	SiblingTitles  []string
	PastAttempts   []PastAttempt
}

// GeneratorOutput is a generator's proposed correction.
type GeneratorOutput struct {
	Success        bool
	SuggestedValue string
	Explanation    string
	Confidence     float64
	Metadata       map[string]interface{}
}

// Generator produces a proposed value for one issue type.
type Generator interface {
	Generate(ctx context.Context, input GeneratorInput) (GeneratorOutput, error)
}

// Registry dispatches a detected issue type to its generator, the
// aifixer analogue of the teacher's SubAgentRegistry — a flat,
// name-keyed lookup built once at startup.
type Registry struct {
	generators map[models.IssueType]Generator
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{generators: make(map[models.IssueType]Generator)}
}

// Register adds or replaces the generator for issueType.
func (r *Registry) Register(issueType models.IssueType, g Generator) {
	r.generators[issueType] = g
}

// Get returns the generator registered for issueType, or false if none.
func (r *Registry) Get(issueType models.IssueType) (Generator, bool) {
	g, ok := r.generators[issueType]
	return g, ok
}
