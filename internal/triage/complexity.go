// Package triage holds the LLM-backed enrichment operations: complexity
// scoring, PRD generation, placement suggestions, and code generation. Each
// one is a single prompt-and-parse call against the text-generation service.
package triage

import (
	"context"
	"fmt"
	"time"

	"pmhub/server/internal/llm"
	"pmhub/server/internal/pmstore"
)

// Invoker is the only thing triage needs from the LLM layer. Structured
// operations go through InvokeJSON; free-text ones through Invoke.
type Invoker interface {
	Invoke(ctx context.Context, messages []llm.Message) (string, error)
	InvokeJSON(ctx context.Context, messages []llm.Message, out any) error
}

type ComplexityFactors struct {
	FilesAffected  int      `json:"files_affected"`
	LinesEstimate  int      `json:"lines_estimate"`
	Dependencies   []string `json:"dependencies"`
	HasDatabase    bool     `json:"has_database"`
	HasAuth        bool     `json:"has_auth"`
	HasExternalAPI bool     `json:"has_external_api"`
}

type ComplexityScore struct {
	Score          int               `json:"score"`
	Factors        ComplexityFactors `json:"factors"`
	Recommendation string            `json:"recommendation"`
	Reasoning      string            `json:"reasoning"`
}

type Service struct {
	llm Invoker
}

func NewService(invoker Invoker) *Service {
	return &Service{llm: invoker}
}

const complexitySystemPrompt = `You are a technical complexity analyzer. Analyze feature specifications and determine implementation complexity.

Output JSON only with this exact structure:
{
  "files_affected": number,
  "lines_estimate": number,
  "dependencies": string[],
  "has_database": boolean,
  "has_auth": boolean,
  "has_external_api": boolean,
  "score": number (0-100, where 0=trivial, 100=extremely complex),
  "recommendation": "quick" | "full" | "uncertain",
  "reasoning": "brief explanation"
}`

// AnalyzeComplexity scores one feature brief.
func (s *Service) AnalyzeComplexity(ctx context.Context, brief string) (ComplexityScore, error) {
	var raw struct {
		ComplexityFactors
		Score          int    `json:"score"`
		Recommendation string `json:"recommendation"`
		Reasoning      string `json:"reasoning"`
	}
	err := s.llm.InvokeJSON(ctx, []llm.Message{
		{Role: "system", Content: complexitySystemPrompt},
		{Role: "user", Content: "Analyze this feature specification:\n\n" + brief},
	}, &raw)
	if err != nil {
		return ComplexityScore{}, fmt.Errorf("complexity analysis: %w", err)
	}
	switch raw.Recommendation {
	case "quick", "full", "uncertain":
	default:
		raw.Recommendation = "uncertain"
	}
	return ComplexityScore{
		Score:          raw.Score,
		Factors:        raw.ComplexityFactors,
		Recommendation: raw.Recommendation,
		Reasoning:      raw.Reasoning,
	}, nil
}

func ComplexityLabel(score int) string {
	if score < 30 {
		return "Simple"
	}
	if score < 60 {
		return "Medium"
	}
	return "Complex"
}

const suggestionSystemPrompt = `You are a product triage assistant. Given a tracked work item, suggest where in the product it applies and how to act on it.

Output JSON only:
{
  "where": string[] (product areas or modules),
  "how": "one short paragraph",
  "confidence": number (0-1)
}`

// SuggestPlacement fills the aiSuggestions block for one item.
func (s *Service) SuggestPlacement(ctx context.Context, item pmstore.Item) (pmstore.AISuggestions, error) {
	prompt := fmt.Sprintf("Item %s (%s): %s\n\n%s", item.ItemID, item.Type, item.Title, item.Description)
	var raw struct {
		Where      []string `json:"where"`
		How        string   `json:"how"`
		Confidence float64  `json:"confidence"`
	}
	err := s.llm.InvokeJSON(ctx, []llm.Message{
		{Role: "system", Content: suggestionSystemPrompt},
		{Role: "user", Content: prompt},
	}, &raw)
	if err != nil {
		return pmstore.AISuggestions{}, fmt.Errorf("placement suggestion: %w", err)
	}
	return pmstore.AISuggestions{
		Where:       raw.Where,
		How:         raw.How,
		Confidence:  raw.Confidence,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}
