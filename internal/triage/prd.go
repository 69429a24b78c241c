package triage

import (
	"context"
	"fmt"
	"strings"

	"pmhub/server/internal/llm"
)

const prdDraftPrompt = `You are a product manager. Create a PRD (Product Requirements Document) draft for this idea:

%q

%s

Generate a structured PRD with these sections:
1. Overview (1-2 sentences)
2. User Stories (3-5 stories)
3. Requirements (functional + non-functional)
4. Technical Approach (high-level)
5. Edge Cases (list potential issues)
6. QA Criteria (how to test)

Keep it concise but complete. Focus on structure over details.`

const prdEnhancePrompt = `You are a senior product manager and technical architect. Enhance this PRD draft with:

1. Security considerations (auth, data validation, CSRF, XSS, etc.)
2. Performance implications (caching, database queries, API calls)
3. Edge cases and error handling
4. Technical implementation details
5. Dependencies on existing features
6. Rollback/migration strategy if applicable

Original draft:
%s

Provide the COMPLETE enhanced PRD, not just additions. Maintain the structure but add depth.`

// GeneratePRD runs the two-pass draft-then-enhance flow and returns the
// enhanced document.
func (s *Service) GeneratePRD(ctx context.Context, idea, background string) (string, error) {
	extra := ""
	if strings.TrimSpace(background) != "" {
		extra = "Additional context: " + background
	}
	draft, err := s.llm.Invoke(ctx, []llm.Message{
		{Role: "user", Content: fmt.Sprintf(prdDraftPrompt, idea, extra)},
	})
	if err != nil {
		return "", fmt.Errorf("prd draft: %w", err)
	}
	enhanced, err := s.llm.Invoke(ctx, []llm.Message{
		{Role: "user", Content: fmt.Sprintf(prdEnhancePrompt, draft)},
	})
	if err != nil {
		return "", fmt.Errorf("prd enhancement: %w", err)
	}
	return enhanced, nil
}
