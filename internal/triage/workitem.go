package triage

import (
	"context"
	"fmt"

	"pmhub/server/internal/llm"
	"pmhub/server/internal/pmstore"
)

const workItemSystemPrompt = `You are a technical lead turning a product item into an implementation-ready work item.

Output JSON only:
{
  "diagnosis": "what needs to change and why",
  "priority": "critical" | "high" | "medium" | "low",
  "estimated_minutes": number,
  "dependencies": string[] (item ids that must land first),
  "qa_requirements": "acceptance criteria",
  "implementation_steps": string[] (ordered, concrete)
}`

// PlanWorkItem turns a PM item into a structured implementation-queue entry.
func (s *Service) PlanWorkItem(ctx context.Context, item pmstore.Item) (pmstore.WorkItem, error) {
	prompt := fmt.Sprintf("Item %s (%s, status %s): %s\n\n%s",
		item.ItemID, item.Type, item.Status, item.Title, item.Description)
	var raw struct {
		Diagnosis           string   `json:"diagnosis"`
		Priority            string   `json:"priority"`
		EstimatedMinutes    int      `json:"estimated_minutes"`
		Dependencies        []string `json:"dependencies"`
		QARequirements      string   `json:"qa_requirements"`
		ImplementationSteps []string `json:"implementation_steps"`
	}
	err := s.llm.InvokeJSON(ctx, []llm.Message{
		{Role: "system", Content: workItemSystemPrompt},
		{Role: "user", Content: prompt},
	}, &raw)
	if err != nil {
		return pmstore.WorkItem{}, fmt.Errorf("work item planning: %w", err)
	}
	if !pmstore.ValidPriority(raw.Priority) {
		raw.Priority = pmstore.PriorityMedium
	}
	return pmstore.WorkItem{
		PmItemID:            item.ItemID,
		Title:               item.Title,
		Description:         item.Description,
		Diagnosis:           raw.Diagnosis,
		Priority:            raw.Priority,
		EstimatedMinutes:    raw.EstimatedMinutes,
		Dependencies:        raw.Dependencies,
		QARequirements:      raw.QARequirements,
		ImplementationSteps: raw.ImplementationSteps,
	}, nil
}
