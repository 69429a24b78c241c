package triage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"pmhub/server/internal/llm"
)

// Issue categories for generated-code validation. Syntax and import issues
// make a generation invalid; type and lint issues only annotate it.
const (
	IssueSyntax = "syntax"
	IssueType   = "type"
	IssueImport = "import"
	IssueLint   = "lint"
)

type ValidationIssue struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	AutoFixable bool   `json:"auto_fixable"`
}

// CodeGeneration is the outcome of one generation pass: the proposed files,
// a summary, and the validation verdict over them.
type CodeGeneration struct {
	FeatureID string            `json:"feature_id"`
	Files     map[string]string `json:"files"`
	Summary   string            `json:"summary"`
	Valid     bool              `json:"valid"`
	Issues    []ValidationIssue `json:"issues,omitempty"`
}

const codegenSystemPrompt = `You are a senior software engineer implementing features for this product.

Generate clean, production-ready code following these guidelines:
- Use TypeScript with proper typing
- Follow existing code patterns
- Include error handling
- Add inline comments for complex logic
- Use modern React patterns (hooks, functional components)
- Follow the project's conventions

Output JSON only:
{
  "files": {
    "path/to/file.ts": "file content",
    "path/to/another.tsx": "file content"
  },
  "summary": "Brief description of what was implemented"
}`

// GenerateCode produces an implementation for one in-progress feature from
// its dev brief and runs the basic validation pass over the result.
func (s *Service) GenerateCode(ctx context.Context, featureID, devBrief string) (CodeGeneration, error) {
	if strings.TrimSpace(devBrief) == "" {
		return CodeGeneration{}, fmt.Errorf("feature %s has no dev brief content", featureID)
	}
	var raw struct {
		Files   map[string]string `json:"files"`
		Summary string            `json:"summary"`
	}
	err := s.llm.InvokeJSON(ctx, []llm.Message{
		{Role: "system", Content: codegenSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Implement this feature:\n\n%s\n\nGenerate the necessary code files.", devBrief)},
	}, &raw)
	if err != nil {
		return CodeGeneration{}, fmt.Errorf("code generation: %w", err)
	}
	if len(raw.Files) == 0 {
		return CodeGeneration{}, fmt.Errorf("code generation for %s produced no files", featureID)
	}

	issues := validateGeneratedFiles(raw.Files)
	valid := true
	for _, issue := range issues {
		if issue.Type == IssueSyntax || issue.Type == IssueImport {
			valid = false
			break
		}
	}
	return CodeGeneration{
		FeatureID: featureID,
		Files:     raw.Files,
		Summary:   raw.Summary,
		Valid:     valid,
		Issues:    issues,
	}, nil
}

// validateGeneratedFiles applies cheap static checks to the proposed files.
// The checks mirror the conventions of the product codebase the generated
// code targets (TypeScript + React).
func validateGeneratedFiles(files map[string]string) []ValidationIssue {
	var issues []ValidationIssue
	for _, path := range sortedPaths(files) {
		content := files[path]
		if strings.Contains(content, "undefined") && !strings.Contains(content, "typeof undefined") {
			issues = append(issues, ValidationIssue{
				Type:    IssueLint,
				Message: "potential undefined usage in " + path,
			})
		}
		if strings.Contains(content, "React") && !strings.Contains(content, "import") {
			issues = append(issues, ValidationIssue{
				Type:        IssueImport,
				Message:     "missing React import in " + path,
				AutoFixable: true,
			})
		}
		if strings.HasSuffix(path, ".ts") || strings.HasSuffix(path, ".tsx") {
			hasTypes := strings.Contains(content, ": ") ||
				strings.Contains(content, "interface ") ||
				strings.Contains(content, "type ")
			if !hasTypes && len(content) > 100 {
				issues = append(issues, ValidationIssue{
					Type:    IssueType,
					Message: "no type annotations found in " + path,
				})
			}
		}
	}
	return issues
}

func sortedPaths(files map[string]string) []string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// HandoffPrompt packages a generation result into a continuation prompt a
// developer can hand to an implementation agent.
func HandoffPrompt(featureID, devBriefPath string, gen CodeGeneration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Continue development of %s\n\nDev-brief: %s", featureID, devBriefPath)
	if len(gen.Files) > 0 {
		b.WriteString("\n\nGenerated files:\n")
		for _, path := range sortedPaths(gen.Files) {
			fmt.Fprintf(&b, "- %s\n", path)
		}
	}
	if len(gen.Issues) > 0 {
		b.WriteString("\nIssues found:\n")
		for _, issue := range gen.Issues {
			fmt.Fprintf(&b, "- [%s] %s\n", issue.Type, issue.Message)
		}
	}
	b.WriteString("\nPlease review the generated code, fix any issues, and complete the implementation following the dev-brief requirements.")
	return b.String()
}
