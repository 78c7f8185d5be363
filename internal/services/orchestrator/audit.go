package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
)

const auditSystemPrompt = "You are a research coverage auditor. Follow the output format exactly."

const auditPromptTemplate = `Question: %s

Available context documents:
%s

Decide whether the context above is sufficient to answer the question well.
Respond in this exact format:
- First line: YES if sufficient, NO if not.
- If NO, each following line is one web search query (at most %d) that would close the gap. No other text.`

// auditResult is the parsed outcome of the coverage audit.
type auditResult struct {
	Sufficient bool
	GapQueries []string
}

// audit asks the reasoning chain whether the retrieved context covers the
// question, and which searches would close a gap if not. When there is no
// context at all the verdict is NO without spending a provider call.
func (s *Service) audit(ctx context.Context, question string, docs []contextDoc) (*auditResult, error) {
	if len(docs) == 0 {
		return &auditResult{
			Sufficient: false,
			GapQueries: []string{question},
		}, nil
	}

	prompt := fmt.Sprintf(auditPromptTemplate, question, formatContext(docs), s.config.MaxGapQueries)
	resp, err := s.waterfall.Generate(ctx, &interfaces.GenerateRequest{
		Messages:          []interfaces.Message{{Role: "user", Content: prompt}},
		SystemInstruction: auditSystemPrompt,
		Temperature:       0.1,
		MaxTokens:         512,
	})
	if err != nil {
		return nil, fmt.Errorf("coverage audit: %w", err)
	}

	result := parseAuditResponse(resp.Text, s.config.MaxGapQueries)
	if !result.Sufficient && len(result.GapQueries) == 0 {
		// NO with no queries still needs something to search for.
		result.GapQueries = []string{question}
	}
	return result, nil
}

// parseAuditResponse reads the YES/NO verdict line and any gap queries
// after it. An unparseable response counts as sufficient coverage rather
// than triggering an unbounded gap-fill.
func parseAuditResponse(text string, maxQueries int) *auditResult {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) == 0 {
		return &auditResult{Sufficient: true}
	}

	verdict := strings.ToUpper(strings.TrimSpace(lines[0]))
	if !strings.HasPrefix(verdict, "NO") {
		return &auditResult{Sufficient: true}
	}

	queries := make([]string, 0, maxQueries)
	for _, line := range lines[1:] {
		query := strings.TrimSpace(strings.TrimLeft(line, "-*0123456789. "))
		if query == "" {
			continue
		}
		queries = append(queries, query)
		if len(queries) >= maxQueries {
			break
		}
	}
	return &auditResult{Sufficient: false, GapQueries: queries}
}

func formatContext(docs []contextDoc) string {
	var b strings.Builder
	for i, doc := range docs {
		fmt.Fprintf(&b, "%d. [%s] %s — %s\n", i+1, doc.Category, doc.Title, doc.Summary)
	}
	return b.String()
}
