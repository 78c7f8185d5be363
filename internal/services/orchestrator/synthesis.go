package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
)

const synthesisSystemPrompt = "You are a research assistant. Answer from the provided context only and cite sources by their bracketed numbers."

const synthesisPromptTemplate = `Question: %s

Context documents:
%s

Write a markdown answer to the question using only the context above.
Cite every claim with the bracketed document number, e.g. [2]. If the
context only partially covers the question, answer what it supports and
say plainly what remains unknown.`

const noContextAnswer = "No monitored source currently covers this question. The discovery pipeline has been tasked with finding relevant sources; ask again once new content has been ingested."

// synthesize produces the final cited answer from the assembled context.
func (s *Service) synthesize(ctx context.Context, question string, docs []contextDoc) (*interfaces.Answer, error) {
	if len(docs) == 0 {
		return &interfaces.Answer{
			Text:          noContextAnswer,
			LowConfidence: true,
		}, nil
	}

	var b strings.Builder
	cited := make([]string, 0, len(docs))
	for i, doc := range docs {
		fmt.Fprintf(&b, "[%d] %s (%s)\n%s\n\n", i+1, doc.Title, doc.URL, doc.Summary)
		cited = append(cited, doc.DocumentID)
	}

	prompt := fmt.Sprintf(synthesisPromptTemplate, question, b.String())
	resp, err := s.waterfall.Generate(ctx, &interfaces.GenerateRequest{
		Messages:          []interfaces.Message{{Role: "user", Content: prompt}},
		SystemInstruction: synthesisSystemPrompt,
		Temperature:       0.3,
		MaxTokens:         2048,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize answer: %w", err)
	}

	return &interfaces.Answer{
		Text:             strings.TrimSpace(resp.Text),
		CitedDocumentIDs: cited,
	}, nil
}
