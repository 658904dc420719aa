package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bidbot-ai/bidbot/internal/core"
	"github.com/bidbot-ai/bidbot/internal/core/llm"
)

const (
	systemPrompt = "You are a GovCon AI Assistant helping with government contracting questions. " +
		"Provide clear, accurate information about government contracts, regulations, and procurement processes."

	// Each context source is capped so a handful of snippets cannot blow the
	// model's context window.
	maxSnippetChars = 1200

	documentChunkLimit = 5
)

// AnswerService builds the final prompt from the user's question, external
// context snippets, and (when an embedder is wired) similar chunks from the
// user's own documents, then asks the model. Model failures never reach the
// caller: the result is always a usable string.
type AnswerService struct {
	llm      core.LLMProvider
	embedder core.EmbeddingProvider // nil disables document context
	db       core.DbClient
}

func NewAnswerService(provider core.LLMProvider, embedder core.EmbeddingProvider, db core.DbClient) *AnswerService {
	return &AnswerService{llm: provider, embedder: embedder, db: db}
}

func (s *AnswerService) Answer(ctx context.Context, userID, query string, snippets []core.Snippet) string {
	var b strings.Builder
	b.WriteString(query)

	if docCtx := s.documentContext(ctx, userID, query); docCtx != "" {
		b.WriteString("\n\nRelevant excerpts from the user's uploaded documents:\n")
		b.WriteString(docCtx)
	}

	if len(snippets) > 0 {
		b.WriteString("\n\nLive data gathered for this question:\n")
		for _, sn := range snippets {
			content := sn.Content
			if len(content) > maxSnippetChars {
				content = content[:maxSnippetChars]
			}
			fmt.Fprintf(&b, "\n[%s] %s\n%s\n", sn.Source, sn.URL, content)
		}
	}

	// Single attempt; the model is not retried.
	answer, err := s.llm.Generate(ctx, systemPrompt, b.String())
	if err != nil {
		log.Printf("answer: llm call failed: %v", err)
		return llm.Apology
	}
	if answer == "" {
		return llm.Apology
	}
	return answer
}

// documentContext embeds the query and pulls the closest chunks from the
// user's documents. Any failure just means no document context.
func (s *AnswerService) documentContext(ctx context.Context, userID, query string) string {
	if s.embedder == nil {
		return ""
	}

	vecs, err := s.embedder.EmbedTexts(ctx, []string{query})
	if err != nil || len(vecs) == 0 {
		if err != nil {
			log.Printf("answer: query embedding failed: %v", err)
		}
		return ""
	}

	chunks, err := s.db.SearchUserChunks(ctx, userID, vecs[0], documentChunkLimit)
	if err != nil {
		log.Printf("answer: chunk search failed: %v", err)
		return ""
	}

	var b strings.Builder
	for _, ch := range chunks {
		text := ch.Text
		if len(text) > maxSnippetChars {
			text = text[:maxSnippetChars]
		}
		b.WriteString(text)
		b.WriteString("\n---\n")
	}
	return b.String()
}
