package core

import "context"

type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}

// Snippet is one unit of external context gathered for a query: a SAM.gov
// opportunity, a scraped web page, or a document chunk. Empty Content is
// never emitted.
type Snippet struct {
	Source    string `json:"source"`
	URL       string `json:"url"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}
