package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bidbot-ai/bidbot/internal/core"
	"github.com/bidbot-ai/bidbot/internal/core/sam"
	"github.com/bidbot-ai/bidbot/internal/core/webscrape"
)

// opportunityKeywords classify a query as opportunity-related.
var opportunityKeywords = []string{
	"solicitation", "sam.gov", "contract", "opportunity", "bid", "rfp", "rfq",
	"proposal", "federal", "government contract",
}

// OpportunitySearcher is the slice of the SAM client the aggregator needs.
type OpportunitySearcher interface {
	SearchOpportunities(ctx context.Context, query string) ([]sam.Opportunity, error)
}

// PageFetcher is the slice of the scraper the aggregator needs.
type PageFetcher interface {
	FetchContent(ctx context.Context, url string) (string, error)
}

// AggregatorService gathers external context for a query: SAM.gov
// opportunities when the query is opportunity-related, plus the content of
// any URLs embedded in the query text. It never fails the caller; an empty
// result means no enrichment is available.
type AggregatorService struct {
	sam     OpportunitySearcher
	scraper PageFetcher
	now     func() time.Time
}

func NewAggregatorService(samClient OpportunitySearcher, scraper PageFetcher) *AggregatorService {
	return &AggregatorService{sam: samClient, scraper: scraper, now: time.Now}
}

// IsOpportunityQuery reports whether the query mentions any opportunity
// keyword.
func IsOpportunityQuery(query string) bool {
	lower := strings.ToLower(query)
	for _, kw := range opportunityKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func (s *AggregatorService) Aggregate(ctx context.Context, query string) []core.Snippet {
	var snippets []core.Snippet
	stamp := s.now().UTC().Format(time.RFC3339)

	if IsOpportunityQuery(query) {
		opps, err := s.sam.SearchOpportunities(ctx, query)
		if err != nil {
			log.Printf("aggregator: sam search failed: %v", err)
		}
		for _, opp := range opps {
			snippets = append(snippets, core.Snippet{
				Source:    "sam.gov",
				URL:       opp.URL,
				Content:   formatOpportunity(opp),
				Timestamp: stamp,
			})
		}
	}

	urls := webscrape.ExtractURLs(query)
	if len(urls) > 0 {
		results := make([]string, len(urls))
		g, gctx := errgroup.WithContext(ctx)
		var mu sync.Mutex
		for i, u := range urls {
			g.Go(func() error {
				content, err := s.scraper.FetchContent(gctx, u)
				if err != nil {
					log.Printf("aggregator: scrape failed for %s: %v", u, err)
					return nil
				}
				mu.Lock()
				results[i] = content
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		for i, content := range results {
			if content == "" {
				continue
			}
			snippets = append(snippets, core.Snippet{
				Source:    "web",
				URL:       urls[i],
				Content:   content,
				Timestamp: stamp,
			})
		}
	}

	return snippets
}

func formatOpportunity(opp sam.Opportunity) string {
	return fmt.Sprintf(
		"Title: %s\nAgency: %s\nSolicitation Number: %s\nPosted: %s\nResponse Deadline: %s\nView on SAM.gov: %s",
		opp.Title, opp.Agency, opp.SolicitationNumber, opp.PostedDate, opp.DueDate, opp.URL,
	)
}
