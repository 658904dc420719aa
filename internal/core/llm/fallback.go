package llm

import (
	"context"
	"strings"

	"github.com/bidbot-ai/bidbot/internal/core"
)

// Apology is returned to the user whenever the hosted model fails. The real
// error is logged server-side; this string is all the client sees.
const Apology = "I'm sorry, I wasn't able to process your question right now. Please try again later."

// cannedAnswers maps lowercase keywords to static answers used when no model
// API key is configured.
var cannedAnswers = []struct {
	keyword string
	answer  string
}{
	{"rfp", "An RFP (Request for Proposal) is a solicitation document agencies publish when they want vendors to propose solutions. Look for active RFPs on SAM.gov under Contract Opportunities."},
	{"rfq", "An RFQ (Request for Quotation) asks vendors for pricing on a defined requirement. Responses are usually evaluated primarily on price."},
	{"solicitation", "Solicitations are published on SAM.gov under Contract Opportunities. You can filter by NAICS code, agency, and response deadline."},
	{"sam.gov", "SAM.gov is the U.S. government's System for Award Management. Contractors must maintain an active SAM registration to bid on federal work."},
	{"registration", "To register as a federal contractor, create an account on SAM.gov, obtain a Unique Entity ID, and complete the entity registration including reps and certs."},
	{"naics", "NAICS codes classify your business activities. Agencies use them to set aside contracts; pick the codes that best match your primary services."},
	{"bid", "To bid on a federal contract you need an active SAM.gov registration, then respond to the solicitation following its instructions exactly before the deadline."},
}

const genericCannedAnswer = "I can help with government contracting questions: finding solicitations, SAM.gov registration, NAICS codes, and the proposal process. Could you be more specific?"

// FallbackLLM answers from a static keyword table. It stands in for the
// hosted model when no API key is configured.
type FallbackLLM struct{}

func NewFallbackLLM() *FallbackLLM {
	return &FallbackLLM{}
}

func (f *FallbackLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	lower := strings.ToLower(userPrompt)
	for _, c := range cannedAnswers {
		if strings.Contains(lower, c.keyword) {
			return c.answer, nil
		}
	}
	return genericCannedAnswer, nil
}

var _ core.LLMProvider = (*FallbackLLM)(nil)
