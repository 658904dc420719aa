package llm

import (
	"context"
	"strings"
	"testing"
)

func TestFallbackKeywordAnswers(t *testing.T) {
	f := NewFallbackLLM()

	cases := []struct {
		prompt string
		expect string
	}{
		{"What is an RFP?", "Request for Proposal"},
		{"how does sam.gov registration work", "System for Award Management"},
		{"which NAICS code should I pick", "NAICS codes classify"},
	}
	for _, c := range cases {
		got, err := f.Generate(context.Background(), "", c.prompt)
		if err != nil {
			t.Fatalf("Generate(%q): %v", c.prompt, err)
		}
		if !strings.Contains(got, c.expect) {
			t.Errorf("Generate(%q) = %q, want substring %q", c.prompt, got, c.expect)
		}
	}
}

func TestFallbackGenericAnswer(t *testing.T) {
	f := NewFallbackLLM()
	got, err := f.Generate(context.Background(), "", "tell me about the weather")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != genericCannedAnswer {
		t.Errorf("expected generic answer, got %q", got)
	}
}
