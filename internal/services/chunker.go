package services

import (
	"strings"
)

type chunk struct {
	Pos      int
	Text     string
	TokenCnt int
}

// approxTokens estimates token count as whitespace-separated words.
func approxTokens(s string) int {
	return len(strings.Fields(s))
}

// splitChunks groups the lines of a document into chunks of roughly
// targetTokens tokens each. Blank lines are skipped.
func splitChunks(text string, targetTokens int) []chunk {
	if targetTokens <= 0 {
		targetTokens = 200
	}

	var (
		out    []chunk
		buf    []string
		tokSum int
		pos    int
	)

	flush := func() {
		if tokSum == 0 {
			return
		}
		out = append(out, chunk{Pos: pos, Text: strings.Join(buf, "\n"), TokenCnt: tokSum})
		pos++
		buf = buf[:0]
		tokSum = 0
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		buf = append(buf, line)
		tokSum += approxTokens(line)
		if tokSum >= targetTokens {
			flush()
		}
	}
	flush()

	return out
}
