// Package budget provides token budget estimation and source trimming for
// answer synthesis. Because the service supports multiple LLM backends with
// different tokenizers, this package uses a conservative character-based
// heuristic: 1 token ≈ 4 characters (English prose). This deliberately
// under-estimates token counts to leave headroom for model-specific overhead.
package budget

import (
	"github.com/cloudwego/eino/schema"
)

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English; using 3 would be
	// more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// Conservative enough to fit within 8k-context models while leaving room
	// for the output. Override via Config.MaxContextTokens.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		// Each message has a small per-message overhead (~4 tokens in most APIs).
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// TrimSources drops note excerpts from the tail of sources until the total
// estimated token count of reserved + the surviving sources fits within
// maxTokens. Sources arrive ranked by relevance, so the least relevant notes
// are sacrificed first. reserved accounts for the prompt scaffolding and the
// user's question, which are never trimmed.
//
// If even a single source exceeds the budget, an empty slice is returned and
// the caller synthesizes without grounding notes rather than failing.
func TrimSources(sources []string, reserved, maxTokens int) []string {
	total := reserved
	kept := 0
	for _, s := range sources {
		n := Estimate(s)
		if total+n > maxTokens {
			break
		}
		total += n
		kept++
	}
	return sources[:kept]
}
