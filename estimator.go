package chatpg

import "strings"

// Cost estimation factor: roughly 1 token per 0.75 English words, applied as
// word count × 133 / 100 with integer truncation. This is a documented
// heuristic, not a tokenizer; callers must treat estimates as approximate.
const (
	costFactorNum = 133
	costFactorDen = 100
)

// EstimateCost approximates the token cost of a piece of text from its
// whitespace-delimited word count. Deterministic and pure; never fails.
//
// The result scales with word count and is monotone under concatenation
// (estimating "a b" is never cheaper than estimating "a"), but it is not an
// exact token count for any model.
func EstimateCost(text string) int {
	words := len(strings.Fields(text))
	return words * costFactorNum / costFactorDen
}
