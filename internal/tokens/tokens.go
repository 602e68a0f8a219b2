package tokens

import (
	"math"
)

const charsPerToken = 4

// Counter counts tokens in text.
type Counter interface {
	Count(text string) int
}

// EstimatingCounter approximates token count as ~4 characters per token.
// Good enough for budget checks and oracle request batching.
type EstimatingCounter struct{}

func NewEstimatingCounter() *EstimatingCounter {
	return &EstimatingCounter{}
}

func (*EstimatingCounter) Count(text string) int {
	return Estimate(text)
}

func Estimate(text string) int {
	return int(math.Ceil(float64(len(text)) / float64(charsPerToken)))
}

// OverBudget reports whether text exceeds the given token budget.
// A budget of zero or less disables the check.
func OverBudget(text string, budget int) bool {
	if budget <= 0 {
		return false
	}
	return Estimate(text) > budget
}
