package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "exact multiple", text: "12345678", want: 2},
		{name: "rounds up", text: "123456789", want: 3},
		{name: "single char", text: "x", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Estimate(tt.text))
		})
	}
}

func TestCounterInterface(t *testing.T) {
	var c Counter = NewEstimatingCounter()
	assert.Equal(t, 3, c.Count("abcdefghij"))
}

func TestOverBudget(t *testing.T) {
	text := strings.Repeat("a", 400) // ~100 tokens

	assert.False(t, OverBudget(text, 100))
	assert.True(t, OverBudget(text, 99))
	assert.False(t, OverBudget(text, 0), "zero budget disables the check")
	assert.False(t, OverBudget(text, -1))
}
