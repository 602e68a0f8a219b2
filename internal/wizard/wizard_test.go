package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitAndTrim("a, b"))
	assert.Equal(t, []string{"a"}, splitAndTrim("a,,  ,"))
	assert.Nil(t, splitAndTrim(""))
}

func TestValidators(t *testing.T) {
	assert.Error(t, required("x")("  "))
	assert.NoError(t, required("x")("value"))

	assert.Error(t, positiveInt("x")("abc"))
	assert.Error(t, positiveInt("x")("0"))
	assert.Error(t, positiveInt("x")("-3"))
	assert.NoError(t, positiveInt("x")(" 5 "))
}
