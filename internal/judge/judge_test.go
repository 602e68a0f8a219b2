package judge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turncast/turncast/internal/backoff"
	"github.com/turncast/turncast/internal/models"
	"github.com/turncast/turncast/internal/oracle"
)

func testSession(mock *oracle.ScriptedOracle) *oracle.Session {
	return &oracle.Session{
		Client: mock,
		Model:  "judge-1",
		Policy: backoff.Policy{MaxAttempts: 2, BaseDelay: time.Microsecond},
	}
}

func twoResults() map[string]*models.ParseResult {
	return map[string]*models.ParseResult{
		"gpt-mini": {ModelID: "gpt-mini", FileID: "t"},
		"haiku":    {ModelID: "haiku", FileID: "t"},
	}
}

func TestDecideRequiresTwoModels(t *testing.T) {
	mock := oracle.NewScriptedOracle()
	_, err := Judge{}.Decide(context.Background(), testSession(mock), "x",
		map[string]*models.ParseResult{"solo": {ModelID: "solo"}})

	assert.ErrorIs(t, err, ErrInsufficientModels)
	assert.Empty(t, mock.Calls())
}

func TestDecideMapsLabelsToModels(t *testing.T) {
	mock := oracle.NewScriptedOracle()
	// Labels are assigned in sorted model-ID order: gpt-mini=model_a,
	// haiku=model_b.
	mock.Stub("judge", `{
		"winner": "model_b",
		"confidence": 0.85,
		"reason": "cleaner turn boundaries",
		"model_a_issues": ["merged turns 2 and 3"],
		"model_b_issues": [],
		"suitable_for_training": true
	}`)

	record, err := Judge{}.Decide(context.Background(), testSession(mock), "x", twoResults())
	require.NoError(t, err)

	assert.Equal(t, "haiku", record.Winner)
	assert.True(t, record.WinnerIsModel())
	assert.InDelta(t, 0.85, record.Confidence, 1e-9)
	assert.Equal(t, []string{"merged turns 2 and 3"}, record.Issues["gpt-mini"])
	assert.NotContains(t, record.Issues, "haiku")
}

func TestDecideUnsuitableOverridesWinner(t *testing.T) {
	mock := oracle.NewScriptedOracle()
	mock.Stub("judge", `{
		"winner": "model_a",
		"confidence": 0.9,
		"reason": "best of a bad lot",
		"suitable_for_training": false,
		"rejection_type": "garbled_content",
		"rejection_reason": "transcript is mostly binary noise"
	}`)

	record, err := Judge{}.Decide(context.Background(), testSession(mock), "x", twoResults())
	require.NoError(t, err)

	assert.Equal(t, models.WinnerUnsuitable, record.Winner)
	assert.Equal(t, "garbled_content", record.RejectionType)
	assert.Equal(t, "transcript is mostly binary noise", record.RejectionReason)
}

func TestDecideTieAndAllIncorrect(t *testing.T) {
	tests := []struct {
		winner string
		want   string
	}{
		{"tie", models.WinnerTie},
		{"all_incorrect", models.WinnerAllIncorrect},
		{"both_incorrect", models.WinnerAllIncorrect},
		{"model_z", models.WinnerAllIncorrect},
	}

	for _, tt := range tests {
		mock := oracle.NewScriptedOracle()
		mock.Stub("judge", `{"winner":"`+tt.winner+`","confidence":0.5,"reason":"r"}`)

		record, err := Judge{}.Decide(context.Background(), testSession(mock), "x", twoResults())
		require.NoError(t, err)
		assert.Equal(t, tt.want, record.Winner, tt.winner)
	}
}

func TestDecideAcceptsBareModelID(t *testing.T) {
	mock := oracle.NewScriptedOracle()
	mock.Stub("judge", `{"winner":"haiku","confidence":0.7,"reason":"r"}`)

	record, err := Judge{}.Decide(context.Background(), testSession(mock), "x", twoResults())
	require.NoError(t, err)
	assert.Equal(t, "haiku", record.Winner)
}

func TestDecideSendsAllCandidates(t *testing.T) {
	mock := oracle.NewScriptedOracle()
	mock.Stub("judge", `{"winner":"model_a","confidence":0.6,"reason":"r"}`)

	_, err := Judge{}.Decide(context.Background(), testSession(mock), "the transcript", twoResults())
	require.NoError(t, err)

	calls := mock.CallsFor("judge")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Input, "model_a")
	assert.Contains(t, calls[0].Input, "model_b")
	assert.Contains(t, calls[0].Input, "the transcript")
}
