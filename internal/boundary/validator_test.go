package boundary

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turncast/turncast/internal/oracle"
	"github.com/turncast/turncast/internal/transcript"
)

func TestConfirmFiltersFalsePositives(t *testing.T) {
	mock := oracle.NewScriptedOracle()
	mock.Stub("confirm-boundaries", `{
		"confirmed":[{"line":1},{"line":4}],
		"false_positives":[{"line":2,"reason":"output that echoes a prompt"}]
	}`)

	tx := transcript.New("t", "$ ls\n$ fake output\nfile1\n$ pwd\n/home\n")
	cands := []Candidate{
		{Line: 1, Prompt: "$ "},
		{Line: 2, Prompt: "$ "},
		{Line: 4, Prompt: "$ "},
	}

	bounds, err := Validator{}.Confirm(context.Background(), testSession(mock), tx, cands)
	require.NoError(t, err)
	require.Len(t, bounds, 2)
	assert.Equal(t, 1, bounds[0].Line)
	assert.Equal(t, 4, bounds[1].Line)
	assert.Equal(t, "$ ", bounds[0].Prompt)
}

func TestConfirmHonorsCorrectedLine(t *testing.T) {
	mock := oracle.NewScriptedOracle()
	mock.Stub("confirm-boundaries", `{"confirmed":[{"line":2,"corrected_line":3}]}`)

	tx := transcript.New("t", "a\nb\n$ ls\nfile\n")
	cands := []Candidate{{Line: 2, Prompt: "$ "}, {Line: 3, Prompt: "$ "}}

	bounds, err := Validator{}.Confirm(context.Background(), testSession(mock), tx, cands)
	require.NoError(t, err)
	require.Len(t, bounds, 1)
	assert.Equal(t, 3, bounds[0].Line)
}

func TestConfirmIgnoresOutOfRangeCorrection(t *testing.T) {
	mock := oracle.NewScriptedOracle()
	mock.Stub("confirm-boundaries", `{"confirmed":[{"line":2,"corrected_line":99}]}`)

	tx := transcript.New("t", "a\n$ ls\nfile\n")
	cands := []Candidate{{Line: 2, Prompt: "$ "}}

	bounds, err := Validator{}.Confirm(context.Background(), testSession(mock), tx, cands)
	require.NoError(t, err)
	require.Len(t, bounds, 1)
	assert.Equal(t, 2, bounds[0].Line, "original line kept when correction is invalid")
}

func TestConfirmEmptySetFallsBackToCandidates(t *testing.T) {
	mock := oracle.NewScriptedOracle()
	mock.Stub("confirm-boundaries", `{"confirmed":[]}`)

	tx := transcript.New("t", "$ ls\nfile\n$ pwd\n/home\n")
	cands := []Candidate{{Line: 1, Prompt: "$ "}, {Line: 3, Prompt: "$ "}}

	bounds, err := Validator{}.Confirm(context.Background(), testSession(mock), tx, cands)
	require.NoError(t, err)
	assert.Equal(t, FromCandidates(cands), bounds)
}

func TestConfirmOracleFailurePropagates(t *testing.T) {
	mock := oracle.NewScriptedOracle()
	mock.FailWith("confirm-boundaries", errors.New("boom"))

	tx := transcript.New("t", "$ ls\nfile\n")
	cands := []Candidate{{Line: 1, Prompt: "$ "}}

	_, err := Validator{}.Confirm(context.Background(), testSession(mock), tx, cands)
	assert.Error(t, err)
}

func TestConfirmNoCandidates(t *testing.T) {
	mock := oracle.NewScriptedOracle()
	tx := transcript.New("t", "no prompts here\n")

	bounds, err := Validator{}.Confirm(context.Background(), testSession(mock), tx, nil)
	require.NoError(t, err)
	assert.Empty(t, bounds)
	assert.Empty(t, mock.Calls(), "no oracle traffic without candidates")
}

func TestConfirmBatchesByTokenBudget(t *testing.T) {
	mock := oracle.NewScriptedOracle()
	// Every batch confirms its own candidates; two batches expected.
	mock.Stub("confirm-boundaries",
		`{"confirmed":[{"line":1}]}`,
		`{"confirmed":[{"line":3}]}`,
	)

	long := strings.Repeat("x", 200)
	tx := transcript.New("t", "$ ls\n"+long+"\n$ pwd\n"+long+"\n")
	cands := []Candidate{{Line: 1, Prompt: "$ "}, {Line: 3, Prompt: "$ "}}

	// Tiny budget forces one candidate per batch.
	bounds, err := Validator{BatchTokens: 10}.Confirm(context.Background(), testSession(mock), tx, cands)
	require.NoError(t, err)
	require.Len(t, bounds, 2)
	assert.Len(t, mock.CallsFor("confirm-boundaries"), 2)
}

func TestConfirmContextWindowsTruncated(t *testing.T) {
	mock := oracle.NewScriptedOracle()
	mock.Stub("confirm-boundaries", `{"confirmed":[{"line":2}]}`)

	long := strings.Repeat("y", 500)
	tx := transcript.New("t", long+"\n$ ls\n"+long+"\n")
	cands := []Candidate{{Line: 2, Prompt: "$ "}}

	_, err := Validator{}.Confirm(context.Background(), testSession(mock), tx, cands)
	require.NoError(t, err)

	calls := mock.CallsFor("confirm-boundaries")
	require.Len(t, calls, 1)
	assert.NotContains(t, calls[0].Input, long, "windows are truncated to 100 chars")
}
