package segment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turncast/turncast/internal/backoff"
	"github.com/turncast/turncast/internal/boundary"
	"github.com/turncast/turncast/internal/oracle"
	"github.com/turncast/turncast/internal/transcript"
)

func testSession(mock *oracle.ScriptedOracle) *oracle.Session {
	return &oracle.Session{
		Client: mock,
		Model:  "m1",
		Policy: backoff.Policy{MaxAttempts: 2, BaseDelay: time.Microsecond},
	}
}

func TestSegmentPromptEchoOverrun(t *testing.T) {
	// A two-boundary session where the second boundary is a bare trailing
	// prompt: the prompt echo lands in the first turn's observation and
	// the empty trailing turn disappears.
	tx := transcript.New("t", "Welcome\nuser@h:~$ ls\nfile1\nfile2\nuser@h:~$ ")
	bounds := []boundary.Boundary{
		{Line: 2, Prompt: "user@h:~$ "},
		{Line: 5, Prompt: "user@h:~$ "},
	}

	mock := oracle.NewScriptedOracle()
	mock.Stub("classify-turn",
		`{"action_content":"ls","observation_lines":["file1","file2"]}`,
		`{"action_content":"","observation_lines":[]}`,
	)

	initial, turns, err := Segmenter{}.Segment(context.Background(), testSession(mock), tx, bounds)
	require.NoError(t, err)

	assert.Equal(t, "Welcome\n", initial)
	require.Len(t, turns, 1)
	assert.Equal(t, 1, turns[0].TurnID)
	assert.Equal(t, "ls", turns[0].Action.Content)
	assert.Equal(t, "file1\nfile2\nuser@h:~$ ", turns[0].Observation.Content)
}

func TestSegmentContinuationMerge(t *testing.T) {
	tx := transcript.New("t", "$ echo foo \\\n> bar\nfoo bar\n")
	bounds := []boundary.Boundary{{Line: 1, Prompt: "$ "}}

	mock := oracle.NewScriptedOracle()
	mock.Stub("classify-turn", `{"action_content":"echo foo \\\n> bar","observation_lines":["foo bar"]}`)

	_, turns, err := Segmenter{}.Segment(context.Background(), testSession(mock), tx, bounds)
	require.NoError(t, err)

	require.Len(t, turns, 1)
	assert.Equal(t, "echo foo \\\n> bar", turns[0].Action.Content)
	assert.Equal(t, "foo bar", turns[0].Observation.Content)
}

func TestSegmentNoBoundaries(t *testing.T) {
	tx := transcript.New("t", "just output\nno prompts\n")
	mock := oracle.NewScriptedOracle()

	initial, turns, err := Segmenter{}.Segment(context.Background(), testSession(mock), tx, nil)
	require.NoError(t, err)

	assert.Equal(t, tx.Text(), initial)
	assert.Empty(t, turns)
	assert.Empty(t, mock.Calls())
}

func TestSegmentLeadingEmptyActionFoldsIntoInitial(t *testing.T) {
	// First span matched a prompt shape but classified to no command:
	// its lines belong to the preamble.
	tx := transcript.New("t", "$ banner text\nmore banner\n$ ls\nfile1\n")
	bounds := []boundary.Boundary{
		{Line: 1, Prompt: "$ "},
		{Line: 3, Prompt: "$ "},
	}

	mock := oracle.NewScriptedOracle()
	mock.Stub("classify-turn",
		`{"action_content":"","observation_lines":["$ banner text","more banner"]}`,
		`{"action_content":"ls","observation_lines":["file1"]}`,
	)

	initial, turns, err := Segmenter{}.Segment(context.Background(), testSession(mock), tx, bounds)
	require.NoError(t, err)

	assert.Equal(t, "$ banner text\nmore banner\n", initial)
	require.Len(t, turns, 1)
	assert.Equal(t, "ls", turns[0].Action.Content)
	assert.Equal(t, 1, turns[0].TurnID)
}

func TestSegmentSpansCoverTranscript(t *testing.T) {
	tx := transcript.New("t", "pre\n$ a\nout-a\n$ b\nout-b\n")
	bounds := []boundary.Boundary{
		{Line: 2, Prompt: "$ "},
		{Line: 4, Prompt: "$ "},
	}

	mock := oracle.NewScriptedOracle()
	mock.Stub("classify-turn",
		`{"action_content":"a","observation_lines":["out-a"]}`,
		`{"action_content":"b","observation_lines":["out-b"]}`,
	)

	initial, turns, err := Segmenter{}.Segment(context.Background(), testSession(mock), tx, bounds)
	require.NoError(t, err)

	// Every transcript line appears exactly once across the preamble and
	// the raw spans, in order.
	all := strings.Split(strings.TrimSuffix(initial, "\n"), "\n")
	for _, turn := range turns {
		all = append(all, turn.Observation.RawLines...)
	}
	assert.Equal(t, []string{"pre", "$ a", "out-a", "$ b", "out-b"}, all)
}

func TestSegmentErrorMarkerSetsMetadata(t *testing.T) {
	tx := transcript.New("t", "$ cat nope\n[Error: No such file]\n$ ls\nfile\n")
	bounds := []boundary.Boundary{
		{Line: 1, Prompt: "$ "},
		{Line: 3, Prompt: "$ "},
	}

	mock := oracle.NewScriptedOracle()
	mock.Stub("classify-turn",
		`{"action_content":"cat nope","observation_lines":["[Error: No such file]"]}`,
		`{"action_content":"ls","observation_lines":["file"]}`,
	)

	_, turns, err := Segmenter{}.Segment(context.Background(), testSession(mock), tx, bounds)
	require.NoError(t, err)

	require.Len(t, turns, 2)
	assert.True(t, turns[0].Metadata.HasError)
	assert.False(t, turns[1].Metadata.HasError)
}

func TestSegmentClassifyFailureFallsBackToHeuristic(t *testing.T) {
	tx := transcript.New("t", "$ ls\nfile1\nfile2\n")
	bounds := []boundary.Boundary{{Line: 1, Prompt: "$ "}}

	mock := oracle.NewScriptedOracle()
	mock.FailWith("classify-turn", errors.New("boom"))

	_, turns, err := Segmenter{}.Segment(context.Background(), testSession(mock), tx, bounds)
	require.NoError(t, err)

	require.Len(t, turns, 1)
	assert.Equal(t, "ls", turns[0].Action.Content)
	assert.Equal(t, "file1\nfile2", turns[0].Observation.Content)
}

func TestSegmentCanceledContextPropagates(t *testing.T) {
	tx := transcript.New("t", "$ ls\nfile\n")
	bounds := []boundary.Boundary{{Line: 1, Prompt: "$ "}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Segmenter{}.Segment(ctx, testSession(oracle.NewScriptedOracle()), tx, bounds)
	assert.Error(t, err)
}
