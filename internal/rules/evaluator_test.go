package rules

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turncast/turncast/internal/models"
)

func resultWithTurns(model string, turns ...[2]string) *models.ParseResult {
	r := &models.ParseResult{ModelID: model, FileID: "t"}
	for i, t := range turns {
		r.Turns = append(r.Turns, models.Turn{
			TurnID:      i + 1,
			Action:      models.Action{Content: t[0]},
			Observation: models.Observation{Content: t[1]},
		})
	}
	return r
}

func nTurns(model string, n int) *models.ParseResult {
	var turns [][2]string
	for i := 0; i < n; i++ {
		turns = append(turns, [2]string{fmt.Sprintf("cmd-%d", i), fmt.Sprintf("out-%d", i)})
	}
	return resultWithTurns(model, turns...)
}

func TestEvaluateUnsuitableOverridesEverything(t *testing.T) {
	// Perfectly matching results still reject when the judge flagged the
	// content itself.
	results := map[string]*models.ParseResult{
		"a": nTurns("a", 2),
		"b": nTurns("b", 2),
	}
	judgment := models.JudgmentRecord{Winner: models.WinnerUnsuitable, RejectionType: "sensitive_content"}

	v := NewEvaluator(DefaultThresholds()).Evaluate("cmd-0\nout-0\ncmd-1\nout-1", judgment, results)
	assert.False(t, v.Accepted)
	assert.Equal(t, ReasonUnsuitable, v.Reason)
}

func TestEvaluateNonModelWinner(t *testing.T) {
	results := map[string]*models.ParseResult{"a": nTurns("a", 1), "b": nTurns("b", 1)}

	for _, winner := range []string{models.WinnerTie, models.WinnerAllIncorrect, ""} {
		v := NewEvaluator(DefaultThresholds()).Evaluate("x", models.JudgmentRecord{Winner: winner}, results)
		assert.False(t, v.Accepted, winner)
		assert.Equal(t, ReasonNoWinner, v.Reason, winner)
	}
}

func TestEvaluateTwoModelCountDisagreementRejects(t *testing.T) {
	// M=2, C=1: a bare majority of one is not enough.
	results := map[string]*models.ParseResult{
		"a": nTurns("a", 3),
		"b": nTurns("b", 2),
	}
	judgment := models.JudgmentRecord{Winner: "a"}

	v := NewEvaluator(DefaultThresholds()).Evaluate("x", judgment, results)
	assert.False(t, v.Accepted)
	assert.Equal(t, ReasonTurnCount, v.Reason)
	assert.Equal(t, 1, v.CountVotes)
	assert.Equal(t, 2, v.ComparableModels)
}

func TestEvaluateCountMajorityPasses(t *testing.T) {
	// Counts [5,5,3]: two of three agree with the winner, which clears
	// the majority bar even though one model disagrees.
	source := "cmd-0\nout-0\ncmd-1\nout-1\ncmd-2\nout-2\ncmd-3\nout-3\ncmd-4\nout-4"
	results := map[string]*models.ParseResult{
		"a": nTurns("a", 5),
		"b": nTurns("b", 5),
		"c": nTurns("c", 3),
	}
	judgment := models.JudgmentRecord{Winner: "a"}

	v := NewEvaluator(DefaultThresholds()).Evaluate(source, judgment, results)
	assert.True(t, v.Accepted)
	assert.Equal(t, 2, v.CountVotes)
	assert.Equal(t, 2, v.SimilarityVotes)
}

func TestEvaluateLowTurnSimilarityRejects(t *testing.T) {
	results := map[string]*models.ParseResult{
		"a": resultWithTurns("a", [2]string{"ls", "file1"}, [2]string{"pwd", "/home"}),
		"b": resultWithTurns("b", [2]string{"completely", "different"}, [2]string{"text", "entirely"}),
		"c": resultWithTurns("c", [2]string{"unrelated", "stuff"}, [2]string{"other", "things"}),
	}
	judgment := models.JudgmentRecord{Winner: "a"}

	v := NewEvaluator(DefaultThresholds()).Evaluate("ls\nfile1\npwd\n/home", judgment, results)
	assert.False(t, v.Accepted)
	assert.Equal(t, ReasonTurnSimilarity, v.Reason)
	assert.Equal(t, 1, v.SimilarityVotes)
}

func TestEvaluateReconstructionMismatchRejects(t *testing.T) {
	// Models agree with each other but none of it is in the transcript.
	results := map[string]*models.ParseResult{
		"a": resultWithTurns("a", [2]string{"ls", "file1"}),
		"b": resultWithTurns("b", [2]string{"ls", "file1"}),
	}
	judgment := models.JudgmentRecord{Winner: "a"}

	v := NewEvaluator(DefaultThresholds()).Evaluate("nothing\nlike\nthat\nhere", judgment, results)
	assert.False(t, v.Accepted)
	assert.Equal(t, ReasonReconstruction, v.Reason)
}

func TestEvaluateAcceptsPerfectSegmentation(t *testing.T) {
	source := "Welcome\nls\nfile1\nfile2\npwd\n/home"
	winner := &models.ParseResult{
		ModelID:       "a",
		InitialOutput: "Welcome\n",
		Turns: []models.Turn{
			{TurnID: 1, Action: models.Action{Content: "ls"}, Observation: models.Observation{Content: "file1\nfile2"}},
			{TurnID: 2, Action: models.Action{Content: "pwd"}, Observation: models.Observation{Content: "/home"}},
		},
	}
	runnerUp := &models.ParseResult{
		ModelID:       "b",
		InitialOutput: "Welcome\n",
		Turns:         winner.Turns,
	}
	results := map[string]*models.ParseResult{"a": winner, "b": runnerUp}
	judgment := models.JudgmentRecord{Winner: "a", Confidence: 0.9}

	v := NewEvaluator(DefaultThresholds()).Evaluate(source, judgment, results)
	assert.True(t, v.Accepted)
	assert.Empty(t, v.Reason)
	assert.InDelta(t, 1.0, v.Reconstruction, 1e-9)
}

func TestEvaluateWinnerMissingFromResults(t *testing.T) {
	results := map[string]*models.ParseResult{"b": nTurns("b", 1)}
	v := NewEvaluator(DefaultThresholds()).Evaluate("x", models.JudgmentRecord{Winner: "a"}, results)
	assert.False(t, v.Accepted)
	assert.Equal(t, ReasonNoWinner, v.Reason)
}
