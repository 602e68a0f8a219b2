// Package boundary finds turn boundaries in a transcript: a learner asks
// the oracle for prompt regexes, and a validator confirms which candidate
// lines really start a new command.
package boundary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/turncast/turncast/internal/oracle"
	"github.com/turncast/turncast/internal/transcript"
	"github.com/turncast/turncast/internal/validation"
)

// ErrPatternLearning signals that the oracle produced no usable prompt
// patterns. The built-in fallback patterns are still returned alongside it.
var ErrPatternLearning = errors.New("prompt pattern learning failed")

// learnSampleLines caps how much of the transcript the learner shows the
// oracle. Prompts repeat, so the head of the session is enough.
const learnSampleLines = 80

// Oracles often emit named-group syntax Go's regexp rejects in the learned
// flavor; strip it down to a plain group.
var namedGroup = regexp.MustCompile(`\(\?P?<[^>]+>`)

// builtinPatterns cover the common shell prompt shapes and serve as the
// fallback when learning fails.
var builtinPatterns = []string{
	`^[^@\s]+@[^:\s]+:[^\$#]*[\$#]\s*`,
	`^\([^)]+\)\s*[\$#%]\s*`,
	`^[\$\#\%>]\s*`,
}

// Pattern is a compiled prompt matcher anchored to the start of a line.
type Pattern struct {
	re     *regexp.Regexp
	Source string
}

// Candidate is a line that matched some prompt pattern. Prompt is the
// matched prefix of the line; the rest of the line is the command.
type Candidate struct {
	Line    int
	Prompt  string
	Pattern string
}

// Boundary is a confirmed turn start.
type Boundary struct {
	Line   int
	Prompt string
}

// FromCandidates converts candidates into boundaries verbatim.
func FromCandidates(cands []Candidate) []Boundary {
	out := make([]Boundary, 0, len(cands))
	for _, c := range cands {
		out = append(out, Boundary{Line: c.Line, Prompt: c.Prompt})
	}
	return out
}

const learnInstructions = `You analyze terminal session transcripts. Identify the shell prompt formats
present in the transcript excerpt and produce a regular expression for each
distinct format. Each regex must match the prompt prefix at the start of a
line, up to and including the trailing space before the command. Respond
with JSON: {"patterns": [{"example": "...", "regex": "...", "description": "..."}]}.`

// Learner derives prompt patterns for one transcript.
type Learner struct{}

type learnResponse struct {
	Patterns []struct {
		Example     string `json:"example"`
		Regex       string `json:"regex"`
		Description string `json:"description"`
	} `json:"patterns"`
}

// Learn asks the oracle for prompt regexes and compiles them. When nothing
// usable comes back it returns the built-in patterns together with an error
// wrapping ErrPatternLearning; callers treat that as a degraded result, not
// a failure.
func (Learner) Learn(ctx context.Context, s *oracle.Session, tx *transcript.Transcript) ([]Pattern, error) {
	sample := strings.Join(tx.Lines(1, learnSampleLines+1), "\n")

	var resp learnResponse
	err := s.Ask(ctx, oracle.Request{
		Task:         "learn-patterns",
		Instructions: learnInstructions,
		Input:        sample,
	}, validation.LearnPatternsSchema, &resp)
	if err != nil {
		return Builtins(), fmt.Errorf("%w: %v", ErrPatternLearning, err)
	}

	var patterns []Pattern
	for _, p := range resp.Patterns {
		compiled, ok := compilePrompt(p.Regex)
		if !ok {
			slog.Debug("skipping uncompilable prompt pattern", "regex", p.Regex)
			continue
		}
		patterns = append(patterns, compiled)
	}
	if len(patterns) == 0 {
		return Builtins(), fmt.Errorf("%w: no usable patterns in response", ErrPatternLearning)
	}
	return patterns, nil
}

// Builtins returns the compiled fallback patterns.
func Builtins() []Pattern {
	out := make([]Pattern, 0, len(builtinPatterns))
	for _, src := range builtinPatterns {
		p, ok := compilePrompt(src)
		if !ok {
			continue
		}
		out = append(out, p)
	}
	return out
}

func compilePrompt(src string) (Pattern, bool) {
	cleaned := namedGroup.ReplaceAllString(src, "(")
	anchored := cleaned
	if !strings.HasPrefix(anchored, "^") {
		anchored = "^(?:" + anchored + ")"
	}
	re, err := regexp.Compile(anchored)
	if err != nil {
		return Pattern{}, false
	}
	return Pattern{re: re, Source: src}, true
}

// Apply runs every pattern over every line and returns candidate
// boundaries in line order. The first pattern to match a line wins; its
// matched prefix becomes the candidate's prompt.
func Apply(patterns []Pattern, tx *transcript.Transcript) []Candidate {
	var out []Candidate
	for n := 1; n <= tx.LineCount(); n++ {
		line := tx.Line(n)
		for _, p := range patterns {
			loc := p.re.FindStringIndex(line)
			if loc == nil || loc[0] != 0 {
				continue
			}
			out = append(out, Candidate{
				Line:    n,
				Prompt:  line[:loc[1]],
				Pattern: p.Source,
			})
			break
		}
	}
	return out
}
