// Package rules is the deterministic gate behind the judge: text
// similarity measures and the rule-based evaluator that accepts or rejects
// a judged winner. Nothing in here talks to the oracle.
package rules

import "strings"

// NormalizeText strips trailing whitespace from every line and trims blank
// lines from both edges, so cosmetic differences never affect similarity.
func NormalizeText(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	start := 0
	for start < len(lines) && lines[start] == "" {
		start++
	}
	end := len(lines)
	for end > start && lines[end-1] == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

// Ratio is the normalized line-level similarity of two texts:
// 2*LCS / (lenA + lenB) over their line sequences. Two empty texts are
// identical.
func Ratio(a, b string) float64 {
	al := splitLines(NormalizeText(a))
	bl := splitLines(NormalizeText(b))
	if len(al) == 0 && len(bl) == 0 {
		return 1.0
	}
	if len(al) == 0 || len(bl) == 0 {
		return 0.0
	}
	lcs := lineLCS(al, bl)
	return 2.0 * float64(lcs) / float64(len(al)+len(bl))
}

// LineJaccard is the set-based line overlap of two texts, kept for
// diagnostics where order does not matter.
func LineJaccard(a, b string) float64 {
	al := splitLines(NormalizeText(a))
	bl := splitLines(NormalizeText(b))
	if len(al) == 0 && len(bl) == 0 {
		return 1.0
	}

	setA := make(map[string]struct{}, len(al))
	for _, line := range al {
		setA[line] = struct{}{}
	}
	setB := make(map[string]struct{}, len(bl))
	for _, line := range bl {
		setB[line] = struct{}{}
	}

	inter := 0
	for line := range setA {
		if _, ok := setB[line]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 1.0
	}
	return float64(inter) / float64(union)
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// lineLCS computes the longest common subsequence length over line slices
// with a two-row DP table.
func lineLCS(a, b []string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
