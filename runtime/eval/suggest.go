package eval

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/abyss-lang/abyss/core/errors"
)

// maxEditDistance bounds suggestions that are not fuzzy subsequence matches.
const maxEditDistance = 2

func (e *Evaluator) undefinedVariable(name string) *errors.EvalError {
	err := errors.NewUndefinedVariable(name)
	if s := closestMatch(name, e.env.VariableNames()); s != "" {
		err.WithContext("suggestion", s)
	}
	return err
}

// closestMatch returns the candidate most likely meant by target, or "".
// Fuzzy subsequence matches win; otherwise a candidate within a small edit
// distance is accepted.
func closestMatch(target string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}

	ranks := fuzzy.RankFindFold(target, candidates)
	sort.Sort(ranks)
	for _, r := range ranks {
		if r.Target != target {
			return r.Target
		}
	}

	best, bestDistance := "", maxEditDistance+1
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(target, c); d < bestDistance && c != target {
			best, bestDistance = c, d
		}
	}
	return best
}
