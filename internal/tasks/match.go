package tasks

import "strings"

// MatchResult holds the tasks whose name contains a keyword.
type MatchResult struct {
	Keyword string
	Matches []Task
}

func (r MatchResult) NotFound() bool  { return len(r.Matches) == 0 }
func (r MatchResult) Ambiguous() bool { return len(r.Matches) > 1 }

// Single returns the only match, if there is exactly one.
func (r MatchResult) Single() (Task, bool) {
	if len(r.Matches) != 1 {
		return Task{}, false
	}
	return r.Matches[0], true
}

// Match returns the tasks whose lowercased name literally contains the
// lowercased keyword, in input order.
func Match(all []Task, keyword string) MatchResult {
	needle := strings.ToLower(strings.TrimSpace(keyword))
	res := MatchResult{Keyword: strings.TrimSpace(keyword)}
	for _, t := range all {
		if strings.Contains(strings.ToLower(t.Name), needle) {
			res.Matches = append(res.Matches, t)
		}
	}
	return res
}
