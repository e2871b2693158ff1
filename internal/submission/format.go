package submission

import (
	"slimwell/intake-backend/internal/quiz"
)

// Pair is one question/answer line of a submission.
type Pair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Format flattens answers into labelled pairs in catalog order. Keys the
// catalog does not know are dropped, empty answers are skipped and details
// whose parent answer no longer reveals them are left out. List values are
// joined with ", ".
func Format(catalog *quiz.Catalog, answers quiz.Answers) []Pair {
	pairs := make([]Pair, 0, len(answers))
	for _, entry := range catalog.Entries() {
		v, ok := answers.Get(entry.Key)
		if !ok || v.IsEmpty() {
			continue
		}
		if !quiz.Revealed(entry, answers) {
			continue
		}
		pairs = append(pairs, Pair{Question: entry.Label, Answer: v.String()})
	}
	return pairs
}

// Keyed maps submitted pairs back to answer keys. Questions the catalog does
// not know are returned separately.
func Keyed(catalog *quiz.Catalog, pairs []Pair) (map[string]string, []string) {
	keyed := make(map[string]string, len(pairs))
	var unknown []string
	for _, p := range pairs {
		key, ok := catalog.KeyForLabel(p.Question)
		if !ok {
			unknown = append(unknown, p.Question)
			continue
		}
		keyed[key] = p.Answer
	}
	return keyed, unknown
}
