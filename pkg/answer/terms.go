package answer

import (
	"regexp"
	"strings"
	"unicode"
)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "you": {}, "your": {}, "our": {}, "with": {},
	"that": {}, "this": {}, "from": {}, "have": {}, "has": {}, "how": {}, "what": {}, "which": {},
	"when": {}, "where": {}, "who": {}, "why": {}, "does": {}, "can": {}, "will": {}, "please": {},
	"describe": {}, "provide": {}, "explain": {}, "any": {}, "all": {}, "not": {}, "its": {},
	"their": {}, "there": {}, "been": {}, "was": {}, "were": {}, "into": {}, "about": {}, "also": {},
	"such": {}, "other": {}, "each": {}, "should": {}, "would": {}, "could": {}, "shall": {}, "may": {},
}

var subPartSplitter = regexp.MustCompile(`[?;\n•]|\([a-zA-Z0-9]{1,3}\)|(?:^|\s)[a-z0-9]{1,2}[.)]\s`)

// splitSubQuestions breaks a question into the sub-parts an answer must cover.
func splitSubQuestions(question string) []string {
	var parts []string
	for _, p := range subPartSplitter.Split(question, -1) {
		if len(termSet(p)) > 0 {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	if len(parts) == 0 {
		return []string{question}
	}
	return parts
}

func termSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		if len(f) > 4 && strings.HasSuffix(f, "s") && !strings.HasSuffix(f, "ss") {
			f = strings.TrimSuffix(f, "s")
		}
		set[f] = struct{}{}
	}
	return set
}

// overlap returns the fraction of a's terms that appear in b.
func overlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 {
		return 0
	}
	hits := 0
	for t := range a {
		if _, ok := b[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(a))
}
