package filegen

import (
	"strings"
	"unicode"
)

// promptStopWords are instruction words stripped before retrieval so search
// terms reflect the subject matter, not the request phrasing.
var promptStopWords = map[string]struct{}{
	"create": {}, "generate": {}, "make": {}, "about": {}, "with": {},
	"guide": {}, "quiz": {}, "crie": {}, "sobre": {}, "perguntas": {},
	"alternativas": {}, "tema": {},
}

// SearchTerms reduces a generation prompt to up to five content-bearing
// tokens joined by spaces. An empty result means retrieval is skipped.
func SearchTerms(prompt string) string {
	fields := strings.FieldsFunc(strings.ToLower(prompt), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	var terms []string
	for _, f := range fields {
		if len([]rune(f)) <= 3 {
			continue
		}
		if _, stop := promptStopWords[f]; stop {
			continue
		}
		terms = append(terms, f)
		if len(terms) == 5 {
			break
		}
	}
	return strings.Join(terms, " ")
}
