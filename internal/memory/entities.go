package memory

import (
	"sort"
	"strings"
	"unicode"
)

// Entity is a frequently mentioned term surfaced as conversation context.
type Entity struct {
	Term  string
	Kind  string
	Count int
}

const (
	KindDocument = "document"
	KindConcept  = "concept"
	KindTopic    = "topic"
)

// stopWords covers common English and Portuguese function words. Tokens in
// this set never become entities.
var stopWords = map[string]struct{}{
	// English
	"about": {}, "after": {}, "again": {}, "also": {}, "because": {},
	"been": {}, "before": {}, "being": {}, "between": {}, "both": {},
	"could": {}, "does": {}, "doing": {}, "down": {}, "each": {},
	"from": {}, "have": {}, "having": {}, "here": {}, "into": {},
	"just": {}, "more": {}, "most": {}, "only": {}, "other": {},
	"over": {}, "same": {}, "should": {}, "some": {}, "such": {},
	"than": {}, "that": {}, "their": {}, "them": {}, "then": {},
	"there": {}, "these": {}, "they": {}, "this": {}, "those": {},
	"through": {}, "under": {}, "until": {}, "very": {}, "what": {},
	"when": {}, "where": {}, "which": {}, "while": {}, "will": {},
	"with": {}, "would": {}, "your": {},
	// Portuguese
	"ainda": {}, "antes": {}, "aquela": {}, "aquele": {}, "assim": {},
	"cada": {}, "como": {}, "depois": {}, "dela": {}, "dele": {},
	"deles": {}, "desta": {}, "deste": {}, "ela": {}, "elas": {},
	"eles": {}, "entre": {}, "essa": {}, "esse": {}, "esta": {},
	"este": {}, "isso": {}, "isto": {}, "mais": {}, "mas": {},
	"mesmo": {}, "muito": {}, "nas": {}, "nos": {}, "nossa": {},
	"nosso": {}, "onde": {}, "para": {}, "pela": {}, "pelo": {},
	"pode": {}, "por": {}, "porque": {}, "quais": {}, "qual": {},
	"quando": {}, "quem": {}, "seja": {}, "sem": {}, "ser": {},
	"seria": {}, "seu": {}, "sua": {}, "suas": {}, "seus": {},
	"tambem": {}, "também": {}, "tem": {}, "tinha": {}, "toda": {},
	"todo": {}, "todos": {}, "uma": {}, "umas": {}, "uns": {},
	"você": {}, "voce": {}, "vocês": {}, "voces": {},
}

// extractEntities counts qualifying terms across the given texts and returns
// those meeting the frequency threshold, most frequent first (ties resolve
// alphabetically so output is deterministic).
func extractEntities(texts []string, threshold int) []Entity {
	counts := make(map[string]int)
	for _, text := range texts {
		for _, token := range tokenize(text) {
			counts[token]++
		}
	}

	var entities []Entity
	for term, count := range counts {
		if count < threshold {
			continue
		}
		entities = append(entities, Entity{Term: term, Kind: classify(term), Count: count})
	}
	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Count != entities[j].Count {
			return entities[i].Count > entities[j].Count
		}
		return entities[i].Term < entities[j].Term
	})
	return entities
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 4 || isNumeric(f) {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func classify(term string) string {
	switch {
	case strings.Contains(term, "doc") || strings.Contains(term, "pdf") || strings.Contains(term, "arquivo"):
		return KindDocument
	case strings.HasSuffix(term, "ção") || strings.HasSuffix(term, "mento") || strings.Contains(term, "conceito"):
		return KindConcept
	default:
		return KindTopic
	}
}

// entityNote formats the top entities as a single system note, or "" when
// none qualify.
func entityNote(entities []Entity) string {
	if len(entities) == 0 {
		return ""
	}
	if len(entities) > 5 {
		entities = entities[:5]
	}
	terms := make([]string, len(entities))
	for i, e := range entities {
		terms[i] = e.Term + " (" + e.Kind + ")"
	}
	return "Key topics in this conversation: " + strings.Join(terms, ", ")
}
