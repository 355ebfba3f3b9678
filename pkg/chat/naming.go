package chat

import (
	"strings"
	"unicode"
)

// FallbackName is used when a question yields too few meaningful words.
const FallbackName = "Legal Inquiry"

// nameStopWords are question scaffolding that never belongs in a title.
var nameStopWords = map[string]struct{}{
	"what": {}, "how": {}, "when": {}, "where": {}, "why": {},
	"tell": {}, "about": {}, "explain": {}, "the": {}, "a": {},
	"an": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"does": {}, "do": {}, "can": {}, "could": {}, "must": {},
	"should": {}, "would": {}, "they": {}, "them": {}, "their": {},
	"this": {}, "that": {}, "there": {},
}

// DeriveName builds a short session title from the first user question.
// Pure and deterministic: whitespace tokens of length <= 3 and stop words
// are discarded; if at least two meaningful words remain the first three are
// capitalized and joined, otherwise FallbackName is returned.
func DeriveName(firstUserQuestion string) string {
	meaningful := make([]string, 0, 3)
	for _, token := range strings.Fields(firstUserQuestion) {
		word := strings.Trim(token, ".,;:!?\"'()")
		if len(word) <= 3 {
			continue
		}
		if _, stop := nameStopWords[strings.ToLower(word)]; stop {
			continue
		}
		meaningful = append(meaningful, word)
	}

	if len(meaningful) < 2 {
		return FallbackName
	}
	if len(meaningful) > 3 {
		meaningful = meaningful[:3]
	}

	for i, word := range meaningful {
		meaningful[i] = capitalize(word)
	}
	return strings.Join(meaningful, " ")
}

func capitalize(word string) string {
	runes := []rune(word)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
