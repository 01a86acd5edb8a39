package store

import (
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2/search"
)

// tokenize splits text into lowercase word tokens, matching what the
// standard analyzer does for plain latin text.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// matchedTerms collects the terms that produced a hit, across all fields.
func matchedTerms(locations search.FieldTermLocationMap) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, tlm := range locations {
		for term := range tlm {
			terms[term] = struct{}{}
		}
	}
	return terms
}

// highlight wraps every word of value whose lowercase form is a matched term.
func highlight(value string, terms map[string]struct{}, open, close string) string {
	if len(terms) == 0 {
		return value
	}

	var sb strings.Builder
	runes := []rune(value)
	for i := 0; i < len(runes); {
		if !isWordRune(runes[i]) {
			sb.WriteRune(runes[i])
			i++
			continue
		}
		j := i
		for j < len(runes) && isWordRune(runes[j]) {
			j++
		}
		word := string(runes[i:j])
		if _, ok := terms[strings.ToLower(word)]; ok {
			sb.WriteString(open)
			sb.WriteString(word)
			sb.WriteString(close)
		} else {
			sb.WriteString(word)
		}
		i = j
	}
	return sb.String()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}

// levenshtein returns the edit distance between a and b.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
