// Package drills holds small interview exercises over strings, slices and maps.
//
// Every function is pure: inputs are never modified and nothing is retained
// between calls.
package drills

import (
	"sort"
	"strings"
)

type Sentence struct {
	Reversed string   // words in reverse order
	Unique   []string // distinct lowercase words, sorted
	Count    int      // number of words
}

// AnalyzeSentence splits s into whitespace separated words.
func AnalyzeSentence(s string) Sentence {
	words := strings.Fields(s)

	reversed := make([]string, len(words))
	for i, w := range words {
		reversed[len(words)-1-i] = w
	}

	return Sentence{
		Reversed: strings.Join(reversed, " "),
		Unique:   sortedUnique(words),
		Count:    len(words),
	}
}

func sortedUnique(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	unique := []string{}

	for _, w := range words {
		w = strings.ToLower(w)
		if _, ok := seen[w]; ok {
			continue
		}

		seen[w] = struct{}{}
		unique = append(unique, w)
	}

	sort.Strings(unique)

	return unique
}

var closing = map[rune]rune{
	')': '(',
	']': '[',
	'}': '{',
}

// ValidParentheses reports whether every bracket in s is closed by the matching bracket
// in the right order. Runes other than ()[]{} are ignored.
func ValidParentheses(s string) bool {
	var stack []rune

	for _, r := range s {
		switch r {
		case '(', '[', '{':
			stack = append(stack, r)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != closing[r] {
				return false
			}

			stack = stack[:len(stack)-1]
		}
	}

	return len(stack) == 0
}
