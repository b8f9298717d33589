package resolve

import (
	"strings"
	"unicode"
)

// InferListName picks the best list for a new reminder when the caller
// did not name one. Scoring favors token overlap between the reminder
// text and the list name, long shared prefixes, containment, and a small
// themed bonus for shopping-style lists. Falls back to a conventional
// inbox list, then the first list. Returns "" only when titles is empty.
func InferListName(titles []string, title, notes string) string {
	if len(titles) == 0 {
		return ""
	}

	text := strings.ToLower(title + " " + notes)
	textTokens := tokenize(text)

	bestIdx := -1
	bestScore := 0
	for i, candidate := range titles {
		name := strings.ToLower(candidate)
		nameTokens := tokenize(name)

		overlap := 0
		prefixOverlap := 0
		for tok := range textTokens {
			if _, ok := nameTokens[tok]; ok {
				overlap++
			}
			for nameTok := range nameTokens {
				if sharedPrefixLen(tok, nameTok) >= 4 || sharedPrefixLen(nameTok, tok) >= 4 {
					prefixOverlap++
					break
				}
			}
		}

		score := overlap*20 + prefixOverlap*12
		if name != "" && strings.Contains(text, name) {
			score += 20
		}
		score += themedBonus(name, text)
		if isFallbackName(name) {
			score++
		}

		if bestIdx < 0 || score > bestScore {
			bestIdx = i
			bestScore = score
		}
	}

	if bestScore > 1 {
		return titles[bestIdx]
	}
	for _, candidate := range titles {
		if isFallbackName(strings.ToLower(candidate)) {
			return candidate
		}
	}
	return titles[0]
}

func tokenize(value string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, part := range strings.FieldsFunc(value, func(ch rune) bool {
		return !unicode.IsLetter(ch) && !unicode.IsDigit(ch)
	}) {
		if len([]rune(part)) >= 2 {
			out[strings.ToLower(part)] = struct{}{}
		}
	}
	return out
}

func sharedPrefixLen(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	n := 0
	for n < len(ra) && n < len(rb) && ra[n] == rb[n] {
		n++
	}
	return n
}

func isFallbackName(name string) bool {
	switch name {
	case "reminders", "inbox", "todo", "todos", "tareas":
		return true
	default:
		return false
	}
}

var (
	shoppingListHints = []string{"compr", "shop", "groc", "super", "market", "tienda", "store"}
	shoppingTermHints = []string{"compr", "buy", "milk", "pan", "agua", "coca", "cola", "super", "market", "grocery"}
)

func themedBonus(listName, text string) int {
	listHit := false
	for _, hint := range shoppingListHints {
		if strings.Contains(listName, hint) {
			listHit = true
			break
		}
	}
	if !listHit {
		return 0
	}
	for _, hint := range shoppingTermHints {
		if strings.Contains(text, hint) {
			return 24
		}
	}
	return 0
}
