package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/geogli/chatbot/internal/core/domain"
)

var hintYearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// Query-side country aliases. Longest alias wins so "saudi arabia" beats
// "saudi".
var hintCountryAliases = map[string]string{
	"saudi arabia": "Saudi Arabia",
	"saudi":        "Saudi Arabia",
	"ksa":          "Saudi Arabia",
	"jordan":       "Jordan",
	"morocco":      "Morocco",
	"tunisia":      "Tunisia",
	"egypt":        "Egypt",
	"mongolia":     "Mongolia",
	"kazakhstan":   "Kazakhstan",
	"uzbekistan":   "Uzbekistan",
	"turkey":       "Turkey",
	"kenya":        "Kenya",
	"ethiopia":     "Ethiopia",
	"nigeria":      "Nigeria",
	"senegal":      "Senegal",
	"mali":         "Mali",
	"niger":        "Niger",
	"chad":         "Chad",
	"sudan":        "Sudan",
	"iraq":         "Iraq",
	"iran":         "Iran",
}

// extractHints derives advisory country and year preferences from the query,
// falling back to recent user turns so follow-ups like "and in 2019?" keep
// the earlier country.
func extractHints(query string, history []domain.Turn) domain.SearchHints {
	hints := hintsFromText(query)
	if !hints.Empty() && hints.Country != "" {
		return hints
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != domain.RoleUser {
			continue
		}
		prev := hintsFromText(history[i].Content)
		if hints.Country == "" {
			hints.Country = prev.Country
		}
		if hints.Year == 0 {
			hints.Year = prev.Year
		}
		if hints.Country != "" && hints.Year != 0 {
			break
		}
	}
	return hints
}

func hintsFromText(text string) domain.SearchHints {
	lower := strings.ToLower(text)

	var hints domain.SearchHints
	matched := ""
	for alias, country := range hintCountryAliases {
		if len(alias) > len(matched) && containsWord(lower, alias) {
			matched = alias
			hints.Country = country
		}
	}
	if m := hintYearPattern.FindString(lower); m != "" {
		hints.Year, _ = strconv.Atoi(m)
	}
	return hints
}

// containsWord matches an alias on word boundaries so "iran" does not fire
// inside "mediterranean".
func containsWord(text, alias string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], alias)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(alias)
		beforeOK := start == 0 || !isWordByte(text[start-1])
		afterOK := end == len(text) || !isWordByte(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
