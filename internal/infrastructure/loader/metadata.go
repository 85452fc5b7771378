package loader

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/geogli/chatbot/internal/core/domain"
)

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// countryAliases maps lowercase filename fragments to canonical country
// names. Inference is heuristic; downstream filtering treats it as advisory.
var countryAliases = map[string]string{
	"saudi-arabia": "Saudi Arabia",
	"saudi":        "Saudi Arabia",
	"ksa":          "Saudi Arabia",
	"jordan":       "Jordan",
	"morocco":      "Morocco",
	"tunisia":      "Tunisia",
	"egypt":        "Egypt",
	"kenya":        "Kenya",
	"ethiopia":     "Ethiopia",
	"nigeria":      "Nigeria",
	"senegal":      "Senegal",
	"mongolia":     "Mongolia",
	"kazakhstan":   "Kazakhstan",
	"india":        "India",
	"china":        "China",
	"brazil":       "Brazil",
	"argentina":    "Argentina",
	"mexico":       "Mexico",
	"turkey":       "Turkey",
}

// inferMetadata extracts best-effort country/year hints from the filename.
func inferMetadata(path string) domain.Metadata {
	base := strings.ToLower(filepath.Base(path))
	meta := domain.Metadata{Source: filepath.Base(path)}

	normalized := strings.NewReplacer(" ", "-", ".", "-", "_", "-").Replace(base)
	if m := yearPattern.FindString(normalized); m != "" {
		if year, err := strconv.Atoi(m); err == nil {
			meta.Year = year
		}
	}

	matched := ""
	for alias, country := range countryAliases {
		if strings.Contains(normalized, alias) && len(alias) > len(matched) {
			// Longest alias wins so "saudi-arabia" is not shadowed by "saudi".
			matched = alias
			meta.Country = country
		}
	}
	return meta
}
