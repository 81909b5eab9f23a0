package book

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Vocabulary returns the sorted set of lower-cased subjects in books.
// Only the given batch contributes; nothing is remembered between calls.
func Vocabulary(books []Book) []string {
	seen := make(map[string]struct{})
	for _, b := range books {
		for _, subject := range b.Subjects {
			g := strings.ToLower(strings.TrimSpace(subject))
			if g == "" {
				continue
			}
			seen[g] = struct{}{}
		}
	}

	genres := make([]string, 0, len(seen))
	for g := range seen {
		genres = append(genres, g)
	}
	sort.Strings(genres)
	return genres
}

// GenreLabel returns a display label for a lower-cased genre
func GenreLabel(genre string) string {
	// Casers keep state, so each call gets its own.
	return cases.Title(language.English, cases.NoLower).String(genre)
}
