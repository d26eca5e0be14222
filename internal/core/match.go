package core

import (
	"sort"
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MatchThreshold is the minimum Jaro-Winkler similarity for a fuzzy match
const MatchThreshold = 0.85

// NormalizeName lowercases, strips accents and punctuation and collapses whitespace
func NormalizeName(s string) string {
	s = strings.ToLower(s)
	s = removeAccents(s)
	s = strings.NewReplacer("-", " ", "_", " ", ".", " ", "'", "").Replace(s)

	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func removeAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

// MatchScore rates how well name matches query, 1 for a substring hit
func MatchScore(query, name string) float64 {
	q, n := NormalizeName(query), NormalizeName(name)
	if q == "" {
		return 1
	}
	if n == "" {
		return 0
	}
	if strings.Contains(n, q) {
		return 1
	}

	best := float64(edlib.JaroWinklerSimilarity(q, n))
	// Compare against single words too, so "siege" finds "castle seige"
	for _, word := range strings.Fields(n) {
		if score := float64(edlib.JaroWinklerSimilarity(q, word)); score > best {
			best = score
		}
	}
	return best
}

// FilterEntries keeps entries whose title, slug or id match query, best matches first
func FilterEntries(entries []Entry, query string) []Entry {
	if strings.TrimSpace(query) == "" {
		return entries
	}

	type scored struct {
		entry Entry
		score float64
	}
	var hits []scored
	for _, e := range entries {
		score := max(
			MatchScore(query, e.Record.Title),
			MatchScore(query, e.Record.Slug),
			MatchScore(query, e.Record.ID),
		)
		if score >= MatchThreshold {
			hits = append(hits, scored{e, score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	result := make([]Entry, len(hits))
	for i, h := range hits {
		result[i] = h.entry
	}
	return result
}
