package listing

import (
	"strings"

	"github.com/atlas-tui/atlas/internal/countries"
)

// KeywordCategory groups the quick-filter keywords offered in the sidebar.
type KeywordCategory struct {
	Name     string
	Keywords []string
}

var keywordCategories = []KeywordCategory{
	{Name: "Regions", Keywords: []string{"Europe", "Asia", "Africa", "Americas", "Oceania"}},
	{Name: "Languages", Keywords: []string{"English", "Spanish", "French", "German", "Arabic"}},
	{Name: "Subregions", Keywords: []string{"Western Europe", "Northern Africa", "South America", "Central America"}},
}

// KeywordCategories returns the keyword groups in display order.
func KeywordCategories() []KeywordCategory {
	out := make([]KeywordCategory, len(keywordCategories))
	for i, c := range keywordCategories {
		out[i] = KeywordCategory{Name: c.Name, Keywords: append([]string(nil), c.Keywords...)}
	}
	return out
}

// Keywords returns every keyword, flattened in category order.
func Keywords() []string {
	var out []string
	for _, c := range keywordCategories {
		out = append(out, c.Keywords...)
	}
	return out
}

// NextKeyword steps through Keywords with "" (no filter) between the last
// and first entries. step is +1 or -1.
func NextKeyword(current string, step int) string {
	all := append([]string{""}, Keywords()...)
	idx := 0
	for i, kw := range all {
		if strings.EqualFold(kw, current) {
			idx = i
			break
		}
	}
	n := len(all)
	idx = ((idx+step)%n + n) % n
	return all[idx]
}

// FilterByKeyword returns the countries whose region, subregion, or one of
// whose languages equals keyword. An empty keyword keeps everything. The
// input is not modified.
func FilterByKeyword(list []countries.Country, keyword string) []countries.Country {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return append([]countries.Country(nil), list...)
	}
	out := make([]countries.Country, 0, len(list))
	for _, c := range list {
		if matchesKeyword(c, keyword) {
			out = append(out, c)
		}
	}
	return out
}

func matchesKeyword(c countries.Country, keyword string) bool {
	if strings.EqualFold(c.Region, keyword) || strings.EqualFold(c.Subregion, keyword) {
		return true
	}
	return c.SpeaksLanguage(keyword)
}
