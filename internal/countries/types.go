package countries

import (
	"sort"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// FilterKind selects the server-side search endpoint.
type FilterKind string

const (
	FilterName        FilterKind = "name"
	FilterCode        FilterKind = "code"
	FilterLanguage    FilterKind = "language"
	FilterRegion      FilterKind = "region"
	FilterSubregion   FilterKind = "subregion"
	FilterCapital     FilterKind = "capital"
	FilterTranslation FilterKind = "translation"

	// DefaultFilterKind is used when the caller has not picked a filter.
	DefaultFilterKind = FilterName
)

var filterKinds = []FilterKind{
	FilterName,
	FilterCode,
	FilterLanguage,
	FilterRegion,
	FilterSubregion,
	FilterCapital,
	FilterTranslation,
}

var filterLabels = map[FilterKind]string{
	FilterName:        "Name",
	FilterCode:        "Country Code",
	FilterLanguage:    "Language",
	FilterRegion:      "Region",
	FilterSubregion:   "Subregion",
	FilterCapital:     "Capital",
	FilterTranslation: "Translation",
}

// FilterKinds returns every supported filter kind in display order.
func FilterKinds() []FilterKind {
	out := make([]FilterKind, len(filterKinds))
	copy(out, filterKinds)
	return out
}

// ParseFilterKind maps user input to a FilterKind. Empty input yields the default.
func ParseFilterKind(value string) (FilterKind, error) {
	trimmed := FilterKind(strings.ToLower(strings.TrimSpace(value)))
	if trimmed == "" {
		return DefaultFilterKind, nil
	}
	if trimmed.Valid() {
		return trimmed, nil
	}
	return "", errors.Errorf("unknown filter kind %q", value)
}

// Valid reports whether k names a supported endpoint.
func (k FilterKind) Valid() bool {
	_, ok := filterLabels[k]
	return ok
}

// Label returns the human readable filter name.
func (k FilterKind) Label() string {
	if label, ok := filterLabels[k]; ok {
		return label
	}
	return filterLabels[DefaultFilterKind]
}

// Next cycles to the following filter kind, wrapping around.
func (k FilterKind) Next() FilterKind {
	for i, kind := range filterKinds {
		if kind == k {
			return filterKinds[(i+1)%len(filterKinds)]
		}
	}
	return DefaultFilterKind
}

// Country mirrors a single record from the countries API. Treated as read-only.
type Country struct {
	CCA3         string                 `json:"cca3"`
	CCA2         string                 `json:"cca2"`
	Name         CountryName            `json:"name"`
	Region       string                 `json:"region"`
	Subregion    string                 `json:"subregion"`
	Capital      []string               `json:"capital"`
	Currencies   map[string]Currency    `json:"currencies"`
	Languages    map[string]string      `json:"languages"`
	Flags        Flags                  `json:"flags"`
	Population   int64                  `json:"population"`
	Area         float64                `json:"area"`
	LatLng       []float64              `json:"latlng"`
	Timezones    []string               `json:"timezones"`
	Borders      []string               `json:"borders"`
	Car          Car                    `json:"car"`
	UNMember     bool                   `json:"unMember"`
	FIFA         string                 `json:"fifa"`
	StartOfWeek  string                 `json:"startOfWeek"`
	Maps         Maps                   `json:"maps"`
	Translations map[string]CountryName `json:"translations"`
}

// CountryName holds the common and official names.
type CountryName struct {
	Common   string `json:"common"`
	Official string `json:"official"`
}

// Currency describes a currency entry keyed by ISO code.
type Currency struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// Flags holds flag image URLs.
type Flags struct {
	PNG string `json:"png"`
	SVG string `json:"svg"`
	Alt string `json:"alt"`
}

// Car holds driving-side information.
type Car struct {
	Side  string   `json:"side"`
	Signs []string `json:"signs"`
}

// Maps holds external map links.
type Maps struct {
	GoogleMaps     string `json:"googleMaps"`
	OpenStreetMaps string `json:"openStreetMaps"`
}

// Code returns the unique three-letter identifier.
func (c Country) Code() string {
	return strings.ToUpper(strings.TrimSpace(c.CCA3))
}

// PrimaryCapital returns the first listed capital or "".
func (c Country) PrimaryCapital() string {
	if len(c.Capital) == 0 {
		return ""
	}
	return c.Capital[0]
}

// PrimaryCurrency returns the alphabetically first currency code and its details.
func (c Country) PrimaryCurrency() (string, Currency, bool) {
	if len(c.Currencies) == 0 {
		return "", Currency{}, false
	}
	codes := make([]string, 0, len(c.Currencies))
	for code := range c.Currencies {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes[0], c.Currencies[codes[0]], true
}

// LanguageNames returns language names sorted for stable display.
func (c Country) LanguageNames() []string {
	if len(c.Languages) == 0 {
		return nil
	}
	names := make([]string, 0, len(c.Languages))
	for _, name := range c.Languages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SpeaksLanguage reports whether name is one of the country's languages,
// ignoring case.
func (c Country) SpeaksLanguage(name string) bool {
	for _, lang := range c.Languages {
		if strings.EqualFold(lang, name) {
			return true
		}
	}
	return false
}

// Favorite is the denormalized pointer the server stores per user.
type Favorite struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Flag string `json:"flag"`
}

// FavoriteFrom builds the favorite payload for a country.
func FavoriteFrom(c Country) Favorite {
	return Favorite{
		Code: c.Code(),
		Name: c.Name.Common,
		Flag: c.Flags.PNG,
	}
}

// User is the authenticated account returned by the auth endpoints.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the register request body.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
