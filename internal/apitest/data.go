package apitest

import "github.com/atlas-tui/atlas/internal/countries"

func flags(cca2 string) countries.Flags {
	return countries.Flags{
		PNG: "https://flagcdn.com/w320/" + cca2 + ".png",
		SVG: "https://flagcdn.com/" + cca2 + ".svg",
	}
}

// World returns a small fixed country set, enough for a few pages at the
// default page size.
func World() []countries.Country {
	return []countries.Country{
		{
			CCA3: "FRA", CCA2: "FR",
			Name:       countries.CountryName{Common: "France", Official: "French Republic"},
			Region:     "Europe", Subregion: "Western Europe",
			Capital:    []string{"Paris"},
			Currencies: map[string]countries.Currency{"EUR": {Name: "Euro", Symbol: "€"}},
			Languages:  map[string]string{"fra": "French"},
			Flags:      flags("fr"), Population: 67391582, Area: 551695,
			Timezones:  []string{"UTC-10:00", "UTC+01:00"},
			Borders:    []string{"AND", "BEL", "DEU", "ITA", "LUX", "MCO", "ESP", "CHE"},
			Car:        countries.Car{Side: "right", Signs: []string{"F"}},
			UNMember:   true, FIFA: "FRA", StartOfWeek: "monday",
			Translations: map[string]countries.CountryName{
				"deu": {Common: "Frankreich", Official: "Französische Republik"},
				"spa": {Common: "Francia", Official: "República francés"},
			},
		},
		{
			CCA3: "DEU", CCA2: "DE",
			Name:       countries.CountryName{Common: "Germany", Official: "Federal Republic of Germany"},
			Region:     "Europe", Subregion: "Western Europe",
			Capital:    []string{"Berlin"},
			Currencies: map[string]countries.Currency{"EUR": {Name: "Euro", Symbol: "€"}},
			Languages:  map[string]string{"deu": "German"},
			Flags:      flags("de"), Population: 83240525, Area: 357114,
			Timezones:  []string{"UTC+01:00"},
			Borders:    []string{"AUT", "BEL", "CZE", "DNK", "FRA", "LUX", "NLD", "POL", "CHE"},
			Car:        countries.Car{Side: "right", Signs: []string{"DY"}},
			UNMember:   true, FIFA: "GER", StartOfWeek: "monday",
			Translations: map[string]countries.CountryName{
				"fra": {Common: "Allemagne", Official: "République fédérale d'Allemagne"},
			},
		},
		{
			CCA3: "ESP", CCA2: "ES",
			Name:       countries.CountryName{Common: "Spain", Official: "Kingdom of Spain"},
			Region:     "Europe", Subregion: "Southern Europe",
			Capital:    []string{"Madrid"},
			Currencies: map[string]countries.Currency{"EUR": {Name: "Euro", Symbol: "€"}},
			Languages:  map[string]string{"spa": "Spanish"},
			Flags:      flags("es"), Population: 47351567, Area: 505992,
			Car:        countries.Car{Side: "right", Signs: []string{"E"}},
			UNMember:   true, FIFA: "ESP", StartOfWeek: "monday",
			Translations: map[string]countries.CountryName{
				"fra": {Common: "Espagne", Official: "Royaume d'Espagne"},
			},
		},
		{
			CCA3: "JPN", CCA2: "JP",
			Name:       countries.CountryName{Common: "Japan", Official: "Japan"},
			Region:     "Asia", Subregion: "Eastern Asia",
			Capital:    []string{"Tokyo"},
			Currencies: map[string]countries.Currency{"JPY": {Name: "Japanese yen", Symbol: "¥"}},
			Languages:  map[string]string{"jpn": "Japanese"},
			Flags:      flags("jp"), Population: 125836021, Area: 377930,
			Car:        countries.Car{Side: "left", Signs: []string{"J"}},
			UNMember:   true, FIFA: "JPN", StartOfWeek: "monday",
			Translations: map[string]countries.CountryName{
				"spa": {Common: "Japón", Official: "Japón"},
			},
		},
		{
			CCA3: "IND", CCA2: "IN",
			Name:       countries.CountryName{Common: "India", Official: "Republic of India"},
			Region:     "Asia", Subregion: "Southern Asia",
			Capital:    []string{"New Delhi"},
			Currencies: map[string]countries.Currency{"INR": {Name: "Indian rupee", Symbol: "₹"}},
			Languages:  map[string]string{"eng": "English", "hin": "Hindi", "tam": "Tamil"},
			Flags:      flags("in"), Population: 1380004385, Area: 3287590,
			Car:        countries.Car{Side: "left", Signs: []string{"IND"}},
			UNMember:   true, FIFA: "IND", StartOfWeek: "monday",
		},
		{
			CCA3: "EGY", CCA2: "EG",
			Name:       countries.CountryName{Common: "Egypt", Official: "Arab Republic of Egypt"},
			Region:     "Africa", Subregion: "Northern Africa",
			Capital:    []string{"Cairo"},
			Currencies: map[string]countries.Currency{"EGP": {Name: "Egyptian pound", Symbol: "£"}},
			Languages:  map[string]string{"ara": "Arabic"},
			Flags:      flags("eg"), Population: 102334403, Area: 1002450,
			Car:        countries.Car{Side: "right", Signs: []string{"ET"}},
			UNMember:   true, FIFA: "EGY", StartOfWeek: "sunday",
		},
		{
			CCA3: "NGA", CCA2: "NG",
			Name:       countries.CountryName{Common: "Nigeria", Official: "Federal Republic of Nigeria"},
			Region:     "Africa", Subregion: "Western Africa",
			Capital:    []string{"Abuja"},
			Currencies: map[string]countries.Currency{"NGN": {Name: "Nigerian naira", Symbol: "₦"}},
			Languages:  map[string]string{"eng": "English"},
			Flags:      flags("ng"), Population: 206139587, Area: 923768,
			Car:        countries.Car{Side: "right", Signs: []string{"NGR"}},
			UNMember:   true, FIFA: "NGA", StartOfWeek: "monday",
		},
		{
			CCA3: "BRA", CCA2: "BR",
			Name:       countries.CountryName{Common: "Brazil", Official: "Federative Republic of Brazil"},
			Region:     "Americas", Subregion: "South America",
			Capital:    []string{"Brasília"},
			Currencies: map[string]countries.Currency{"BRL": {Name: "Brazilian real", Symbol: "R$"}},
			Languages:  map[string]string{"por": "Portuguese"},
			Flags:      flags("br"), Population: 212559409, Area: 8515767,
			Car:        countries.Car{Side: "right", Signs: []string{"BR"}},
			UNMember:   true, FIFA: "BRA", StartOfWeek: "monday",
			Translations: map[string]countries.CountryName{
				"fra": {Common: "Brésil", Official: "République fédérative du Brésil"},
			},
		},
		{
			CCA3: "MEX", CCA2: "MX",
			Name:       countries.CountryName{Common: "Mexico", Official: "United Mexican States"},
			Region:     "Americas", Subregion: "North America",
			Capital:    []string{"Mexico City"},
			Currencies: map[string]countries.Currency{"MXN": {Name: "Mexican peso", Symbol: "$"}},
			Languages:  map[string]string{"spa": "Spanish"},
			Flags:      flags("mx"), Population: 128932753, Area: 1964375,
			Car:        countries.Car{Side: "right", Signs: []string{"MEX"}},
			UNMember:   true, FIFA: "MEX", StartOfWeek: "monday",
		},
		{
			CCA3: "CRI", CCA2: "CR",
			Name:       countries.CountryName{Common: "Costa Rica", Official: "Republic of Costa Rica"},
			Region:     "Americas", Subregion: "Central America",
			Capital:    []string{"San José"},
			Currencies: map[string]countries.Currency{"CRC": {Name: "Costa Rican colón", Symbol: "₡"}},
			Languages:  map[string]string{"spa": "Spanish"},
			Flags:      flags("cr"), Population: 5094114, Area: 51100,
			Car:        countries.Car{Side: "right", Signs: []string{"CR"}},
			UNMember:   true, FIFA: "CRC", StartOfWeek: "monday",
		},
		{
			CCA3: "CAN", CCA2: "CA",
			Name:       countries.CountryName{Common: "Canada", Official: "Canada"},
			Region:     "Americas", Subregion: "North America",
			Capital:    []string{"Ottawa"},
			Currencies: map[string]countries.Currency{"CAD": {Name: "Canadian dollar", Symbol: "$"}},
			Languages:  map[string]string{"eng": "English", "fra": "French"},
			Flags:      flags("ca"), Population: 38005238, Area: 9984670,
			Car:        countries.Car{Side: "right", Signs: []string{"CDN"}},
			UNMember:   true, FIFA: "CAN", StartOfWeek: "sunday",
		},
		{
			CCA3: "AUS", CCA2: "AU",
			Name:       countries.CountryName{Common: "Australia", Official: "Commonwealth of Australia"},
			Region:     "Oceania", Subregion: "Australia and New Zealand",
			Capital:    []string{"Canberra"},
			Currencies: map[string]countries.Currency{"AUD": {Name: "Australian dollar", Symbol: "$"}},
			Languages:  map[string]string{"eng": "English"},
			Flags:      flags("au"), Population: 25687041, Area: 7692024,
			Car:        countries.Car{Side: "left", Signs: []string{"AUS"}},
			UNMember:   true, FIFA: "AUS", StartOfWeek: "monday",
		},
	}
}
