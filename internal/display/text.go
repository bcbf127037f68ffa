package display

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TitleCase capitalises each word of a condition description,
// e.g. "overcast clouds" -> "Overcast Clouds".
func TitleCase(s string) string {
	return cases.Title(language.English).String(strings.ToLower(s))
}

// Country is an entry of the manual search country picker.
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var countries = []Country{
	{Code: "US", Name: "United States"},
	{Code: "CA", Name: "Canada"},
	{Code: "GB", Name: "United Kingdom"},
	{Code: "AU", Name: "Australia"},
	{Code: "FR", Name: "France"},
	{Code: "DE", Name: "Germany"},
	{Code: "IN", Name: "India"},
	{Code: "JP", Name: "Japan"},
	{Code: "CN", Name: "China"},
	{Code: "BR", Name: "Brazil"},
}

// Countries returns the countries offered for manual search.
func Countries() []Country {
	return append([]Country(nil), countries...)
}
