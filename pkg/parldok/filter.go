package parldok

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/parldok-indexer/pkg/htmldoc"
)

// TokenField is the name of the hidden anti-forgery form field.
const TokenField = "AFHTOKEN"

// TokenSelector locates the anti-forgery token on the initial page.
const TokenSelector = `input[name="AFHTOKEN"]`

// Filter is the search form posted to the listing endpoint.
type Filter struct {
	LegislativePeriod int    `yaml:"legislative_period"`
	AuthorPersonID    string `yaml:"author_person_id"`
	AuthorOtherID     string `yaml:"author_other_id"`
	DocumentTypeID    string `yaml:"document_type_id"`
	StatusID          string `yaml:"status_id"`
	Date              string `yaml:"date"`

	// DateFrom and DateTo use the upstream DD.MM.YYYY format.
	DateFrom string `yaml:"date_from"`
	DateTo   string `yaml:"date_to"`
}

// DefaultFilter returns the filter used by scheduled runs: the 22nd
// legislative period, December 2023.
func DefaultFilter() Filter {
	return Filter{
		LegislativePeriod: 22,
		DateFrom:          "01.12.2023",
		DateTo:            "01.01.2024",
	}
}

// Encode returns the form body in the field order the upstream form uses.
// The token goes last as a named AFHTOKEN=<token> field, never as a bare
// trailing value. An empty token is left out.
func (f Filter) Encode(token string) string {
	fields := []struct{ key, value string }{
		{"LegislaturperiodenNummer", strconv.Itoa(f.LegislativePeriod)},
		{"UrheberPersonenId", f.AuthorPersonID},
		{"UrheberSonstigeId", f.AuthorOtherID},
		{"DokumententypId", f.DocumentTypeID},
		{"BeratungsstandId", f.StatusID},
		{"Datum", f.Date},
		{"DatumVon", f.DateFrom},
		{"DatumBis", f.DateTo},
	}
	if token != "" {
		fields = append(fields, struct{ key, value string }{TokenField, token})
	}

	var b strings.Builder
	for i, field := range fields {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(field.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(field.value))
	}
	return b.String()
}

// ExtractToken returns the value of the anti-forgery token field of the
// initial page, or "" if the form carries none.
func ExtractToken(doc htmldoc.Node) string {
	if doc == nil {
		return ""
	}
	input, ok := doc.QuerySelector(TokenSelector)
	if !ok {
		return ""
	}
	value, _ := input.Attr("value")
	return value
}
