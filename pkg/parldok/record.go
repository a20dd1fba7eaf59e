// Package parldok models the Hamburg Bürgerschaft "Parlamentsdatenbank"
// listing (parldok/formalkriterien) and extracts document metadata from its
// result pages.
package parldok

// DefaultEndpoint is the listing endpoint of the upstream document service.
const DefaultEndpoint = "https://www.buergerschaft-hh.de/parldok/formalkriterien"

// Record is the metadata of one document in the result table.
// Empty optional fields are treated as absent and omitted from JSON.
type Record struct {
	// Title is the display title of the document.
	Title string `json:"title,omitempty"`

	// Link is the href of the title anchor, absolute or relative.
	Link string `json:"link,omitempty"`

	// Reference is the official document number (e.g. "22/13724").
	Reference string `json:"reference,omitempty"`

	// Type is the document category as shown upstream.
	Type string `json:"type,omitempty"`

	// Date is always YYYY-MM-DD, DefaultDate if the source date is unusable.
	Date string `json:"date"`
}

// Session is the state negotiated with the upstream service before the
// first list request. It is reused unmodified for every page of a run.
type Session struct {
	// Token is the anti-forgery token (AFHTOKEN form field). May be empty.
	Token string

	// Cookie is the first Set-Cookie value of the initial response. May be empty.
	Cookie string

	// Cookies holds every Set-Cookie value of the initial response.
	Cookies []string
}

// HasToken reports whether a token was found.
func (s Session) HasToken() bool {
	return s.Token != ""
}

// HasCookie reports whether a session cookie was returned.
func (s Session) HasCookie() bool {
	return s.Cookie != ""
}
