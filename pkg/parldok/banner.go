package parldok

import (
	"regexp"
	"strconv"
	"strings"
)

// ResultCountSelector locates the result-count banner on a list page.
const ResultCountSelector = ".pd_resultcount"

var (
	whitespace    = regexp.MustCompile(`\s+`)
	bannerPattern = regexp.MustCompile(`Dokumente (\d+) [-–] (\d+) von (\d+)`)
)

// Plan is the pagination derived from the result-count banner.
type Plan struct {
	From    int `json:"from"`
	To      int `json:"to"`
	Overall int `json:"overall"`

	// PageSize is To - From + 1.
	PageSize int `json:"page_size"`

	// TotalPages is ceil(Overall / PageSize), including the first page.
	TotalPages int `json:"total_pages"`

	// Matched is false when the banner could not be parsed; such a plan
	// covers the first page only.
	Matched bool `json:"matched"`
}

// ParseBanner parses a banner such as "Dokumente 1 - 20 von 45".
// Whitespace runs are collapsed before matching. A banner that does not
// match, or whose range is empty, yields a plan with Matched == false.
func ParseBanner(text string) Plan {
	normalized := whitespace.ReplaceAllString(strings.TrimSpace(text), " ")

	m := bannerPattern.FindStringSubmatch(normalized)
	if m == nil {
		return Plan{}
	}

	from, errFrom := strconv.Atoi(m[1])
	to, errTo := strconv.Atoi(m[2])
	overall, errOverall := strconv.Atoi(m[3])
	if errFrom != nil || errTo != nil || errOverall != nil {
		return Plan{}
	}

	plan := Plan{From: from, To: to, Overall: overall}
	plan.PageSize = to - from + 1
	if plan.PageSize <= 0 {
		return plan
	}

	plan.TotalPages = (overall + plan.PageSize - 1) / plan.PageSize
	plan.Matched = true
	return plan
}

// Capped returns the plan limited to maxPages pages and whether the limit
// applied. A maxPages below 1 leaves the plan unchanged.
func (p Plan) Capped(maxPages int) (Plan, bool) {
	if maxPages < 1 || p.TotalPages <= maxPages {
		return p, false
	}
	p.TotalPages = maxPages
	return p, true
}

// PageURLs returns the URLs of pages 2..TotalPages under endpoint.
// Page 1 is never included; its records come from the list response.
func (p Plan) PageURLs(endpoint string) []string {
	if !p.Matched || p.TotalPages < 2 {
		return nil
	}

	base := strings.TrimRight(endpoint, "/")
	urls := make([]string, 0, p.TotalPages-1)
	for page := 2; page <= p.TotalPages; page++ {
		urls = append(urls, base+"/"+strconv.Itoa(page))
	}
	return urls
}
