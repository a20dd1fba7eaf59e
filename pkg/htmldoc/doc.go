// Package htmldoc exposes a small, parser-independent query interface over
// parsed HTML documents.
//
// Extraction code depends only on Node:
//
//	doc, err := htmldoc.Parse(resp.Body)
//	if err != nil {
//		return err
//	}
//	for _, cell := range doc.QuerySelectorAll("#parldokresult td.title") {
//		row, ok := cell.Parent()
//		...
//	}
//
// The only implementation is backed by goquery, with selectors compiled by
// cascadia and cached per selector string. An invalid selector matches
// nothing; it never panics.
package htmldoc
