package parldok

import (
	"strings"

	"github.com/Sternrassler/parldok-indexer/pkg/htmldoc"
)

// Selectors of the result table. One logical record spans two rows: the
// title row and the detail row immediately after it.
const (
	TitleCellSelector = "#parldokresult td.title"
	TitleSelector     = ".title"
	LinkSelector      = ".title a"
	ReferenceSelector = "td[headers='result-nummer']"
	TypeSelector      = "td[headers='result-typ']"
	DateSelector      = "td[headers='result-datum']"
)

// ExtractRecords returns one record per title cell of the result table, in
// document order. Fields whose markup is missing are left empty and the date
// falls back per component; a page without a result table yields nil.
func ExtractRecords(doc htmldoc.Node) []Record {
	if doc == nil {
		return nil
	}

	cells := doc.QuerySelectorAll(TitleCellSelector)
	if len(cells) == 0 {
		return nil
	}

	records := make([]Record, 0, len(cells))
	for _, cell := range cells {
		records = append(records, extractRecord(cell))
	}
	return records
}

func extractRecord(cell htmldoc.Node) Record {
	var rec Record

	row, ok := cell.Parent()
	if !ok {
		rec.Date = DefaultDate
		return rec
	}

	rec.Title = trimmedText(row, TitleSelector)
	if a, ok := row.QuerySelector(LinkSelector); ok {
		if href, ok := a.Attr("href"); ok {
			rec.Link = strings.TrimSpace(href)
		}
	}

	var rawDate string
	if detail, ok := row.NextElementSibling(); ok {
		rec.Reference = trimmedText(detail, ReferenceSelector)
		rec.Type = trimmedText(detail, TypeSelector)
		rawDate = trimmedText(detail, DateSelector)
	}
	rec.Date = NormalizeDate(rawDate)

	return rec
}

// ResultCountText returns the raw text of the result-count banner, or ""
// if the page has none.
func ResultCountText(doc htmldoc.Node) string {
	if doc == nil {
		return ""
	}
	return trimmedText(doc, ResultCountSelector)
}

func trimmedText(n htmldoc.Node, sel string) string {
	match, ok := n.QuerySelector(sel)
	if !ok {
		return ""
	}
	return strings.TrimSpace(match.Text())
}
