package parldok

import (
	"reflect"
	"testing"

	"github.com/Sternrassler/parldok-indexer/pkg/htmldoc"
)

func mustParse(t *testing.T, s string) htmldoc.Node {
	t.Helper()
	doc, err := htmldoc.ParseString(s)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	return doc
}

func TestExtractRecords(t *testing.T) {
	got := ExtractRecords(mustParse(t, listPage))

	want := []Record{
		{
			Title:     "Haushaltsplan 2023/2024",
			Link:      "/parldok/dokument/84539/haushalt.pdf",
			Reference: "22/13724",
			Type:      "Drucksache",
			Date:      "2023-12-05",
		},
		{
			Title: "Schriftliche Kleine Anfrage ohne Link",
			Type:  "Schriftliche Kleine Anfrage",
			Date:  "2023-12-12",
		},
		{
			Title:     "Plenarprotokoll",
			Reference: "22/70",
			Type:      "Plenarprotokoll",
			Date:      DefaultDate,
		},
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractRecords() =\n%+v\nwant\n%+v", got, want)
	}
}

func TestExtractRecords_MissingDetailRow(t *testing.T) {
	page := `<table id="parldokresult"><tr><td class="title">Letzte Zeile</td></tr></table>`

	got := ExtractRecords(mustParse(t, page))
	if len(got) != 1 {
		t.Fatalf("ExtractRecords() returned %d records, want 1", len(got))
	}
	if got[0].Title != "Letzte Zeile" {
		t.Errorf("Title = %q, want %q", got[0].Title, "Letzte Zeile")
	}
	if got[0].Reference != "" || got[0].Type != "" {
		t.Errorf("Reference/Type = %q/%q, want empty", got[0].Reference, got[0].Type)
	}
	if got[0].Date != DefaultDate {
		t.Errorf("Date = %q, want %q", got[0].Date, DefaultDate)
	}
}

func TestExtractRecords_NoResultTable(t *testing.T) {
	tests := []struct {
		name string
		page string
	}{
		{name: "error page", page: `<html><body><h1>Sitzung abgelaufen</h1></body></html>`},
		{name: "title cells outside result table", page: `<table><tr><td class="title">x</td></tr></table>`},
		{name: "empty document", page: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractRecords(mustParse(t, tt.page)); len(got) != 0 {
				t.Errorf("ExtractRecords() = %+v, want none", got)
			}
		})
	}
}

func TestExtractRecords_NilDocument(t *testing.T) {
	if got := ExtractRecords(nil); got != nil {
		t.Errorf("ExtractRecords(nil) = %+v, want nil", got)
	}
}

func TestResultCountText(t *testing.T) {
	doc := mustParse(t, listPage)

	plan := ParseBanner(ResultCountText(doc))
	if !plan.Matched {
		t.Fatalf("banner %q did not match", ResultCountText(doc))
	}
	if plan.PageSize != 3 || plan.TotalPages != 15 {
		t.Errorf("plan = %+v, want PageSize 3, TotalPages 15", plan)
	}

	if got := ResultCountText(mustParse(t, `<p>nothing</p>`)); got != "" {
		t.Errorf("ResultCountText() = %q, want empty", got)
	}
}
