package parldok

import "testing"

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "canonical", raw: "15.03.2024", want: "2024-03-15"},
		{name: "surrounding whitespace", raw: "  01.12.2023\n", want: "2023-12-01"},
		{name: "single digit day and month", raw: "5.3.2024", want: "2024-03-05"},
		{name: "empty", raw: "", want: DefaultDate},
		{name: "garbage", raw: "unbekannt", want: DefaultDate},
		{name: "missing year", raw: "15.03", want: "1970-03-15"},
		{name: "missing month and year", raw: "15", want: "1970-01-15"},
		{name: "invalid month", raw: "15.13.2024", want: DefaultDate},
		{name: "invalid day", raw: "32.03.2024", want: DefaultDate},
		{name: "day past end of month", raw: "31.02.2024", want: DefaultDate},
		{name: "no leap day", raw: "29.02.2023", want: DefaultDate},
		{name: "leap day", raw: "29.02.2024", want: "2024-02-29"},
		{name: "zero day", raw: "00.03.2024", want: DefaultDate},
		{name: "two digit year", raw: "15.03.24", want: DefaultDate},
		{name: "extra component", raw: "15.03.2024.1", want: DefaultDate},
		{name: "iso input is not a DD.MM.YYYY date", raw: "2024-03-15", want: DefaultDate},
		{name: "signed component", raw: "+1.03.2024", want: DefaultDate},
		{name: "empty components", raw: "..", want: DefaultDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDate(tt.raw); got != tt.want {
				t.Errorf("NormalizeDate(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeDate_AlwaysWellFormed(t *testing.T) {
	inputs := []string{"", ".", "a.b.c", "99.99.99999", "1.1.1", "31.12.9999", "00.00.0000"}
	for _, in := range inputs {
		got := NormalizeDate(in)
		if len(got) != 10 || got[4] != '-' || got[7] != '-' {
			t.Errorf("NormalizeDate(%q) = %q, not YYYY-MM-DD", in, got)
		}
	}
}
