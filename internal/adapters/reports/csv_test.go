package reports

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"sitereport/pkg/domain"
)

func TestWriteCSVFlattensContentItems(t *testing.T) {
	got, err := WriteCSV(sampleTree())
	if err != nil {
		t.Fatalf("write csv: %v", err)
	}
	want := "Analyses / Magnetic susceptibility,MS\n" +
		"Sample name,Value\n" +
		"S1,12.5\n" +
		"\n" +
		"Analyses / Magnetic susceptibility,Ages\n" +
		"Sample,Ages\n" +
		"S2,[2 rows]\n"
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Fatalf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCSVEmptyTree(t *testing.T) {
	for _, root := range []*domain.Section{nil, {Name: "analysis", Title: "Analyses"}} {
		got, err := WriteCSV(root)
		if err != nil || len(got) != 0 {
			t.Fatalf("expected empty output, got %q (%v)", got, err)
		}
	}
}

func TestFormatCell(t *testing.T) {
	cases := []struct {
		name string
		cell domain.Cell
		want string
	}{
		{"nil", domain.ValueCell(nil), ""},
		{"int", domain.ValueCell(42), "42"},
		{"float", domain.ValueCell(0.25), "0.25"},
		{"tooltip", domain.TooltipCell("AQ", "Aquatic"), "AQ"},
		{"data", domain.DataCell(map[string]int{"n": 1}), `{"n":1}`},
		{"empty subtable", domain.Cell{Type: domain.CellSubtable}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := formatCell(tc.cell); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
