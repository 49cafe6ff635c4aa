package adna

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"sitereport/pkg/domain"
	"sitereport/plugins/testhelper"
)

func TestAdnaColumnPerValueClass(t *testing.T) {
	src := testhelper.NewSource()
	src.AddSampleGroup(1, "Teeth", testhelper.Sample(41, "Tooth 1"), testhelper.Sample(42, "Tooth 2"))
	src.AddDataset(domain.AnalysisRow{MethodID: MethodID, DatasetID: 8},
		testhelper.Entity(1, 41, domain.AnalysisValues{{ValueClassID: 1, Value: "12000"}, {ValueClassID: 2, Value: "H1", IsUncertain: true}}),
		testhelper.Entity(2, 42, domain.AnalysisValues{{ValueClassID: 1, Value: "800"}, {ValueClassID: 3, Value: "?"}}),
	)
	sections, _ := testhelper.Run(t, New(), src)
	section, _ := sections.Find("180")
	item, ok := section.FindContent("8")
	if !ok {
		t.Fatal("expected aDNA content")
	}
	if err := item.Data.Validate(); err != nil {
		t.Fatalf("invalid table: %v", err)
	}
	want := []string{"Analysis entity ID", "Sample name", "Reads", "Haplogroup", "3"}
	if diff := cmp.Diff(want, item.Data.ColumnTitles()); diff != "" {
		t.Fatalf("columns (-want +got):\n%s", diff)
	}
	row := item.Data.Rows[0]
	if row[2].Value != "12000" || row[3].Tooltip != "Uncertain value" || row[4].Value != "" {
		t.Fatalf("unexpected first row %+v", row)
	}
	if got := item.Data.Rows[1][4].Value; got != "?" {
		t.Fatalf("expected unresolved value class column to hold value, got %v", got)
	}
	if src.Calls("rows:tbl_value_classes") != 1 {
		t.Fatalf("expected one value class fetch, got %d", src.Calls("rows:tbl_value_classes"))
	}
}
