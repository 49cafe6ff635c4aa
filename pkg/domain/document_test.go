package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func sampleTable() Table {
	t := NewTable(
		Column{Title: "Sample name", DataType: DataTypeString, PKey: true},
		Column{Title: "Values", DataType: DataTypeSubtable},
	)
	sub := NewTable(
		Column{Title: "Variable", PKey: true},
		Column{Title: "Value"},
	)
	sub.AddRow(TooltipCell("Tree rings", "Number of rings"), ValueCell("54"))
	t.AddRow(ValueCell("S1"), SubtableCell(sub))
	return t
}

func TestTableValidate(t *testing.T) {
	table := sampleTable()
	if err := table.Validate(); err != nil {
		t.Fatalf("expected valid table: %v", err)
	}

	noKey := NewTable(Column{Title: "A"})
	if err := noKey.Validate(); !errors.Is(err, ErrInvalidTable) {
		t.Fatalf("expected ErrInvalidTable for missing pkey, got %v", err)
	}

	short := NewTable(Column{Title: "A", PKey: true}, Column{Title: "B"})
	short.AddRow(ValueCell(1))
	if err := short.Validate(); !errors.Is(err, ErrInvalidTable) {
		t.Fatalf("expected ErrInvalidTable for short row, got %v", err)
	}

	nested := sampleTable()
	nested.Rows[0][1].Table.Rows[0] = []Cell{ValueCell("x")}
	if err := nested.Validate(); !errors.Is(err, ErrInvalidTable) {
		t.Fatalf("expected nested validation failure, got %v", err)
	}
}

func TestTableValidateRejectsDuplicateKeys(t *testing.T) {
	dup := NewTable(Column{Title: "ID", PKey: true, Hidden: true}, Column{Title: "Lab number"})
	dup.AddRow(ValueCell(1), ValueCell("Ua-1"))
	dup.AddRow(ValueCell(1), ValueCell("Ua-2"))
	if err := dup.Validate(); !errors.Is(err, ErrInvalidTable) {
		t.Fatalf("expected ErrInvalidTable for repeated key, got %v", err)
	}

	nested := sampleTable()
	nested.Rows[0][1].Table.AddRow(ValueCell("Tree rings"), ValueCell("60"))
	if err := nested.Validate(); !errors.Is(err, ErrInvalidTable) {
		t.Fatalf("expected nested duplicate key failure, got %v", err)
	}

	distinct := NewTable(Column{Title: "ID", PKey: true}, Column{Title: "Lab number"})
	distinct.AddRow(ValueCell("1-0"), ValueCell("Ua-1"))
	distinct.AddRow(ValueCell("1-1"), ValueCell("Ua-2"))
	if err := distinct.Validate(); err != nil {
		t.Fatalf("expected distinct keys to validate: %v", err)
	}
}

func TestCellJSONEncoding(t *testing.T) {
	table := sampleTable()
	raw, err := json.Marshal(table)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Table
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	cell := decoded.Rows[0][1]
	if cell.Type != CellSubtable || cell.Table == nil {
		t.Fatalf("expected subtable cell, got %+v", cell)
	}
	inner := cell.Table.Rows[0][0]
	if inner.Value != "Tree rings" || inner.Tooltip != "Number of rings" {
		t.Fatalf("unexpected inner cell %+v", inner)
	}
	if err := decoded.Validate(); err != nil {
		t.Fatalf("decoded table invalid: %v", err)
	}

	var bad Cell
	if err := json.Unmarshal([]byte(`{"type":"chart","value":1}`), &bad); err == nil {
		t.Fatalf("expected error for unknown cell type")
	}
}

func TestSectionListFindOrCreateMerges(t *testing.T) {
	list := NewSectionList()
	first, created := list.FindOrCreate(Section{Name: "3", Title: "Palaeoentomology"})
	if !created {
		t.Fatalf("expected section to be created")
	}
	first.AddContent(ContentItem{Name: "10"})
	again, created := list.FindOrCreate(Section{Name: "3", Title: "ignored"})
	if created || again != first {
		t.Fatalf("expected existing section to be returned")
	}
	again.AddContent(ContentItem{Name: "11"})
	if list.Len() != 1 || len(first.Contents) != 2 || first.Title != "Palaeoentomology" {
		t.Fatalf("unexpected sections %+v", list.Sections())
	}
}

func TestSectionListCheckpointRestore(t *testing.T) {
	list := NewSectionList()
	s, _ := list.FindOrCreate(Section{Name: "3"})
	s.AddContent(ContentItem{Name: "a"})
	cp := list.Checkpoint()

	s.AddContent(ContentItem{Name: "b"})
	list.FindOrCreate(Section{Name: "33"})
	list.Restore(cp)

	if list.Len() != 1 {
		t.Fatalf("expected 1 section after restore, got %d", list.Len())
	}
	restored, ok := list.Find("3")
	if !ok || len(restored.Contents) != 1 || restored.Contents[0].Name != "a" {
		t.Fatalf("unexpected restored section %+v", restored)
	}
}
